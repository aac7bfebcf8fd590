package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livedot/pkg/cache"
	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/render"
)

// Runner executes runs against one engine and cache. It keeps no state
// between runs.
type Runner struct {
	Engine engine.Engine
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// uses the DefaultKeyer.
func NewRunner(eng engine.Engine, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Engine: eng, Cache: c, Keyer: keyer, Logger: logger}
}

// Execute parses data, applies the attribute overrides and renders every
// format. The layout is computed at most once, and only if some format
// misses the cache.
func (r *Runner) Execute(ctx context.Context, data []byte, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}

	pipeOpts := []render.Option{render.WithLogger(logger)}
	if opts.NormalizeSVG {
		pipeOpts = append(pipeOpts, render.WithNormalizeSVG())
	}
	// The layout engine is set on the first cache miss so that overrides
	// and cache hits never lay the document out.
	args := make(map[string]string, len(opts.Args))
	for k, v := range opts.Args {
		args[k] = v
	}
	delete(args, document.ArgLayout)

	parseStart := time.Now()
	doc, err := document.OpenBytes(r.Engine, data,
		document.WithRenderArguments(args),
		document.WithPipeline(render.New(r.Engine, pipeOpts...)),
		document.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	defer doc.Dispose()

	for _, a := range opts.Attrs {
		if err := doc.Table(a.Component).Set(a.Name, a.Value); err != nil {
			return nil, err
		}
	}
	serialized, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	result := &Result{
		DocHash:   cache.Hash(serialized),
		Artifacts: make(map[string][]byte, len(opts.Formats)),
		Cached:    make(map[string]bool, len(opts.Formats)),
	}
	result.Stats.ParseTime = time.Since(parseStart)

	renderStart := time.Now()
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(result.DocHash, cache.ArtifactKeyOpts{
			Layout:       opts.Layout,
			Format:       format,
			Args:         opts.Args,
			NormalizeSVG: opts.NormalizeSVG,
		})
		if opts.Refresh {
			_ = r.Cache.Delete(ctx, key)
		}

		out, hit, err := cache.Fetch(ctx, r.Cache, key, cache.TTLArtifact, func() ([]byte, error) {
			if doc.LayoutEngine() == "" {
				if err := doc.SetRenderArgument(document.ArgLayout, opts.Layout); err != nil {
					return nil, errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
				}
			}
			return doc.Render(ctx, format)
		})
		if err != nil {
			return nil, err
		}
		result.Artifacts[format] = out
		result.Cached[format] = hit
		logger.Debug("artifact", "format", format, "bytes", len(out), "cached", hit)
	}
	result.Stats.RenderTime = time.Since(renderStart)

	logger.Info("rendered",
		"layout", opts.Layout,
		"formats", len(opts.Formats),
		"cached", result.AllCached(),
		"duration", result.Stats.ParseTime+result.Stats.RenderTime)
	return result, nil
}
