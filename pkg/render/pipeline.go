package render

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/observability"
)

// FormatPDF is produced by converting SVG output; engines do not provide it.
const FormatPDF = "pdf"

// Pipeline renders laid-out handles through an engine.
type Pipeline struct {
	eng          engine.Engine
	normalizeSVG bool
	converter    func(ctx context.Context, svg []byte) ([]byte, error)
	logger       *log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNormalizeSVG rewrites the root element of SVG output with [NormalizeViewBox].
func WithNormalizeSVG() Option { return func(p *Pipeline) { p.normalizeSVG = true } }

// WithLogger sets the pipeline logger. The default discards output.
func WithLogger(l *log.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithPDFConverter replaces the rsvg-convert based SVG to PDF conversion.
func WithPDFConverter(fn func(ctx context.Context, svg []byte) ([]byte, error)) Option {
	return func(p *Pipeline) { p.converter = fn }
}

// New returns a pipeline over eng.
func New(eng engine.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		eng:       eng,
		converter: ToPDF,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Engine returns the underlying engine.
func (p *Pipeline) Engine() engine.Engine { return p.eng }

// Formats lists every format the pipeline can produce, sorted.
func (p *Pipeline) Formats() []string {
	formats := p.eng.Plugins(engine.CapabilityRender)
	if slices.Contains(formats, "svg") && !slices.Contains(formats, FormatPDF) {
		formats = append(formats, FormatPDF)
	}
	slices.Sort(formats)
	return formats
}

// Supports reports whether format is in [Pipeline.Formats].
func (p *Pipeline) Supports(format string) bool {
	return slices.Contains(p.Formats(), format)
}

// Render encodes h in format.
func (p *Pipeline) Render(ctx context.Context, h engine.Handle, format string) ([]byte, error) {
	label := labelFrom(ctx)
	hooks := observability.Document()
	hooks.OnRenderStart(ctx, label, format)
	start := time.Now()

	data, err := p.render(ctx, h, format)

	hooks.OnRenderComplete(ctx, label, format, len(data), time.Since(start), err)
	if err != nil {
		p.logger.Debug("render failed", "doc", label, "format", format, "err", err)
		return nil, err
	}
	p.logger.Debug("rendered", "doc", label, "format", format, "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

func (p *Pipeline) render(ctx context.Context, h engine.Handle, format string) ([]byte, error) {
	if err := errors.ValidateFormat(format); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
	}

	if format == FormatPDF && !slices.Contains(p.eng.Plugins(engine.CapabilityRender), FormatPDF) {
		svg, err := p.eng.Render(ctx, h, "svg")
		if err != nil {
			return nil, asRenderError(err, format)
		}
		pdf, err := p.converter(ctx, svg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRender, err, "render pdf")
		}
		return pdf, nil
	}

	data, err := p.eng.Render(ctx, h, format)
	if err != nil {
		return nil, asRenderError(err, format)
	}
	if format == "svg" && p.normalizeSVG {
		data = NormalizeViewBox(data)
	}
	return data, nil
}

// RenderFile encodes h in format and writes it to path. Formats the engine
// can write natively go straight to the engine; the rest are rendered in
// memory first.
func (p *Pipeline) RenderFile(ctx context.Context, h engine.Handle, format, path string) error {
	if err := errors.ValidateFormat(format); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
	}

	postProcessed := format == FormatPDF || (format == "svg" && p.normalizeSVG)
	if !postProcessed {
		label := labelFrom(ctx)
		hooks := observability.Document()
		hooks.OnRenderStart(ctx, label, format)
		start := time.Now()
		err := p.eng.RenderFile(ctx, h, format, path)
		if err != nil {
			err = asRenderError(err, format)
		}
		hooks.OnRenderComplete(ctx, label, format, 0, time.Since(start), err)
		return err
	}

	data, err := p.Render(ctx, h, format)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "write %s", path)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so watchers never observe a half-written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func asRenderError(err error, format string) error {
	if errors.Is(err, errors.ErrCodeRender) {
		return err
	}
	return errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
}

type labelKey struct{}

// WithLabel tags ctx with a document label used in logs and hooks.
func WithLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, labelKey{}, label)
}

func labelFrom(ctx context.Context) string {
	s, _ := ctx.Value(labelKey{}).(string)
	return s
}
