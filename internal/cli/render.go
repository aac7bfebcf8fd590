package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/pipeline"
	"github.com/matzehuels/livedot/pkg/render"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output    string   // output file (single format) or base path
	formats   string   // comma-separated output formats
	layout    string   // layout engine
	graph     []string // -G name=value
	node      []string // -N name=value
	edge      []string // -E name=value
	args      []string // -a name=value render arguments
	normalize bool     // normalize the SVG viewBox
	noCache   bool
	refresh   bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [file...]",
		Short: "Lay out and render DOT files",
		Long: `Lay out and render DOT files with Graphviz.

Attribute overrides work like Graphviz's own flags: -G sets a graph attribute,
-N a default node attribute and -E a default edge attribute. Outputs are cached
by document content, so rendering an unchanged file is instant.`,
		Example: `  livedot render graph.dot
  livedot render graph.dot -f svg,png -K neato -G rankdir=LR
  livedot render a.dot b.dot --no-cache`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" && len(args) > 1 {
				return errors.New(errors.ErrCodeInvalidInput, "--output needs exactly one input file")
			}
			for _, input := range args {
				if err := c.runRender(cmd.Context(), input, &opts); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s), comma-separated (default from config, svg)")
	cmd.Flags().StringVarP(&opts.layout, "layout", "K", "", "layout engine (default from config, dot)")
	cmd.Flags().StringArrayVarP(&opts.graph, "graph-attr", "G", nil, "set a graph attribute (name=value)")
	cmd.Flags().StringArrayVarP(&opts.node, "node-attr", "N", nil, "set a default node attribute (name=value)")
	cmd.Flags().StringArrayVarP(&opts.edge, "edge-attr", "E", nil, "set a default edge attribute (name=value)")
	cmd.Flags().StringArrayVarP(&opts.args, "arg", "a", nil, "set a render argument (name=value)")
	cmd.Flags().BoolVar(&opts.normalize, "normalize", false, "move the SVG viewBox origin to 0,0")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the output cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when cached")

	return cmd
}

// pipelineOptions merges flags over the config file.
func (c *CLI) pipelineOptions(opts *renderOpts) (pipeline.Options, error) {
	cfg := c.Config.Render
	po := pipeline.Options{
		Layout:       firstNonEmpty(opts.layout, cfg.Layout),
		Formats:      parseFormats(opts.formats, cfg.Format),
		Args:         cfg.Args,
		NormalizeSVG: opts.normalize || cfg.NormalizeSVG,
		Refresh:      opts.refresh,
		Logger:       c.Logger,
	}
	if extra := parseArgs(opts.args); extra != nil {
		po.Args = maps.Clone(cfg.Args)
		if po.Args == nil {
			po.Args = make(map[string]string)
		}
		maps.Copy(po.Args, extra)
	}

	groups := []struct {
		component engine.Component
		values    []string
	}{
		{engine.ComponentGraph, opts.graph},
		{engine.ComponentNode, opts.node},
		{engine.ComponentEdge, opts.edge},
	}
	for _, g := range groups {
		for _, v := range g.values {
			a, err := pipeline.ParseAssignment(g.component, v)
			if err != nil {
				return po, err
			}
			po.Attrs = append(po.Attrs, a)
		}
	}
	return po, po.ValidateAndSetDefaults()
}

// runRender renders one input file to every requested format.
func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	po, err := c.pipelineOptions(opts)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read %s", input)
	}

	eng, err := c.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	cc := c.newCache(ctx, opts.noCache)
	defer cc.Close()

	runner := pipeline.NewRunner(eng, cc, newKeyer(eng), logger)
	prog := newProgress(logger)

	var spin *Spinner
	if c.interactive {
		spin = newSpinner(ctx, c.Out, fmt.Sprintf("Rendering %s", input))
		spin.Start()
	}
	result, err := runner.Execute(ctx, data, po)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		printError(c.Out, "%s: %s", input, errors.UserMessage(err))
		return err
	}

	base := basePath(opts.output, input)
	for _, format := range po.Formats {
		path := base + "." + format
		if opts.output != "" && len(po.Formats) == 1 {
			path = opts.output
		}
		if sameFile(path, input) {
			return errors.New(errors.ErrCodeInvalidPath, "%s output would overwrite the input %s; use --output", format, input)
		}
		if err := render.WriteFileAtomic(path, result.Artifacts[format]); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
		}
		printFile(c.Out, path, result.Cached[format])
	}
	prog.done("rendered", "file", input, "layout", po.Layout, "cached", result.AllCached())
	return nil
}

// basePath derives the output base path. Without --output it is the input
// path minus its extension; a known format extension on --output is stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if slices.Contains(knownFormats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func sameFile(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

// knownFormats are the output extensions stripped from --output.
var knownFormats = []string{"svg", "png", "pdf", "jpg", "dot", "xdot", "json"}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
