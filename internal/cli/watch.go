package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/live"
	"github.com/matzehuels/livedot/pkg/render"
)

// watchOpts holds the flags shared by watch and serve.
type watchOpts struct {
	output    string
	format    string
	layout    string
	normalize bool
	tui       bool
}

func (o *watchOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "preview format (default from config, svg)")
	cmd.Flags().StringVarP(&o.layout, "layout", "K", "", "layout engine (default from config, dot)")
	cmd.Flags().BoolVar(&o.normalize, "normalize", false, "move the SVG viewBox origin to 0,0")
}

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOpts

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-render a DOT file whenever it changes",
		Long: `Watch a DOT file and re-render it every time it is written.

Writes from editors that lock or replace the file are retried until the file
is readable again. A file that stops parsing keeps the last good render.`,
		Example: `  livedot watch graph.dot -o graph.svg
  livedot watch graph.dot -f png -o graph.png --tui`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write every render to this file")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show a live status view")

	return cmd
}

// openSession opens a live session with the config and flags applied.
func (c *CLI) openSession(ctx context.Context, eng engine.Engine, path string, opts *watchOpts) (*live.Session, error) {
	logger := loggerFromContext(ctx)
	cfg := c.Config

	var popts []render.Option
	if opts.normalize || cfg.Render.NormalizeSVG {
		popts = append(popts, render.WithNormalizeSVG())
	}
	popts = append(popts, render.WithLogger(logger))

	sopts := []live.Option{
		live.WithLogger(logger),
		live.WithDocumentOptions(
			document.WithRenderArguments(cfg.Render.Args),
			document.WithLayoutEngine(firstNonEmpty(opts.layout, cfg.Render.Layout)),
			document.WithPipeline(render.New(eng, popts...)),
		),
		live.WithWatchOptions(cfg.Watch.WatchOptions()...),
	}
	if opts.output != "" {
		if sameFile(opts.output, path) {
			return nil, errors.New(errors.ErrCodeInvalidPath, "output %s is the watched file", opts.output)
		}
		sopts = append(sopts, live.WithOutputFile(opts.output))
	}
	return live.Open(eng, path, firstNonEmpty(opts.format, cfg.Render.Format), sopts...)
}

func (c *CLI) runWatch(ctx context.Context, path string, opts *watchOpts) error {
	logger := loggerFromContext(ctx)

	eng, err := c.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	s, err := c.openSession(ctx, eng, path, opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if opts.tui {
		layouts := eng.Plugins(engine.CapabilityLayout)
		current := firstNonEmpty(opts.layout, c.Config.Render.Layout)
		p := tea.NewProgram(NewWatchModel(s, layouts, current), tea.WithContext(ctx), tea.WithOutput(c.Out))
		if _, err := p.Run(); err != nil && ctx.Err() == nil && err != tea.ErrProgramKilled {
			logger.Error("status view", "err", err)
		}
		cancel()
		return <-done
	}

	printInfo(c.Out, "Watching %s (ctrl+c to stop)", path)
	for {
		select {
		case err := <-done:
			return err
		case ev := <-s.Events():
			c.printEvent(s.Snapshot(), ev, opts.output)
		}
	}
}

// printEvent reports one session revision.
func (c *CLI) printEvent(snap live.Snapshot, ev live.Event, output string) {
	if ev.Err != nil {
		printError(c.Out, "rev %d: %s", ev.Revision, errors.UserMessage(ev.Err))
		return
	}
	what := fmt.Sprintf("%s (%d bytes)", snap.Format, len(snap.Output))
	if output != "" {
		what = output
	}
	if ev.Reopened {
		printSuccess(c.Out, "rev %d: reloaded %s %s %s", ev.Revision, snap.Path, iconArrow, what)
		return
	}
	printSuccess(c.Out, "rev %d: rendered %s", ev.Revision, what)
}
