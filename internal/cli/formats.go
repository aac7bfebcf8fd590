package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/render"
)

// formatsCommand lists the engine's plugins.
func (c *CLI) formatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List layout engines and output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.NewEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer eng.Close()

			p := render.New(eng)
			printKeyValue(c.Out, "layouts", strings.Join(eng.Plugins(engine.CapabilityLayout), " "))
			printKeyValue(c.Out, "formats", strings.Join(p.Formats(), " "))
			if !render.HasConverter() {
				printDetail(c.Out, "pdf needs rsvg-convert on PATH")
			}
			return nil
		},
	}
}
