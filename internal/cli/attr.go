package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/engine"
	"github.com/matzehuels/livedot/pkg/errors"
)

// attrCommand creates the attribute editing command.
func (c *CLI) attrCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attr",
		Short: "Read and edit graph, node and edge attributes",
		Long: `Read and edit the attribute tables of a DOT file in place.

COMPONENT is one of graph, node or edge. node and edge address the default
prototypes (node [...] and edge [...]), not individual nodes or edges.
Setting an empty value keeps the attribute declared but unset.`,
	}

	cmd.AddCommand(c.attrListCommand())
	cmd.AddCommand(c.attrGetCommand())
	cmd.AddCommand(c.attrSetCommand())
	cmd.AddCommand(c.attrUnsetCommand())
	cmd.AddCommand(c.attrClearCommand())

	return cmd
}

func (c *CLI) attrListCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "list FILE [COMPONENT]",
		Short:             "List attributes",
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeComponent(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components := engine.Components
			if len(args) == 2 {
				comp, err := parseComponent(args[1])
				if err != nil {
					return err
				}
				components = []engine.Component{comp}
			}
			return c.withDocument(cmd.Context(), args[0], false, func(d *document.Document) error {
				for _, comp := range components {
					decls := d.Table(comp).Declarations()
					if len(decls) == 0 {
						printDetail(c.Out, "%s: no attributes", comp)
						continue
					}
					fmt.Fprintln(c.Out, attrTable(comp.String(), decls))
				}
				return nil
			})
		},
	}
}

func (c *CLI) attrGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "get FILE COMPONENT NAME",
		Short:             "Print one attribute value",
		Args:              cobra.ExactArgs(3),
		ValidArgsFunction: completeComponent(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := parseComponent(args[1])
			if err != nil {
				return err
			}
			return c.withDocument(cmd.Context(), args[0], false, func(d *document.Document) error {
				v, err := d.Table(comp).At(args[2])
				if err != nil {
					return err
				}
				fmt.Fprintln(c.Out, v)
				return nil
			})
		},
	}
}

func (c *CLI) attrSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "set FILE COMPONENT NAME VALUE",
		Short:             "Set an attribute and save the file",
		Args:              cobra.ExactArgs(4),
		ValidArgsFunction: completeComponent(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := parseComponent(args[1])
			if err != nil {
				return err
			}
			return c.withDocument(cmd.Context(), args[0], true, func(d *document.Document) error {
				if err := d.Table(comp).Set(args[2], args[3]); err != nil {
					return err
				}
				printSuccess(c.Out, "%s %s=%q", comp, args[2], args[3])
				return nil
			})
		},
	}
}

func (c *CLI) attrUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "unset FILE COMPONENT NAME",
		Short:             "Unset an attribute and save the file",
		Args:              cobra.ExactArgs(3),
		ValidArgsFunction: completeComponent(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := parseComponent(args[1])
			if err != nil {
				return err
			}
			return c.withDocument(cmd.Context(), args[0], true, func(d *document.Document) error {
				removed, err := d.Table(comp).Remove(args[2])
				if err != nil {
					return err
				}
				if !removed {
					printWarning(c.Out, "%s %s is not declared", comp, args[2])
					return errUnchanged
				}
				printSuccess(c.Out, "%s %s unset", comp, args[2])
				return nil
			})
		},
	}
}

func (c *CLI) attrClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "clear FILE COMPONENT",
		Short:             "Unset every attribute of a component and save the file",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeComponent(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := parseComponent(args[1])
			if err != nil {
				return err
			}
			return c.withDocument(cmd.Context(), args[0], true, func(d *document.Document) error {
				n := d.Table(comp).Len()
				if err := d.Table(comp).Clear(); err != nil {
					return err
				}
				printSuccess(c.Out, "cleared %d %s attributes", n, comp)
				return nil
			})
		},
	}
}

// errUnchanged tells withDocument to skip saving.
var errUnchanged = fmt.Errorf("unchanged")

// withDocument opens path, runs fn and, when save is set and fn succeeds,
// writes the document back.
func (c *CLI) withDocument(ctx context.Context, path string, save bool, fn func(*document.Document) error) error {
	logger := loggerFromContext(ctx)

	eng, err := c.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	d, err := document.Open(eng, path, document.WithLogger(logger))
	if err != nil {
		return err
	}
	defer d.Dispose()

	err = fn(d)
	if err == errUnchanged {
		return nil
	}
	if err != nil || !save {
		return err
	}
	if err := d.Save(path); err != nil {
		return err
	}
	logger.Debug("saved", "path", path)
	return nil
}

func parseComponent(s string) (engine.Component, error) {
	comp, ok := engine.ParseComponent(s)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidInput, "unknown component %q (want graph, node or edge)", s)
	}
	return comp, nil
}

// completeComponent completes the component argument at position pos.
func completeComponent(pos int) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) != pos {
			return nil, cobra.ShellCompDirectiveDefault
		}
		names := make([]string, len(engine.Components))
		for i, comp := range engine.Components {
			names[i] = comp.String()
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}
