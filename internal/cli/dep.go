package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/engine"
)

// depCommand creates the dep command group.
func (c *CLI) depCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage dependency edges",
		Long: `Manage dependency edges. "dep add A B" records that A depends on B.

Blocking kinds (blocks, parent-child, conditional-blocks, waits-for) are
refused when they would close a cycle. Other kinds (related,
discovered-from, or any custom kind) are informational.`,
	}

	cmd.AddCommand(c.depAddCommand())
	cmd.AddCommand(c.depRemoveCommand())
	cmd.AddCommand(c.depListCommand())

	return cmd
}

// depAddCommand creates the "dep add" subcommand.
func (c *CLI) depAddCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:     "add FROM TO",
		Short:   "Record that FROM depends on TO",
		Example: "  workgraph dep add wg-login wg-schema\n  workgraph dep add wg-docs wg-api --kind related",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edge := dag.Edge{
				From:      args[0],
				To:        args[1],
				Kind:      dag.ParseKind(kind),
				CreatedBy: os.Getenv("USER"),
			}
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				if err := e.AddDependency(cmd.Context(), edge); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "%s %s %s",
					StyleHighlight.Render(edge.From), StyleDim.Render(string(edge.Kind)+" "+iconArrow),
					StyleHighlight.Render(edge.To))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(dag.KindBlocks), "edge kind")
	return cmd
}

// depRemoveCommand creates the "dep remove" subcommand.
func (c *CLI) depRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove FROM TO",
		Aliases: []string{"rm"},
		Short:   "Remove every edge from FROM to TO",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				if err := e.RemoveDependency(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Removed %s %s %s",
					StyleHighlight.Render(args[0]), StyleDim.Render(iconArrow), StyleHighlight.Render(args[1]))
				return nil
			})
		},
	}
}

// depListCommand creates the "dep list" subcommand.
func (c *CLI) depListCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list ID",
		Short: "List the edges touching an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				refs, err := e.Dependencies(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if refs == nil {
						refs = []dag.EdgeRef{}
					}
					return writeJSON(out, refs)
				}
				printRefs(out, refs)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

// printRefs prints outgoing edges as "depends on" and incoming edges as
// "depended on by".
func printRefs(w io.Writer, refs []dag.EdgeRef) {
	var out, in []dag.EdgeRef
	for _, r := range refs {
		if r.Direction == dag.Outgoing {
			out = append(out, r)
		} else {
			in = append(in, r)
		}
	}
	section := func(title string, rs []dag.EdgeRef) {
		if len(rs) == 0 {
			return
		}
		fmt.Fprintln(w, StyleDim.Render(title))
		for _, r := range rs {
			fmt.Fprintf(w, "  %s %s\n", StyleHighlight.Render(r.Peer), StyleDim.Render("("+string(r.Kind)+")"))
		}
	}
	if len(refs) == 0 {
		printInfo(w, "No dependencies")
		return
	}
	section("Depends on", out)
	section("Depended on by", in)
}
