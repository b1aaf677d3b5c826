package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/engine"
	wgio "github.com/matzehuels/workgraph/pkg/io"
)

// importCommand creates the import command.
func (c *CLI) importCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load items and edges from a JSON or YAML snapshot",
		Long: `Load items and edges from a snapshot. Items are upserted. Edges that would
close a cycle, reference unknown items or are otherwise invalid are skipped
and reported; the rest of the import continues.

FILE may be "-" to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(cmd, args[0], format)
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				prog := newProgress(c.Logger)
				rep, err := wgio.Apply(cmd.Context(), e.Store(), snap)
				if err != nil {
					return err
				}
				prog.done("Imported snapshot", "items", rep.Items, "edges", rep.Edges)

				out := cmd.OutOrStdout()
				printSuccess(out, "Imported %d items and %d edges", rep.Items, rep.Edges)
				for _, s := range rep.Skipped {
					printWarning(out, "Skipped %s -> %s (%s): %v", s.Edge.From, s.Edge.To, s.Edge.Kind, s.Reason)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from file extension)")
	return cmd
}

func readSnapshot(cmd *cobra.Command, path, format string) (*wgio.Snapshot, error) {
	if path == "-" {
		f, err := wgio.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		return wgio.Read(cmd.InOrStdin(), f)
	}
	if format == "" {
		return wgio.ReadFile(path)
	}
	f, err := wgio.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()
	return wgio.Read(in, f)
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every item and edge as a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := wgio.FormatJSON
			switch {
			case format != "":
				parsed, err := wgio.ParseFormat(format)
				if err != nil {
					return err
				}
				f = parsed
			case output != "":
				f = wgio.FormatFromPath(output)
			}

			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				snap, err := wgio.Dump(cmd.Context(), e.Store())
				if err != nil {
					return err
				}
				if output == "" {
					return wgio.Write(snap, cmd.OutOrStdout(), f)
				}
				if err := wgio.WriteFile(snap, output, f); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printSuccess(out, "Exported %d items and %d edges", len(snap.Items), len(snap.Edges))
				printFile(out, output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from file extension, else json)")
	return cmd
}
