package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/errors"
)

type graphOpts struct {
	all      bool
	format   string
	output   string
	detailed bool
	noCache  bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph [ROOT]",
		Short: "Draw the dependency graph",
		Long: `Draw the dependency graph around ROOT, or every open item with --all.

Items are placed in layers: layer 0 holds items with no blockers in the
drawing, and every other item sits one layer above its deepest blocker.

Formats:
  text   grouped-by-layer tree (default)
  dot    Graphviz digraph
  json   nodes with layers, edges and the layer table
  svg    rendered with Graphviz; cached unless --no-cache`,
		Example: `  workgraph graph wg-1a2b3c4d
  workgraph graph --all --format svg -o graph.svg
  workgraph graph wg-1a2b3c4d --format dot | dot -Tpng > graph.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			if root == "" && !opts.all {
				return errors.New(errors.ErrCodeInvalidInput, "give a ROOT item or --all")
			}
			if root != "" && opts.all {
				return errors.New(errors.ErrCodeInvalidInput, "ROOT and --all are mutually exclusive")
			}

			format := opts.format
			if !cmd.Flags().Changed("format") && opts.output != "" {
				format = formatFromExt(opts.output, format)
			}
			f, err := engine.ParseFormat(format)
			if err != nil {
				return err
			}

			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				var spin *Spinner
				if f == engine.FormatSVG {
					spin = newSpinner(cmd.Context(), cmd.ErrOrStderr(), "Rendering SVG...")
					spin.Start()
				}
				res, err := e.Graph(cmd.Context(), engine.GraphRequest{
					Root:     root,
					All:      opts.all,
					Format:   f,
					Detailed: opts.detailed,
					Color:    opts.output == "",
					NoCache:  opts.noCache,
				})
				if spin != nil {
					spin.Stop()
				}
				if err != nil {
					return err
				}

				if opts.output == "" {
					_, err := cmd.OutOrStdout().Write(res.Data)
					return err
				}
				if err := writeOutput(opts.output, res.Data); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printSuccess(out, "Wrote %s graph", res.Format)
				printFile(out, opts.output)
				printStats(out, res.Nodes, res.CacheHit)
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.BoolVar(&opts.all, "all", false, "draw every open item")
	fl.StringVarP(&opts.format, "format", "f", string(engine.FormatText), "output format: text, dot, json, svg")
	fl.StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	fl.BoolVar(&opts.detailed, "detailed", false, "add status, priority and layer to DOT/SVG labels")
	fl.BoolVar(&opts.noCache, "no-cache", false, "bypass the SVG cache")

	return cmd
}

// formatFromExt picks the graph format from a file extension, keeping
// fallback for unknown extensions.
func formatFromExt(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return string(engine.FormatSVG)
	case ".dot", ".gv":
		return string(engine.FormatDOT)
	case ".json":
		return string(engine.FormatJSON)
	case ".txt":
		return string(engine.FormatText)
	}
	return fallback
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
