package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/swarm"
)

// swarmCommand creates the swarm command group.
func (c *CLI) swarmCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swarm",
		Short: "Split an epic's children into parallel waves",
		Long: `Split an epic's children into waves. Every child in a wave depends only on
children in earlier waves, so a wave can be worked in parallel once the
waves before it are closed.`,
	}

	cmd.AddCommand(c.swarmValidateCommand())
	cmd.AddCommand(c.swarmStatusCommand())

	return cmd
}

// swarmValidateCommand creates the "swarm validate" subcommand.
func (c *CLI) swarmValidateCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate EPIC",
		Short: "Check that an epic can be worked in waves",
		Long: `Check that an epic can be worked in waves and print the wave plan.

Exits with status 2 when the epic is not swarmable, for example because its
children depend on each other in a cycle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				a, err := e.SwarmValidate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if err := writeJSON(out, a); err != nil {
						return err
					}
				} else {
					printAnalysis(out, a)
				}
				if !a.Swarmable {
					return fmt.Errorf("%s: %w", a.EpicID, ErrNotSwarmable)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

// swarmStatusCommand creates the "swarm status" subcommand.
func (c *CLI) swarmStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status EPIC",
		Short: "Show per-wave progress of an epic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				p, err := e.SwarmStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, p)
				}
				printProgress(out, p)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func printAnalysis(w io.Writer, a *swarm.Analysis) {
	fmt.Fprintln(w, StyleTitle.Render(a.EpicID+" "+a.EpicTitle))
	if a.ChildCount() == 0 {
		printInfo(w, "No children")
	}
	for _, wave := range a.Waves {
		fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf("Wave %d (%d)", wave.Index, len(wave.Items))))
		for _, it := range wave.Items {
			line := fmt.Sprintf("  %s %s %s", statusIcon(it.Status), StyleHighlight.Render(it.ID), it.Title)
			if len(it.Needs) > 0 {
				line += " " + StyleDim.Render("needs "+strings.Join(it.Needs, ", "))
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(a.Unresolved) > 0 {
		printWarning(w, "Unresolved: %s", joinIDs(a.Unresolved))
	}

	printKeyValue(w, "Waves", fmt.Sprint(a.CriticalPathLength))
	printKeyValue(w, "Parallelism", fmt.Sprint(a.MaxParallelism))
	for _, msg := range a.Warnings {
		printWarning(w, "%s", msg)
	}
	for _, msg := range a.Errors {
		printError(w, "%s", msg)
	}
	if a.Swarmable {
		printSuccess(w, "Swarmable")
	} else {
		printError(w, "Not swarmable")
	}
}

func printProgress(w io.Writer, p *swarm.Progress) {
	fmt.Fprintln(w, StyleTitle.Render(p.EpicID+" "+p.EpicTitle))
	for _, wave := range p.Waves {
		mark := StyleDim.Render(iconInfo)
		if wave.Done() {
			mark = StyleSuccess.Render(iconSuccess)
		}
		fmt.Fprintf(w, "%s %s\n", mark,
			StyleDim.Render(fmt.Sprintf("Wave %d  %d/%d", wave.Index, wave.Completed, wave.Total)))
		for _, it := range wave.Items {
			fmt.Fprintf(w, "  %s %s %s\n", statusIcon(it.Status), StyleHighlight.Render(it.ID), it.Title)
		}
	}
	printKeyValue(w, "Complete", fmt.Sprintf("%d/%d (%.0f%%)", p.Completed, p.Total, p.PercentComplete))
	printKeyValue(w, "Ready", fmt.Sprint(p.Ready))
	printKeyValue(w, "In progress", fmt.Sprint(p.InProgress))
	printKeyValue(w, "Blocked", fmt.Sprint(p.Blocked))
}
