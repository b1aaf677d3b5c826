package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/ready"
)

type readyOpts struct {
	assignee         string
	unassigned       bool
	labels           []string
	labelsAny        []string
	typ              string
	priority         int
	sort             string
	limit            int
	includeDeferred  bool
	includeEphemeral bool
	asJSON           bool
	pick             bool
}

// filter builds the resolver filter. Flags the user did not set fall back
// to the configured defaults.
func (o readyOpts) filter(cmd *cobra.Command, c *CLI) (ready.Filter, error) {
	cfg := c.config()
	f := ready.Filter{
		Assignee:         o.assignee,
		Unassigned:       o.unassigned,
		Labels:           o.labels,
		LabelsAny:        o.labelsAny,
		Type:             dag.IssueType(o.typ),
		IncludeDeferred:  o.includeDeferred,
		IncludeEphemeral: o.includeEphemeral,
		Sort:             cfg.SortPolicy(),
		Limit:            cfg.Ready.Limit,
	}
	if cmd.Flags().Changed("priority") {
		p := o.priority
		f.Priority = &p
	}
	if cmd.Flags().Changed("sort") {
		policy, err := ready.ParseSortPolicy(o.sort)
		if err != nil {
			return f, err
		}
		f.Sort = policy
	}
	if cmd.Flags().Changed("limit") {
		f.Limit = o.limit
	}
	return f, nil
}

// readyCommand creates the ready command.
func (c *CLI) readyCommand() *cobra.Command {
	var opts readyOpts

	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List work that can be started now",
		Long: `List open items whose blocking dependencies are all closed.

Deferred, ephemeral, template and workflow-internal items (gates, molecules,
messages, merge requests) are hidden by default. --pick opens an interactive
list; the chosen item is marked in_progress.`,
		Example: `  workgraph ready
  workgraph ready --unassigned --label backend --limit 5
  workgraph ready --sort oldest --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.filter(cmd, c)
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				prog := newProgress(c.Logger)
				items, err := e.ReadyWork(cmd.Context(), f)
				if err != nil {
					return err
				}
				prog.done("Computed ready work", "count", len(items))

				out := cmd.OutOrStdout()
				switch {
				case opts.pick:
					return c.pickReady(cmd, e, items)
				case opts.asJSON:
					return writeJSON(out, nonNilItems(items))
				}
				if len(items) == 0 {
					printInfo(out, "No ready work")
					return nil
				}
				fmt.Fprintln(out, StyleTitle.Render(fmt.Sprintf("Ready work (%d)", len(items))))
				for _, it := range items {
					printItem(out, it)
				}
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&opts.assignee, "assignee", "a", "", "only items assigned to this user")
	fl.BoolVar(&opts.unassigned, "unassigned", false, "only items with no assignee")
	fl.StringSliceVarP(&opts.labels, "label", "l", nil, "require every label (repeatable)")
	fl.StringSliceVar(&opts.labelsAny, "label-any", nil, "require at least one of these labels")
	fl.StringVar(&opts.typ, "type", "", "only items of this type")
	fl.IntVarP(&opts.priority, "priority", "p", 0, "only items with this priority")
	fl.StringVarP(&opts.sort, "sort", "s", string(ready.SortPriority), "sort policy: priority or oldest")
	fl.IntVarP(&opts.limit, "limit", "n", 0, "maximum number of items (0 = unlimited)")
	fl.BoolVar(&opts.includeDeferred, "include-deferred", false, "include items deferred into the future")
	fl.BoolVar(&opts.includeEphemeral, "include-ephemeral", false, "include ephemeral items")
	fl.BoolVar(&opts.asJSON, "json", false, "output JSON")
	fl.BoolVar(&opts.pick, "pick", false, "choose an item interactively and start it")
	cmd.MarkFlagsMutuallyExclusive("json", "pick")
	cmd.MarkFlagsMutuallyExclusive("assignee", "unassigned")

	return cmd
}

// blockedCommand creates the blocked command.
func (c *CLI) blockedCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "blocked",
		Short: "List items waiting on unresolved blockers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				blocked, err := e.Blocked(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if blocked == nil {
						blocked = []ready.BlockedItem{}
					}
					return writeJSON(out, blocked)
				}
				if len(blocked) == 0 {
					printInfo(out, "Nothing is blocked")
					return nil
				}
				fmt.Fprintln(out, StyleTitle.Render(fmt.Sprintf("Blocked (%d)", len(blocked))))
				for _, b := range blocked {
					printItem(out, b.Item)
					printDetail(out, "waiting on %s", joinIDs(b.BlockedBy))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

// cyclesCommand creates the cycles command.
func (c *CLI) cyclesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Report cycles among blocking dependencies",
		Long: `Report cycles among blocking dependencies. Cycles cannot be created through
workgraph itself but may arrive through imports or direct store edits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				cycles, err := e.DetectCycles(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if cycles == nil {
						cycles = [][]string{}
					}
					return writeJSON(out, cycles)
				}
				if len(cycles) == 0 {
					printSuccess(out, "No dependency cycles")
					return nil
				}
				printWarning(out, "%d dependency cycle(s)", len(cycles))
				for _, cyc := range cycles {
					path := append(cyc[:len(cyc):len(cyc)], cyc[0])
					line := ""
					for i, id := range path {
						if i > 0 {
							line += " " + StyleDim.Render(iconArrow) + " "
						}
						line += StyleHighlight.Render(id)
					}
					fmt.Fprintln(out, "  "+line)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
