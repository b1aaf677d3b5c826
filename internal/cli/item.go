package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
)

var itemStatuses = []dag.Status{
	dag.StatusOpen, dag.StatusInProgress, dag.StatusBlocked, dag.StatusDeferred, dag.StatusClosed,
}

// itemCommand creates the item command group.
func (c *CLI) itemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Create, update and inspect work items",
	}

	cmd.AddCommand(c.itemAddCommand())
	cmd.AddCommand(c.itemCloseCommand())
	cmd.AddCommand(c.itemStatusCommand())
	cmd.AddCommand(c.itemShowCommand())
	cmd.AddCommand(c.itemListCommand())

	return cmd
}

type itemAddOpts struct {
	id        string
	title     string
	typ       string
	priority  int
	parent    string
	assignee  string
	labels    []string
	deferFor  time.Duration
	ephemeral bool
	asJSON    bool
}

// itemAddCommand creates the "item add" subcommand.
func (c *CLI) itemAddCommand() *cobra.Command {
	var opts itemAddOpts

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a work item",
		Long: `Create a work item. An ID is generated unless --id is given.

With --parent the item becomes a child of that epic; children are not ready
while their epic is open.`,
		Example: `  workgraph item add --title "Set up CI"
  workgraph item add --title "Login form" --parent wg-1a2b3c4d --priority 1 --label ui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.title) == "" {
				return errors.New(errors.ErrCodeInvalidInput, "--title is required")
			}
			if opts.priority < 0 || opts.priority > 4 {
				return errors.New(errors.ErrCodeInvalidInput, "--priority must be between 0 and 4")
			}
			it := &dag.Item{
				ID:        opts.id,
				Title:     opts.title,
				IssueType: dag.IssueType(opts.typ),
				Priority:  opts.priority,
				Assignee:  opts.assignee,
				Labels:    opts.labels,
				Ephemeral: opts.ephemeral,
			}
			if opts.deferFor > 0 {
				until := time.Now().Add(opts.deferFor).UTC()
				it.DeferUntil = &until
			}

			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				created, err := e.AddItem(cmd.Context(), it, opts.parent)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return writeJSON(out, created)
				}
				printSuccess(out, "Created %s", StyleHighlight.Render(created.ID))
				if opts.parent != "" {
					printDetail(out, "child of %s", opts.parent)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.id, "id", "", "item ID (generated when empty)")
	f.StringVarP(&opts.title, "title", "t", "", "item title (required)")
	f.StringVar(&opts.typ, "type", string(dag.TypeTask), "issue type (task, bug, feature, chore, epic, ...)")
	f.IntVarP(&opts.priority, "priority", "p", 2, "priority, 0 (highest) to 4")
	f.StringVar(&opts.parent, "parent", "", "parent epic ID")
	f.StringVarP(&opts.assignee, "assignee", "a", "", "assignee")
	f.StringSliceVarP(&opts.labels, "label", "l", nil, "label (repeatable)")
	f.DurationVar(&opts.deferFor, "defer", 0, "hide from ready work for this long")
	f.BoolVar(&opts.ephemeral, "ephemeral", false, "mark the item ephemeral")
	f.BoolVar(&opts.asJSON, "json", false, "print the created item as JSON")

	return cmd
}

// itemCloseCommand creates the "item close" subcommand.
func (c *CLI) itemCloseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "close ID...",
		Short: "Close work items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				for _, id := range args {
					if _, err := e.SetStatus(cmd.Context(), id, dag.StatusClosed); err != nil {
						return err
					}
					printSuccess(cmd.OutOrStdout(), "Closed %s", StyleHighlight.Render(id))
				}
				return nil
			})
		},
	}
}

// itemStatusCommand creates the "item status" subcommand.
func (c *CLI) itemStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "status ID STATUS",
		Short:     "Set an item's status",
		Args:      cobra.ExactArgs(2),
		ValidArgs: statusNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := dag.Status(args[1])
			if !slices.Contains(itemStatuses, status) {
				return errors.New(errors.ErrCodeInvalidInput,
					"unknown status %q (want %s)", args[1], strings.Join(statusNames(), ", "))
			}
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				it, err := e.SetStatus(cmd.Context(), args[0], status)
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "%s is now %s %s",
					StyleHighlight.Render(it.ID), statusIcon(it.Status), it.Status)
				return nil
			})
		},
	}
}

func statusNames() []string {
	names := make([]string, len(itemStatuses))
	for i, s := range itemStatuses {
		names[i] = string(s)
	}
	return names
}

// itemShowCommand creates the "item show" subcommand.
func (c *CLI) itemShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show an item and its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				it, err := e.Item(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				refs, err := e.Dependencies(cmd.Context(), it.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, struct {
						Item         *dag.Item     `json:"item"`
						Dependencies []dag.EdgeRef `json:"dependencies"`
					}{it, refs})
				}

				fmt.Fprintln(out, StyleTitle.Render(it.Title))
				printKeyValue(out, "ID", it.ID)
				printKeyValue(out, "Status", statusIcon(it.Status)+" "+string(it.Status))
				printKeyValue(out, "Priority", fmt.Sprintf("P%d", it.Priority))
				printKeyValue(out, "Type", string(it.IssueType))
				if it.Assignee != "" {
					printKeyValue(out, "Assignee", it.Assignee)
				}
				if len(it.Labels) > 0 {
					printKeyValue(out, "Labels", strings.Join(it.Labels, ", "))
				}
				if it.DeferUntil != nil {
					printKeyValue(out, "Deferred", it.DeferUntil.Format(time.RFC3339))
				}
				printKeyValue(out, "Created", it.CreatedAt.Format(time.RFC3339))
				printRefs(out, refs)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

// itemListCommand creates the "item list" subcommand.
func (c *CLI) itemListCommand() *cobra.Command {
	var (
		all    bool
		typ    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Long:  "List items. Closed items are hidden unless --all is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				items, err := e.Items(cmd.Context(), store.ItemFilter{
					Type:          dag.IssueType(typ),
					ExcludeClosed: !all,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, nonNilItems(items))
				}
				if len(items) == 0 {
					printInfo(out, "No items")
					return nil
				}
				for _, it := range items {
					printItem(out, it)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include closed items")
	cmd.Flags().StringVar(&typ, "type", "", "only items of this type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func nonNilItems(items []*dag.Item) []*dag.Item {
	if items == nil {
		return []*dag.Item{}
	}
	return items
}
