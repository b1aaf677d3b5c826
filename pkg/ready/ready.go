package ready

import (
	"cmp"
	"slices"
	"time"

	"github.com/matzehuels/workgraph/pkg/dag"
)

// Resolve returns the ready items among items, filtered and ordered by f.
//
// Only blocking edges are consulted; other edges in the input are ignored.
// The returned items are the same pointers passed in.
func Resolve(items []*dag.Item, edges []dag.Edge, f Filter, now time.Time) []*dag.Item {
	byID := index(items)
	blockers := blockersOf(edges)

	var out []*dag.Item
	for _, it := range items {
		if it == nil || !actionable(it, f, now) {
			continue
		}
		if len(unresolved(it.ID, blockers, byID)) > 0 {
			continue
		}
		if !f.matches(it) {
			continue
		}
		out = append(out, it)
	}

	sortItems(out, f.Sort)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// BlockedItem is a non-closed item with at least one unresolved blocker.
type BlockedItem struct {
	Item      *dag.Item `json:"item"`
	BlockedBy []string  `json:"blocked_by"`
}

// Blocked returns every non-closed, non-template item that has unresolved
// blocking dependencies, sorted by priority then age. BlockedBy lists the
// blocker IDs in ascending order, including IDs missing from items.
func Blocked(items []*dag.Item, edges []dag.Edge) []BlockedItem {
	byID := index(items)
	blockers := blockersOf(edges)

	var blockedItems []*dag.Item
	open := make(map[string][]string)
	for _, it := range items {
		if it == nil || it.Status.IsClosed() || it.IsTemplate {
			continue
		}
		if ids := unresolved(it.ID, blockers, byID); len(ids) > 0 {
			blockedItems = append(blockedItems, it)
			open[it.ID] = ids
		}
	}

	sortItems(blockedItems, SortPriority)
	out := make([]BlockedItem, len(blockedItems))
	for i, it := range blockedItems {
		out[i] = BlockedItem{Item: it, BlockedBy: open[it.ID]}
	}
	return out
}

// actionable checks the per-item readiness rules that do not involve edges.
func actionable(it *dag.Item, f Filter, now time.Time) bool {
	if it.Status != dag.StatusOpen {
		return false
	}
	if it.IsTemplate || it.Pinned {
		return false
	}
	if f.excluded(it.IssueType) {
		return false
	}
	if it.Ephemeral && !f.IncludeEphemeral {
		return false
	}
	if !f.IncludeDeferred && it.IsDeferred(now) {
		return false
	}
	return true
}

func index(items []*dag.Item) map[string]*dag.Item {
	m := make(map[string]*dag.Item, len(items))
	for _, it := range items {
		if it != nil {
			m[it.ID] = it
		}
	}
	return m
}

// blockersOf maps each item to the targets of its blocking edges.
func blockersOf(edges []dag.Edge) map[string][]string {
	m := make(map[string][]string)
	for _, e := range edges {
		if e.Kind.IsBlocking() {
			m[e.From] = append(m[e.From], e.To)
		}
	}
	return m
}

// unresolved returns the sorted, distinct blockers of id that are not
// closed. Unknown blockers count as unresolved.
func unresolved(id string, blockers map[string][]string, byID map[string]*dag.Item) []string {
	var out []string
	for _, b := range blockers[id] {
		if it, ok := byID[b]; ok && it.Status.IsClosed() {
			continue
		}
		out = append(out, b)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func sortItems(items []*dag.Item, policy SortPolicy) {
	slices.SortStableFunc(items, func(a, b *dag.Item) int {
		if policy != SortOldest {
			if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
				return c
			}
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
