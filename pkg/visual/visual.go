package visual

import (
	"cmp"
	"maps"
	"slices"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/dag/transform"
	"github.com/matzehuels/workgraph/pkg/errors"
)

// Subgraph is one connected piece of the blocking graph plus its layering.
type Subgraph struct {
	// Root is the starting item for single-root builds, empty otherwise.
	Root     string
	Graph    *dag.Graph
	Layering transform.Layering
}

// Layer returns the layer of id.
func (s *Subgraph) Layer(id string) int { return s.Layering.Layers[id] }

// Result is the output of [BuildAll].
type Result struct {
	// Components are ordered largest first; ties go to the component with
	// the smallest item ID.
	Components []*Subgraph
	// Isolated counts open items with no blocking edge to any loaded item.
	Isolated int
	// IsolatedIDs lists those items in ascending order.
	IsolatedIDs []string
}

// BuildFromRoot returns the weakly connected sub-graph around rootID,
// discovered by breadth-first search over blocking edges in both
// directions. Edges whose endpoints are missing from items are skipped.
// It fails with NOT_FOUND when rootID is not among items.
func BuildFromRoot(rootID string, items []*dag.Item, edges []dag.Edge) (*Subgraph, error) {
	full := dag.FromSnapshot(items, edges)
	if !full.Has(rootID) {
		return nil, errors.NotFound(rootID)
	}
	ids := component(full, rootID, nil)
	return newSubgraph(rootID, full.Subgraph(ids)), nil
}

// BuildAll returns every connected component of the open-item graph.
//
// Loaded items are those that are not closed, not templates and not gates,
// plus any item they reference through a blocking edge even when that item
// would be filtered out, so dependency chains stay complete.
func BuildAll(items []*dag.Item, edges []dag.Edge) *Result {
	full := dag.FromSnapshot(items, edges)

	loaded := make(map[string]struct{})
	for _, it := range full.Items() {
		if visible(it) {
			loaded[it.ID] = struct{}{}
		}
	}
	for id := range maps.Clone(loaded) {
		for _, peer := range full.Neighbors(id) {
			loaded[peer] = struct{}{}
		}
	}
	g := full.Subgraph(sortedIDs(loaded))

	res := &Result{}
	seen := make(map[string]struct{}, g.ItemCount())
	var comps [][]string
	for _, id := range g.IDs() {
		if _, ok := seen[id]; ok {
			continue
		}
		comps = append(comps, component(g, id, seen))
	}

	slices.SortStableFunc(comps, func(a, b []string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a[0], b[0])
	})

	for _, ids := range comps {
		if len(ids) == 1 {
			res.Isolated++
			res.IsolatedIDs = append(res.IsolatedIDs, ids[0])
			continue
		}
		res.Components = append(res.Components, newSubgraph("", g.Subgraph(ids)))
	}
	slices.Sort(res.IsolatedIDs)
	return res
}

func visible(it *dag.Item) bool {
	return !it.Status.IsClosed() && !it.IsTemplate && it.IssueType != dag.TypeGate
}

// component runs an undirected BFS from start and returns the visited IDs
// sorted. Visited IDs are also recorded in seen when it is non-nil.
func component(g *dag.Graph, start string, seen map[string]struct{}) []string {
	if seen == nil {
		seen = make(map[string]struct{})
	}
	seen[start] = struct{}{}
	out := []string{start}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.Neighbors(current) {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	slices.Sort(out)
	return out
}

func newSubgraph(root string, g *dag.Graph) *Subgraph {
	return &Subgraph{Root: root, Graph: g, Layering: transform.AssignLayers(g)}
}

func sortedIDs(m map[string]struct{}) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
