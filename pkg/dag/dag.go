package dag

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddItem] when the item ID is
	// empty. All items must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("item ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddItem] when an item with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate item ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From item
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source item")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To item
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target item")
)

type edgeKey struct{ from, to string }

// Graph is an in-memory snapshot of items and the blocking edges between
// them. Non-blocking edges are never stored. Parallel blocking edges
// between the same pair (for example blocks and waits-for) collapse into
// one edge carrying the kind that sorts first.
//
// The zero value is not usable - use [New] or [FromSnapshot].
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	items      map[string]*Item
	edges      []Edge
	pairs      map[edgeKey]int // index into edges
	dependsOn  map[string][]string // from -> to (what the item waits on)
	dependents map[string][]string // to -> from (what waits on the item)
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		items:      make(map[string]*Item),
		pairs:      make(map[edgeKey]int),
		dependsOn:  make(map[string][]string),
		dependents: make(map[string][]string),
	}
}

// FromSnapshot builds a Graph from a store snapshot. Nil items and items
// with empty IDs are skipped, later duplicates are ignored, non-blocking
// edges are dropped, and edges whose endpoints are not among items are
// skipped. It never fails.
func FromSnapshot(items []*Item, edges []Edge) *Graph {
	g := New()
	for _, it := range items {
		if it == nil {
			continue
		}
		_ = g.AddItem(it)
	}
	for _, e := range edges {
		_ = g.AddEdge(e)
	}
	return g
}

// AddItem adds an item to the graph. Returns ErrInvalidNodeID if the ID is
// empty, or ErrDuplicateNodeID if an item with the same ID already exists.
// The graph keeps the pointer; callers must not mutate the item afterwards.
func (g *Graph) AddItem(it *Item) error {
	if it.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.items[it.ID]; exists {
		return ErrDuplicateNodeID
	}
	g.items[it.ID] = it
	return nil
}

// AddEdge adds a blocking edge between two existing items.
// Non-blocking edges are ignored and return nil. Returns
// ErrUnknownSourceNode or ErrUnknownTargetNode for dangling endpoints.
// A second kind on an already linked pair replaces the stored kind only
// if it sorts before it.
func (g *Graph) AddEdge(e Edge) error {
	if !e.Kind.IsBlocking() {
		return nil
	}
	if _, ok := g.items[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.items[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	key := edgeKey{e.From, e.To}
	if i, seen := g.pairs[key]; seen {
		if e.Kind < g.edges[i].Kind {
			g.edges[i] = e
		}
		return nil
	}
	g.pairs[key] = len(g.edges)
	g.edges = append(g.edges, e)
	g.dependsOn[e.From] = insertSorted(g.dependsOn[e.From], e.To)
	g.dependents[e.To] = insertSorted(g.dependents[e.To], e.From)
	return nil
}

func insertSorted(list []string, id string) []string {
	i, found := slices.BinarySearch(list, id)
	if found {
		return list
	}
	return slices.Insert(list, i, id)
}

// Item returns the item with the given ID and true, or nil and false.
func (g *Graph) Item(id string) (*Item, bool) {
	it, ok := g.items[id]
	return it, ok
}

// Has reports whether the graph contains the item.
func (g *Graph) Has(id string) bool {
	_, ok := g.items[id]
	return ok
}

// Items returns all items sorted by ID.
func (g *Graph) Items() []*Item {
	out := slices.Collect(maps.Values(g.items))
	SortItems(out)
	return out
}

// IDs returns all item IDs in ascending order.
func (g *Graph) IDs() []string {
	return slices.Sorted(maps.Keys(g.items))
}

// Edges returns a copy of the blocking edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// ItemCount returns the number of items in the graph.
func (g *Graph) ItemCount() int { return len(g.items) }

// EdgeCount returns the number of linked item pairs.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// DependsOn returns the IDs the item directly depends on, sorted.
// The returned slice should not be modified.
func (g *Graph) DependsOn(id string) []string { return g.dependsOn[id] }

// Dependents returns the IDs that directly depend on the item, sorted.
// The returned slice should not be modified.
func (g *Graph) Dependents(id string) []string { return g.dependents[id] }

// Neighbors returns the union of DependsOn and Dependents, sorted and
// deduplicated. It is the undirected view used for connectivity.
func (g *Graph) Neighbors(id string) []string {
	out := slices.Concat(g.dependsOn[id], g.dependents[id])
	slices.Sort(out)
	return slices.Compact(out)
}

// OpenBlockers returns the direct dependencies of id whose status is not
// closed, sorted.
func (g *Graph) OpenBlockers(id string) []string {
	var out []string
	for _, dep := range g.dependsOn[id] {
		if it := g.items[dep]; !it.Status.IsClosed() {
			out = append(out, dep)
		}
	}
	return out
}

// Sources returns items with no blocking dependencies, sorted by ID.
func (g *Graph) Sources() []*Item {
	var out []*Item
	for _, id := range g.IDs() {
		if len(g.dependsOn[id]) == 0 {
			out = append(out, g.items[id])
		}
	}
	return out
}

// Subgraph returns a new Graph restricted to the given IDs. Unknown IDs are
// skipped; only blocking edges with both endpoints kept survive.
func (g *Graph) Subgraph(ids []string) *Graph {
	sub := New()
	for _, id := range ids {
		if it, ok := g.items[id]; ok {
			_ = sub.AddItem(it)
		}
	}
	for _, e := range g.edges {
		_ = sub.AddEdge(e)
	}
	return sub
}

// IDSet builds a membership set from a slice of IDs.
func IDSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// ItemIDs extracts the ID from each item, preserving order.
func ItemIDs(items []*Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
