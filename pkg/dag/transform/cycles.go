package transform

import (
	"slices"

	"github.com/matzehuels/workgraph/pkg/dag"
)

// WouldCycle reports whether inserting the blocking edge from → to into
// edges would create a cycle.
//
// The check is a breadth-first search starting at to and following existing
// blocking edges in their stored direction (dependent → dependency). If from
// is reachable, to already depends on from, and the new edge would close the
// loop. A self-edge (from == to) is always a cycle. Non-blocking edges in
// the input are ignored.
//
// Time complexity is O(V + E).
func WouldCycle(edges []dag.Edge, from, to string) bool {
	if from == to {
		return true
	}
	return canReach(adjacency(edges), to, from)
}

// canReach reports whether target is reachable from start by following adj.
func canReach(adj map[string][]string, start, target string) bool {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if next == target {
				return true
			}
			if _, seen := visited[next]; !seen {
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return false
}

// EnumerateCycles lists the cycles present among the blocking edges.
//
// EnumerateCycles uses depth-first search with white/gray/black colouring
// over every node, not just one candidate edge. Whenever an edge points at a
// gray node (one that is still on the current DFS path), the cycle is the
// contiguous slice of the path from that node to the current node.
//
// # Output
//
// Each back-edge yields one cycle, so a node can appear in several reported
// cycles. Roots are visited in ascending ID order and children in ascending
// order, which makes the result deterministic; the order of cycles is the
// discovery order of that traversal. An empty result means the blocking
// graph is acyclic. EnumerateCycles never fails.
//
// # Stack Safety
//
// The traversal keeps its own stack of frames rather than recursing, so the
// depth of the input graph does not bound the goroutine stack.
//
// # Performance
//
// Time complexity is O(V + E) plus the size of the reported cycles.
func EnumerateCycles(edges []dag.Edge) [][]string {
	const (
		white = iota
		gray
		black
	)

	adj := adjacency(edges)
	color := make(map[string]int, len(adj))
	var cycles [][]string

	type frame struct {
		id   string
		next int
	}

	for _, root := range nodeIDs(edges) {
		if color[root] != white {
			continue
		}

		color[root] = gray
		stack := []frame{{id: root}}
		path := []string{root}
		onPath := map[string]int{root: 0}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := adj[top.id]
			if top.next < len(children) {
				child := children[top.next]
				top.next++
				switch color[child] {
				case white:
					color[child] = gray
					onPath[child] = len(path)
					path = append(path, child)
					stack = append(stack, frame{id: child})
				case gray:
					cycles = append(cycles, slices.Clone(path[onPath[child]:]))
				}
				continue
			}

			color[top.id] = black
			delete(onPath, top.id)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}
	return cycles
}

// NormalizeCycle rotates a cycle so that it starts at its smallest ID.
// Rotation-equivalent cycles normalize to the same slice.
func NormalizeCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	return slices.Concat(cycle[minIdx:], cycle[:minIdx])
}

// adjacency builds a sorted, deduplicated dependent → dependencies map over
// the blocking edges.
func adjacency(edges []dag.Edge) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		if !e.Kind.IsBlocking() {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
	}
	for id, targets := range adj {
		slices.Sort(targets)
		adj[id] = slices.Compact(targets)
	}
	return adj
}

// nodeIDs returns every endpoint of a blocking edge in ascending order.
func nodeIDs(edges []dag.Edge) []string {
	var ids []string
	for _, e := range edges {
		if e.Kind.IsBlocking() {
			ids = append(ids, e.From, e.To)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
