package transform

import (
	"maps"
	"slices"

	"github.com/matzehuels/workgraph/pkg/dag"
)

// Layering is the result of [AssignLayers].
type Layering struct {
	// Layers maps every node ID of the graph to its layer.
	Layers map[string]int

	// Overflow lists, in ascending order, the nodes that could not be
	// resolved within the iteration cap. They are all placed on MaxLayer.
	// Empty when the graph is acyclic.
	Overflow []string

	// MaxLayer is the deepest layer in use, or -1 for an empty graph.
	MaxLayer int
}

// ByLayer groups node IDs by layer. Index i holds the IDs on layer i in
// ascending order.
func (l Layering) ByLayer() [][]string {
	if l.MaxLayer < 0 {
		return nil
	}
	out := make([][]string, l.MaxLayer+1)
	for _, id := range slices.Sorted(maps.Keys(l.Layers)) {
		layer := l.Layers[id]
		out[layer] = append(out[layer], id)
	}
	return out
}

// AssignLayers assigns every node of g to a layer based on its blocking
// dependencies inside g.
//
// A node with no dependency in the graph sits on layer 0. Any other node
// sits on 1 + the maximum layer of its direct dependencies, so dependencies
// always appear on shallower layers than the items they unblock.
//
// # Algorithm
//
// AssignLayers runs a fixed-point iteration over the nodes in ascending ID
// order:
//  1. Unassigned nodes with no dependencies get layer 0
//  2. Unassigned nodes whose dependencies are all assigned get max+1
//  3. Repeat until a full pass changes nothing or node_count+1 passes ran
//
// # Cycles
//
// Nodes on (or downstream of) a cycle never see all of their dependencies
// assigned. When the loop stops, such nodes are placed together on one
// overflow layer numbered one past the deepest assigned layer, so the
// algorithm terminates on malformed input. This is not a minimal layering
// of the cyclic part; it is kept as-is because rendering order depends on
// it.
//
// # Performance
//
// Time complexity is O(V · (V + E)) in the worst case.
func AssignLayers(g *dag.Graph) Layering {
	ids := g.IDs()
	layers := make(map[string]int, len(ids))

	for iter := 0; iter < len(ids)+1; iter++ {
		changed := false
		for _, id := range ids {
			if _, done := layers[id]; done {
				continue
			}
			deps := g.DependsOn(id)
			if len(deps) == 0 {
				layers[id] = 0
				changed = true
				continue
			}
			maxDep, ready := -1, true
			for _, dep := range deps {
				l, ok := layers[dep]
				if !ok {
					ready = false
					break
				}
				maxDep = max(maxDep, l)
			}
			if ready {
				layers[id] = maxDep + 1
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	maxLayer := -1
	for _, l := range layers {
		maxLayer = max(maxLayer, l)
	}

	var overflow []string
	for _, id := range ids {
		if _, done := layers[id]; !done {
			overflow = append(overflow, id)
		}
	}
	if len(overflow) > 0 {
		maxLayer++
		for _, id := range overflow {
			layers[id] = maxLayer
		}
	}

	return Layering{Layers: layers, Overflow: overflow, MaxLayer: maxLayer}
}
