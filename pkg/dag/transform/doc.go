// Package transform provides the graph algorithms that sit directly on the
// blocking-edge graph: cycle detection and layer assignment.
//
// # Cycle Detection
//
// [WouldCycle] answers the insertion-time question: would adding the
// blocking edge from → to close a cycle? It runs a reachability search
// from to over existing blocking edges and reports whether from is
// reachable. Stores call it while holding their write lock, so the
// check and the insert are atomic with respect to other writers.
//
// [EnumerateCycles] is the diagnostic scan. Bulk imports and legacy data
// can contain cycles that never went through the insertion path; this
// function reports every back-edge cycle found by a three-colour
// depth-first search instead of failing. It uses an explicit stack, so
// adversarial or very deep graphs cannot overflow the goroutine stack.
//
// # Layer Assignment
//
// [AssignLayers] places every node of a sub-graph on a layer: 0 for nodes
// with no blocking dependency inside the graph, otherwise one more than
// the deepest dependency. The fixed-point iteration is capped at
// node_count+1 rounds; nodes still unassigned at that point sit on a cycle
// and are placed together in one overflow layer below everything else.
//
// # Usage
//
//	if transform.WouldCycle(edges, "api", "schema") {
//	    return errors.New(errors.ErrCodeCycleDetected, "...")
//	}
//
//	cycles := transform.EnumerateCycles(edges)
//
//	layering := transform.AssignLayers(g)
//	for layer, ids := range layering.ByLayer() { ... }
package transform
