// Package dag provides the work-item graph model used by every workgraph
// algorithm.
//
// # Overview
//
// Items (tasks, bugs, epics, gates, ...) are connected by typed edges. An
// edge From → To means "From depends on To": From cannot be considered
// ready or complete while To is not closed. Edge kinds split into two
// families:
//
//   - Blocking kinds ([KindBlocks], [KindParentChild],
//     [KindConditionalBlocks], [KindWaitsFor]) participate in cycle checks,
//     ready-work computation, wave scheduling and visualization.
//   - Every other kind ([KindRelated], [KindDiscoveredFrom], and any string
//     the store hands back) is informational and ignored by the algorithms.
//
// Unknown kinds fail open to "informational": [Kind.IsBlocking] is the one
// predicate the algorithms consult, and it only recognizes the closed set.
//
// # Graph
//
// [Graph] is an in-memory snapshot: items keyed by id plus adjacency lists
// over blocking edges only. Build one with [FromSnapshot] from whatever the
// store returned; dangling edge endpoints are skipped rather than treated
// as fatal, and parallel edges collapse into one adjacency entry.
//
//	g := dag.FromSnapshot(items, edges)
//	for _, dep := range g.DependsOn("wg-7") {
//	    ...
//	}
//
// Adjacency lists are kept sorted so that algorithms built on top of the
// graph produce deterministic output.
//
// # Concurrency
//
// Graph instances are not safe for concurrent mutation. They are built once
// per operation from a store snapshot and then only read.
//
// # Related Packages
//
// The [transform] subpackage provides the cycle detector and the layer
// assignment used by the visualizer.
//
// [transform]: github.com/matzehuels/workgraph/pkg/dag/transform
package dag
