// Package graph provides the structured, serializable form of a visualizer
// sub-graph.
//
// This is the third rendering of a build pass next to the text tree and the
// DOT digraph. It is used for `graph --format json`, API responses and the
// BSON documents stored alongside the mongo backend.
//
// # Format
//
//	{
//	  "root": "R",
//	  "nodes":  [{"id": "D", "layer": 0, ...}, {"id": "R", "layer": 1, "needs": ["D"]}],
//	  "edges":  [{"from": "R", "to": "D", "kind": "blocks"}],
//	  "layers": [["D"], ["R"]]
//	}
//
// Edges keep storage direction (From depends on To). Nodes are sorted by
// ID; each layer lists its IDs in ascending order.
//
// Use [FromSubgraph] for one component and [FromResult] for the all-open
// view, then [Write] or [Marshal] to encode.
package graph
