// Package nodelink renders work graphs as node-link diagrams.
//
// # Usage
//
// Convert a sub-graph to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(sub, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [ToDOTAll] draws every component of an all-open build into one digraph,
// one cluster per component.
//
// # DOT Format
//
// Edges are drawn from dependency to dependent, the reverse of storage
// direction, so arrows point the way work unblocks. Items on the same
// layer share a rank. Node fill encodes status; dashed edges mark the
// blocking kinds other than plain blocks.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is needed.
package nodelink
