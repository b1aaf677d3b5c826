// Package render groups the renderers for visualizer sub-graphs.
//
// Every renderer is a pure function over the same [visual.Subgraph] (or
// [visual.Result] for the all-open view), so the formats never disagree:
//
//   - [text]: compact grouped-by-layer tree for terminals
//   - [nodelink]: Graphviz DOT digraph, and SVG via go-graphviz
//
// The structured JSON form lives in pkg/graph.
//
//	sub, _ := visual.BuildFromRoot("R", items, edges)
//	fmt.Print(text.Render(sub, text.Options{}))
//	dot := nodelink.ToDOT(sub, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [visual.Subgraph]: github.com/matzehuels/workgraph/pkg/visual
// [visual.Result]: github.com/matzehuels/workgraph/pkg/visual
// [text]: github.com/matzehuels/workgraph/pkg/render/text
// [nodelink]: github.com/matzehuels/workgraph/pkg/render/nodelink
package render
