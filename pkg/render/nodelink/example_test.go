package nodelink_test

import (
	"fmt"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/render/nodelink"
	"github.com/matzehuels/workgraph/pkg/visual"
)

func ExampleToDOT() {
	items := []*dag.Item{{ID: "R", Status: dag.StatusOpen}, {ID: "D", Status: dag.StatusOpen}}
	edges := []dag.Edge{{From: "R", To: "D", Kind: dag.KindBlocks}}

	sub, _ := visual.BuildFromRoot("R", items, edges)
	fmt.Print(nodelink.ToDOT(sub, nodelink.Options{}))
	// Output:
	// digraph G {
	//   rankdir=TB;
	//   bgcolor="transparent";
	//   node [shape=box, style="rounded,filled", fillcolor=white, fontsize=14, margin="0.2,0.1"];
	//   ranksep=0.5;
	//   nodesep=0.3;
	//
	//   "D" [label="D"];
	//   "R" [label="R", penwidth=2];
	//
	//   "D" -> "R";
	// }
}
