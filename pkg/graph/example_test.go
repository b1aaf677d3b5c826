package graph_test

import (
	"fmt"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/graph"
	"github.com/matzehuels/workgraph/pkg/visual"
)

func ExampleFromSubgraph() {
	items := []*dag.Item{
		{ID: "R", Title: "Release", Status: dag.StatusOpen},
		{ID: "D", Title: "Docs", Status: dag.StatusOpen},
	}
	edges := []dag.Edge{{From: "R", To: "D", Kind: dag.KindBlocks}}

	sub, _ := visual.BuildFromRoot("R", items, edges)
	g := graph.FromSubgraph(sub)
	fmt.Println(g.Layers)
	for _, n := range g.Nodes {
		fmt.Println(n.ID, n.Layer, n.Needs)
	}
	// Output:
	// [[D] [R]]
	// D 0 []
	// R 1 [D]
}
