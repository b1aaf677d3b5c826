package dag_test

import (
	"fmt"

	"github.com/matzehuels/workgraph/pkg/dag"
)

func ExampleFromSnapshot() {
	// api depends on schema; docs is only related to api
	items := []*dag.Item{
		{ID: "api", Status: dag.StatusOpen},
		{ID: "schema", Status: dag.StatusOpen},
		{ID: "docs", Status: dag.StatusOpen},
	}
	edges := []dag.Edge{
		{From: "api", To: "schema", Kind: dag.KindBlocks},
		{From: "docs", To: "api", Kind: dag.KindRelated},
		{From: "api", To: "ghost", Kind: dag.KindBlocks}, // dangling, skipped
	}

	g := dag.FromSnapshot(items, edges)
	fmt.Println("Items:", g.ItemCount())
	fmt.Println("Blocking edges:", g.EdgeCount())
	fmt.Println("api depends on:", g.DependsOn("api"))
	fmt.Println("schema unblocks:", g.Dependents("schema"))
	// Output:
	// Items: 3
	// Blocking edges: 1
	// api depends on: [schema]
	// schema unblocks: [api]
}

func ExampleKind_IsBlocking() {
	for _, k := range []dag.Kind{dag.KindBlocks, dag.KindWaitsFor, dag.KindRelated, dag.ParseKind("Supersedes")} {
		fmt.Printf("%s: %v\n", k, k.IsBlocking())
	}
	// Output:
	// blocks: true
	// waits-for: true
	// related: false
	// supersedes: false
}
