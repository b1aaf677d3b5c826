package swarm_test

import (
	"fmt"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/swarm"
)

func ExampleAnalyze() {
	epic := &dag.Item{ID: "auth", Title: "Login flow", IssueType: dag.TypeEpic}
	children := []*dag.Item{
		{ID: "schema", Title: "User table", Status: dag.StatusOpen},
		{ID: "api", Title: "Login endpoint", Status: dag.StatusOpen},
		{ID: "ui", Title: "Login form", Status: dag.StatusOpen},
	}
	edges := []dag.Edge{
		{From: "schema", To: "auth", Kind: dag.KindParentChild},
		{From: "api", To: "auth", Kind: dag.KindParentChild},
		{From: "ui", To: "auth", Kind: dag.KindParentChild},
		{From: "api", To: "schema", Kind: dag.KindBlocks},
	}

	a := swarm.Analyze(epic, children, edges)
	for _, w := range a.Waves {
		for _, it := range w.Items {
			fmt.Println(w.Index, it.ID, it.Needs)
		}
	}
	fmt.Println("parallelism:", a.MaxParallelism, "waves:", a.CriticalPathLength, "swarmable:", a.Swarmable)
	// Output:
	// 0 schema []
	// 0 ui []
	// 1 api [schema]
	// parallelism: 2 waves: 2 swarmable: true
}
