package ready_test

import (
	"fmt"
	"time"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/ready"
)

func ExampleResolve() {
	now := time.Now()
	items := []*dag.Item{
		{ID: "api", Status: dag.StatusOpen, Priority: 1, IssueType: dag.TypeTask},
		{ID: "schema", Status: dag.StatusOpen, Priority: 2, IssueType: dag.TypeTask},
		{ID: "docs", Status: dag.StatusOpen, Priority: 0, IssueType: dag.TypeTask},
		{ID: "release", Status: dag.StatusOpen, IssueType: dag.TypeGate},
	}
	edges := []dag.Edge{{From: "api", To: "schema", Kind: dag.KindBlocks}}

	for _, it := range ready.Resolve(items, edges, ready.Filter{}, now) {
		fmt.Println(it.ID, it.Priority)
	}
	// Output:
	// docs 0
	// schema 2
}
