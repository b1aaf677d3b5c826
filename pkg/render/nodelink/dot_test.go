package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/visual"
)

func item(id string, status dag.Status) *dag.Item {
	return &dag.Item{ID: id, Title: "T " + id, Status: status, Priority: 2}
}

func TestToDOT_ScenarioD(t *testing.T) {
	sub, err := visual.BuildFromRoot("R",
		[]*dag.Item{item("R", dag.StatusOpen), item("D", dag.StatusOpen)},
		[]dag.Edge{{From: "R", To: "D", Kind: dag.KindBlocks}})
	if err != nil {
		t.Fatal(err)
	}

	dot := ToDOT(sub, Options{})

	if !strings.Contains(dot, "digraph G") {
		t.Error("ToDOT() output missing digraph declaration")
	}
	if !strings.Contains(dot, `"D" -> "R";`) {
		t.Errorf("ToDOT() missing dependency -> dependent edge:\n%s", dot)
	}
	if strings.Contains(dot, `"R" -> "D"`) {
		t.Errorf("ToDOT() drew edge in storage direction:\n%s", dot)
	}
	if !strings.Contains(dot, "penwidth=2") {
		t.Error("ToDOT() root not highlighted")
	}
}

func TestToDOT_ParallelKindsDrawnOnce(t *testing.T) {
	sub, err := visual.BuildFromRoot("R",
		[]*dag.Item{item("R", dag.StatusOpen), item("D", dag.StatusOpen)},
		[]dag.Edge{
			{From: "R", To: "D", Kind: dag.KindBlocks},
			{From: "R", To: "D", Kind: dag.KindWaitsFor},
		})
	if err != nil {
		t.Fatal(err)
	}
	dot := ToDOT(sub, Options{})
	if n := strings.Count(dot, `"D" -> "R"`); n != 1 {
		t.Errorf("edge D -> R drawn %d times, want 1:\n%s", n, dot)
	}
}

func TestToDOT_KindsAndStatus(t *testing.T) {
	sub, _ := visual.BuildFromRoot("a",
		[]*dag.Item{item("a", dag.StatusOpen), item("b", dag.StatusClosed), item("c", dag.StatusInProgress)},
		[]dag.Edge{
			{From: "a", To: "b", Kind: dag.KindWaitsFor},
			{From: "a", To: "c", Kind: dag.KindBlocks},
		})

	dot := ToDOT(sub, Options{Detailed: true})

	for _, want := range []string{
		`"b" -> "a" [style=dashed, label="waits-for"];`,
		`"c" -> "a";`,
		"fillcolor=honeydew",
		"fillcolor=lightyellow",
		`{ rank=same; "b"; "c"; }`,
		`status: in_progress`,
		`layer: 1`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTAll(t *testing.T) {
	res := visual.BuildAll(
		[]*dag.Item{item("a", dag.StatusOpen), item("b", dag.StatusOpen), item("c", dag.StatusOpen), item("d", dag.StatusOpen)},
		[]dag.Edge{{From: "a", To: "b", Kind: dag.KindBlocks}})

	dot := ToDOTAll(res, Options{})
	if !strings.Contains(dot, "subgraph cluster_0") {
		t.Errorf("ToDOTAll() missing cluster:\n%s", dot)
	}
	if strings.Contains(dot, "cluster_1") {
		t.Errorf("ToDOTAll() drew isolated items:\n%s", dot)
	}
	if !strings.Contains(dot, "2 isolated item(s) not shown") {
		t.Errorf("ToDOTAll() missing isolated count:\n%s", dot)
	}
}

func TestFmtLabel(t *testing.T) {
	it := item("x", dag.StatusOpen)
	if got := fmtLabel(it, 3, false); got != "x\nT x" {
		t.Errorf("fmtLabel(simple) = %q", got)
	}
	if got := fmtLabel(it, 3, true); !strings.HasSuffix(got, "layer: 3") {
		t.Errorf("fmtLabel(detailed) = %q", got)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.50 200.00" width="100" height="200"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg></svg>")); string(got) != "<svg></svg>" {
		t.Errorf("normalizeViewBox(no viewBox) = %s", got)
	}
}
