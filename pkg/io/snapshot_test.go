package io

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store/memory"
)

var created = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func item(id string) *dag.Item {
	return &dag.Item{
		ID: id, Title: "item " + id, Status: dag.StatusOpen,
		Priority: 2, IssueType: dag.TypeTask, CreatedAt: created, UpdatedAt: created,
	}
}

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	for _, id := range []string{"a", "b", "c"} {
		if err := st.PutItem(ctx, item(id)); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []dag.Edge{
		{From: "a", To: "b", Kind: dag.KindBlocks, CreatedAt: created},
		{From: "b", To: "c", Kind: dag.KindWaitsFor, CreatedAt: created},
		{From: "c", To: "a", Kind: dag.KindRelated, CreatedAt: created},
	} {
		if err := st.InsertEdge(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			ctx := context.Background()
			snap, err := Dump(ctx, seeded(t))
			if err != nil {
				t.Fatal(err)
			}
			var buf bytes.Buffer
			if err := Write(snap, &buf, f); err != nil {
				t.Fatal(err)
			}
			back, err := Read(&buf, f)
			if err != nil {
				t.Fatalf("Read: %v\n%s", err, buf.String())
			}

			dst := memory.New()
			rep, err := Apply(ctx, dst, back)
			if err != nil {
				t.Fatal(err)
			}
			if rep.Items != 3 || rep.Edges != 3 || len(rep.Skipped) != 0 {
				t.Errorf("report = %+v", rep)
			}
			again, err := Dump(ctx, dst)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.EqualFunc(again.Edges, snap.Edges, func(a, b dag.Edge) bool {
				return a.SameTriple(b) && a.CreatedAt.Equal(b.CreatedAt)
			}) {
				t.Errorf("edges = %v, want %v", again.Edges, snap.Edges)
			}
			if !slices.Equal(dag.ItemIDs(again.Items), []string{"a", "b", "c"}) {
				t.Errorf("items = %v", dag.ItemIDs(again.Items))
			}
		})
	}
}

func TestApplySkipsCycles(t *testing.T) {
	ctx := context.Background()
	snap := &Snapshot{
		Items: []*dag.Item{item("a"), item("b")},
		Edges: []dag.Edge{
			{From: "a", To: "b", Kind: dag.KindBlocks},
			{From: "b", To: "a", Kind: dag.KindBlocks},
			{From: "a", To: "ghost", Kind: dag.KindBlocks},
		},
	}
	rep, err := Apply(ctx, memory.New(), snap)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Edges != 1 || len(rep.Skipped) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if !errors.Is(rep.Skipped[0].Reason, errors.ErrCodeCycleDetected) {
		t.Errorf("first skip = %v, want cycle", rep.Skipped[0].Reason)
	}
	if !errors.Is(rep.Skipped[1].Reason, errors.ErrCodeNotFound) {
		t.Errorf("second skip = %v, want not found", rep.Skipped[1].Reason)
	}
}

func TestApplyInvalidItemAborts(t *testing.T) {
	snap := &Snapshot{Items: []*dag.Item{item("a"), {ID: "", Title: "x"}}}
	rep, err := Apply(context.Background(), memory.New(), snap)
	if err == nil {
		t.Fatal("Apply accepted an item without id")
	}
	if rep.Items != 1 {
		t.Errorf("Items = %d, want 1", rep.Items)
	}
}

func TestApplyDefaultsStatusAndType(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	bare := &dag.Item{ID: "a", Title: "A", Priority: 1}
	if _, err := Apply(ctx, st, &Snapshot{Items: []*dag.Item{bare}}); err != nil {
		t.Fatal(err)
	}
	got, err := st.GetItem(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != dag.StatusOpen || got.IssueType != dag.TypeTask {
		t.Errorf("stored status = %q, type = %q, want open task", got.Status, got.IssueType)
	}
	if bare.Status != "" {
		t.Error("Apply modified the snapshot item")
	}
}

func TestReadYAMLDefaultsKind(t *testing.T) {
	src := `
items:
  - id: a
    title: A
    status: open
    priority: 1
    issue_type: task
  - id: b
    title: B
    status: open
    priority: 1
    issue_type: task
edges:
  - from: a
    to: b
`
	snap, err := Read(strings.NewReader(src), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Edges) != 1 || snap.Edges[0].Kind != dag.KindBlocks {
		t.Errorf("edges = %+v", snap.Edges)
	}
}

func TestReadMalformed(t *testing.T) {
	if _, err := Read(strings.NewReader("{"), FormatJSON); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Read(malformed json) = %v", err)
	}
	if _, err := Read(strings.NewReader("items: [unclosed"), FormatYAML); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Read(malformed yaml) = %v", err)
	}
}

func TestFiles(t *testing.T) {
	ctx := context.Background()
	snap, err := Dump(ctx, seeded(t))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "graph.yml")
	if err := WriteFile(snap, path, FormatFromPath(path)); err != nil {
		t.Fatal(err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Items) != 3 || len(back.Edges) != 3 {
		t.Errorf("ReadFile: %d items, %d edges", len(back.Items), len(back.Edges))
	}
}

func TestFormats(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatJSON, true},
		{"JSON", FormatJSON, true},
		{"yml", FormatYAML, true},
		{"toml", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if FormatFromPath("x.YAML") != FormatYAML || FormatFromPath("x.json") != FormatJSON || FormatFromPath("x") != FormatJSON {
		t.Error("FormatFromPath mismatch")
	}
}
