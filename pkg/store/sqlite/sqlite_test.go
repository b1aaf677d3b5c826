package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/store"
	"github.com/matzehuels/workgraph/pkg/store/storetest"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	st, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	return st
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st := openTestStore(t, filepath.Join(t.TempDir(), "work.db"))
		t.Cleanup(func() { st.Close() })
		return st
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "work.db")

	st := openTestStore(t, path)
	for _, id := range []string{"a", "b"} {
		if err := st.PutItem(ctx, storetest.Item(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.InsertEdge(ctx, dag.Edge{From: "a", To: "b", Kind: dag.KindBlocks, CreatedBy: "ann"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st = openTestStore(t, path)
	defer st.Close()
	edges, err := st.ListEdges(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].CreatedBy != "ann" || edges[0].CreatedAt.IsZero() {
		t.Errorf("edges after reopen = %+v", edges)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open(empty path) succeeded")
	}
}

func TestInMemory(t *testing.T) {
	st := openTestStore(t, ":memory:")
	defer st.Close()
	if err := st.PutItem(context.Background(), storetest.Item("x")); err != nil {
		t.Fatal(err)
	}
}
