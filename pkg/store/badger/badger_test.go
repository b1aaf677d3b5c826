package badger

import (
	"context"
	"testing"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/store"
	"github.com/matzehuels/workgraph/pkg/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := Open(InMemoryConfig())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		return st
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b"} {
		if err := st.PutItem(ctx, storetest.Item(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.InsertEdge(ctx, dag.Edge{From: "a", To: "b", Kind: dag.KindWaitsFor}); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st, err = Open(Config{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	refs, err := st.ListEdgesFor(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].Peer != "a" || refs[0].Direction != dag.Incoming {
		t.Errorf("ListEdgesFor(b) after reopen = %v", refs)
	}
}

func TestSplitKey(t *testing.T) {
	a, b, kind := splitKey([]byte("edge/x\x00y\x00waits-for"), prefixEdge)
	if a != "x" || b != "y" || kind != dag.KindWaitsFor {
		t.Errorf("splitKey() = %q %q %q", a, b, kind)
	}
	if a, _, _ := splitKey([]byte("edge/broken"), prefixEdge); a != "" {
		t.Errorf("splitKey(malformed) = %q", a)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open(empty path) succeeded")
	}
}
