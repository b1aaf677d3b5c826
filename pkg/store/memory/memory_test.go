package memory

import (
	"context"
	"testing"

	"github.com/matzehuels/workgraph/pkg/store"
	"github.com/matzehuels/workgraph/pkg/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st := New()
		t.Cleanup(func() { st.Close() })
		return st
	})
}

func TestGetItemReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := New()
	it := storetest.Item("a")
	it.Labels = []string{"x"}
	if err := st.PutItem(ctx, it); err != nil {
		t.Fatal(err)
	}
	it.Labels[0] = "mutated"

	got, _ := st.GetItem(ctx, "a")
	got.Title = "changed"
	again, _ := st.GetItem(ctx, "a")
	if again.Title == "changed" || again.Labels[0] != "x" {
		t.Errorf("store shares memory with callers: %+v", again)
	}
}
