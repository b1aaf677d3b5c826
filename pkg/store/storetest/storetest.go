// Package storetest provides the conformance suite every store backend
// runs.
//
//	func TestConformance(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) store.Store {
//	        st := memory.New()
//	        t.Cleanup(func() { st.Close() })
//	        return st
//	    })
//	}
package storetest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/dag/transform"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
)

// Factory returns a fresh, empty store. It registers its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"ItemRoundTrip", testItemRoundTrip},
		{"ZeroTimesRoundTrip", testZeroTimesRoundTrip},
		{"GetItemNotFound", testGetItemNotFound},
		{"PutItemValidates", testPutItemValidates},
		{"ListItemsFilter", testListItemsFilter},
		{"InsertEdgeIdempotent", testInsertEdgeIdempotent},
		{"InsertEdgeUnknownEndpoint", testInsertEdgeUnknownEndpoint},
		{"CycleRejectedWithoutMutation", testCycleRejectedWithoutMutation},
		{"NonBlockingCycleAllowed", testNonBlockingCycleAllowed},
		{"RandomInsertsStayAcyclic", testRandomInsertsStayAcyclic},
		{"ConcurrentOppositeInserts", testConcurrentOppositeInserts},
		{"DeleteEdge", testDeleteEdge},
		{"ListEdgesFor", testListEdgesFor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var epoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// Item returns a valid open task with the given ID.
func Item(id string) *dag.Item {
	return &dag.Item{
		ID:        id,
		Title:     "item " + id,
		Status:    dag.StatusOpen,
		Priority:  2,
		IssueType: dag.TypeTask,
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
}

func put(t *testing.T, st store.Store, items ...*dag.Item) {
	t.Helper()
	for _, it := range items {
		if err := st.PutItem(context.Background(), it); err != nil {
			t.Fatalf("PutItem(%s): %v", it.ID, err)
		}
	}
}

func putIDs(t *testing.T, st store.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		put(t, st, Item(id))
	}
}

func insert(t *testing.T, st store.Store, from, to string, kind dag.Kind) {
	t.Helper()
	if err := st.InsertEdge(context.Background(), dag.Edge{From: from, To: to, Kind: kind, CreatedAt: epoch}); err != nil {
		t.Fatalf("InsertEdge(%s -> %s, %s): %v", from, to, kind, err)
	}
}

func edges(t *testing.T, st store.Store) []dag.Edge {
	t.Helper()
	es, err := st.ListEdges(context.Background())
	if err != nil {
		t.Fatalf("ListEdges: %v", err)
	}
	store.SortEdges(es)
	return es
}

func triples(es []dag.Edge) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = fmt.Sprintf("%s->%s:%s", e.From, e.To, e.Kind)
	}
	return out
}

func testItemRoundTrip(t *testing.T, st store.Store) {
	ctx := context.Background()
	deferUntil := epoch.Add(48 * time.Hour)
	it := Item("wg-1")
	it.Assignee = "ann"
	it.Labels = []string{"backend", "p1"}
	it.DeferUntil = &deferUntil
	it.Ephemeral = true
	put(t, st, it)

	got, err := st.GetItem(ctx, "wg-1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Title != it.Title || got.Status != it.Status || got.Priority != it.Priority ||
		got.IssueType != it.IssueType || got.Assignee != "ann" || !got.Ephemeral {
		t.Errorf("GetItem() = %+v, want %+v", got, it)
	}
	if !slices.Equal(got.Labels, it.Labels) {
		t.Errorf("Labels = %v, want %v", got.Labels, it.Labels)
	}
	if !got.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, epoch)
	}
	if got.DeferUntil == nil || !got.DeferUntil.Equal(deferUntil) {
		t.Errorf("DeferUntil = %v, want %v", got.DeferUntil, deferUntil)
	}

	it.Status = dag.StatusClosed
	put(t, st, it)
	got, _ = st.GetItem(ctx, "wg-1")
	if got.Status != dag.StatusClosed {
		t.Errorf("PutItem did not replace: status = %s", got.Status)
	}
}

func testZeroTimesRoundTrip(t *testing.T, st store.Store) {
	it := Item("wg-zero")
	it.CreatedAt = time.Time{}
	it.UpdatedAt = time.Time{}
	put(t, st, it)

	got, err := st.GetItem(context.Background(), "wg-zero")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if !got.CreatedAt.IsZero() || !got.UpdatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, UpdatedAt = %v, want zero times", got.CreatedAt, got.UpdatedAt)
	}
}

func testGetItemNotFound(t *testing.T, st store.Store) {
	_, err := st.GetItem(context.Background(), "missing")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("GetItem(missing) error = %v, want NOT_FOUND", err)
	}
}

func testPutItemValidates(t *testing.T, st store.Store) {
	bad := Item("has space")
	if err := st.PutItem(context.Background(), bad); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("PutItem(invalid id) error = %v, want INVALID_INPUT", err)
	}
}

func testListItemsFilter(t *testing.T, st store.Store) {
	ctx := context.Background()
	closed := Item("c")
	closed.Status = dag.StatusClosed
	bug := Item("b")
	bug.IssueType = dag.TypeBug
	put(t, st, Item("a"), bug, closed)

	all, err := st.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if got := dag.ItemIDs(all); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("ListItems(all) = %v", got)
	}

	open, _ := st.ListItems(ctx, store.ItemFilter{ExcludeClosed: true})
	if got := dag.ItemIDs(open); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("ListItems(open) = %v", got)
	}

	bugs, _ := st.ListItems(ctx, store.ItemFilter{Type: dag.TypeBug})
	if got := dag.ItemIDs(bugs); !slices.Equal(got, []string{"b"}) {
		t.Errorf("ListItems(type=bug) = %v", got)
	}

	some, _ := st.ListItems(ctx, store.ItemFilter{IDs: []string{"c", "a", "zz"}})
	if got := dag.ItemIDs(some); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("ListItems(ids) = %v", got)
	}
}

func testInsertEdgeIdempotent(t *testing.T, st store.Store) {
	putIDs(t, st, "a", "b")
	insert(t, st, "a", "b", dag.KindBlocks)
	insert(t, st, "a", "b", dag.KindBlocks)
	insert(t, st, "a", "b", dag.KindRelated)

	if got := triples(edges(t, st)); !slices.Equal(got, []string{"a->b:blocks", "a->b:related"}) {
		t.Errorf("edges = %v", got)
	}
	blocking, err := st.ListBlockingEdges(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := triples(blocking); !slices.Equal(got, []string{"a->b:blocks"}) {
		t.Errorf("blocking edges = %v", got)
	}
}

func testInsertEdgeUnknownEndpoint(t *testing.T, st store.Store) {
	putIDs(t, st, "a")
	err := st.InsertEdge(context.Background(), dag.Edge{From: "a", To: "ghost", Kind: dag.KindBlocks})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("InsertEdge(unknown) error = %v, want NOT_FOUND", err)
	}
	if len(edges(t, st)) != 0 {
		t.Error("failed insert mutated the store")
	}
}

// Scenario: A -> B accepted, B -> A rejected, edge set unchanged.
func testCycleRejectedWithoutMutation(t *testing.T, st store.Store) {
	putIDs(t, st, "A", "B", "C")
	insert(t, st, "A", "B", dag.KindBlocks)
	insert(t, st, "B", "C", dag.KindParentChild)
	before := triples(edges(t, st))

	for _, e := range []dag.Edge{
		{From: "B", To: "A", Kind: dag.KindBlocks},
		{From: "C", To: "A", Kind: dag.KindWaitsFor},
		{From: "A", To: "A", Kind: dag.KindBlocks},
	} {
		err := st.InsertEdge(context.Background(), e)
		if !errors.Is(err, errors.ErrCodeCycleDetected) {
			t.Errorf("InsertEdge(%s -> %s) error = %v, want CYCLE_DETECTED", e.From, e.To, err)
		}
		if ce, ok := errors.AsCycle(err); !ok || ce.From != e.From || ce.To != e.To {
			t.Errorf("InsertEdge(%s -> %s) error %v does not carry the rejected edge", e.From, e.To, err)
		}
	}

	if after := triples(edges(t, st)); !slices.Equal(before, after) {
		t.Errorf("edge set changed: %v -> %v", before, after)
	}
}

func testNonBlockingCycleAllowed(t *testing.T, st store.Store) {
	putIDs(t, st, "a", "b")
	insert(t, st, "a", "b", dag.KindBlocks)
	insert(t, st, "b", "a", dag.KindRelated)
	insert(t, st, "b", "a", dag.Kind("tracks"))
	if n := len(edges(t, st)); n != 3 {
		t.Errorf("len(edges) = %d, want 3", n)
	}
}

// Any sequence of accepted inserts keeps the blocking graph acyclic.
func testRandomInsertsStayAcyclic(t *testing.T, st store.Store) {
	ctx := context.Background()
	ids := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7"}
	putIDs(t, st, ids...)
	kinds := []dag.Kind{dag.KindBlocks, dag.KindParentChild, dag.KindWaitsFor, dag.KindRelated}

	r := rand.New(rand.NewPCG(1, 2))
	for range 60 {
		e := dag.Edge{From: ids[r.IntN(len(ids))], To: ids[r.IntN(len(ids))], Kind: kinds[r.IntN(len(kinds))]}
		before := triples(edges(t, st))
		err := st.InsertEdge(ctx, e)
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrCodeCycleDetected), errors.Is(err, errors.ErrCodeInvalidInput):
			if after := triples(edges(t, st)); !slices.Equal(before, after) {
				t.Fatalf("rejected insert %v mutated edges", e)
			}
		default:
			t.Fatalf("InsertEdge(%v): %v", e, err)
		}

		blocking, err := st.ListBlockingEdges(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if cycles := transform.EnumerateCycles(blocking); len(cycles) > 0 {
			t.Fatalf("after inserting %v the blocking graph has cycles %v", e, cycles)
		}
	}
}

// Two goroutines race opposite edges; exactly one may win.
func testConcurrentOppositeInserts(t *testing.T, st store.Store) {
	ctx := context.Background()
	for round := range 10 {
		a, b := fmt.Sprintf("x%d", round), fmt.Sprintf("y%d", round)
		putIDs(t, st, a, b)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, e := range []dag.Edge{
			{From: a, To: b, Kind: dag.KindBlocks},
			{From: b, To: a, Kind: dag.KindBlocks},
		} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = st.InsertEdge(ctx, e)
			}()
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case !errors.Is(err, errors.ErrCodeCycleDetected):
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		if ok != 1 {
			t.Fatalf("round %d: %d inserts succeeded, want exactly 1", round, ok)
		}
	}

	blocking, _ := st.ListBlockingEdges(ctx)
	if cycles := transform.EnumerateCycles(blocking); len(cycles) > 0 {
		t.Errorf("concurrent inserts produced cycles %v", cycles)
	}
}

func testDeleteEdge(t *testing.T, st store.Store) {
	ctx := context.Background()
	putIDs(t, st, "a", "b", "c")
	insert(t, st, "a", "b", dag.KindBlocks)
	insert(t, st, "a", "b", dag.KindRelated)
	insert(t, st, "a", "c", dag.KindBlocks)

	if err := st.DeleteEdge(ctx, "a", "b"); err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}
	if got := triples(edges(t, st)); !slices.Equal(got, []string{"a->c:blocks"}) {
		t.Errorf("edges after delete = %v", got)
	}
	if err := st.DeleteEdge(ctx, "a", "b"); err != nil {
		t.Errorf("DeleteEdge(missing) = %v, want nil", err)
	}

	// The reverse edge is insertable once the blocker is gone.
	insert(t, st, "b", "a", dag.KindBlocks)
}

func testListEdgesFor(t *testing.T, st store.Store) {
	putIDs(t, st, "a", "b", "c")
	insert(t, st, "a", "b", dag.KindBlocks)
	insert(t, st, "c", "a", dag.KindDiscoveredFrom)

	refs, err := st.ListEdgesFor(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	want := []dag.EdgeRef{
		{Peer: "b", Kind: dag.KindBlocks, Direction: dag.Outgoing},
		{Peer: "c", Kind: dag.KindDiscoveredFrom, Direction: dag.Incoming},
	}
	if !slices.Equal(refs, want) {
		t.Errorf("ListEdgesFor(a) = %v, want %v", refs, want)
	}

	none, err := st.ListEdgesFor(context.Background(), "nobody")
	if err != nil || len(none) != 0 {
		t.Errorf("ListEdgesFor(unknown) = %v, %v", none, err)
	}
}
