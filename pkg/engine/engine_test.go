package engine

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/workgraph/pkg/cache"
	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/graph"
	"github.com/matzehuels/workgraph/pkg/observability"
	"github.com/matzehuels/workgraph/pkg/ready"
	"github.com/matzehuels/workgraph/pkg/store/memory"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	observability.NoopEngineHooks
	mu       sync.Mutex
	inserted []string
	rejected []string
	ready    []int
	graphs   []string
}

func (r *recorder) OnEdgeInserted(_ context.Context, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, kind)
}

func (r *recorder) OnCycleRejected(_ context.Context, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, kind)
}

func (r *recorder) OnReadyComputed(_ context.Context, n int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = append(r.ready, n)
}

func (r *recorder) OnGraphBuilt(_ context.Context, format string, _ int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		format += ":error"
	}
	r.graphs = append(r.graphs, format)
}

func newEngine(t *testing.T, opts Options) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts.Hooks = rec
	opts.Logger = log.New(io.Discard)
	opts.Now = func() time.Time { return now }
	e := New(memory.New(), opts)
	t.Cleanup(func() { e.Close() })
	return e, rec
}

func add(t *testing.T, e *Engine, id string, typ dag.IssueType, parent string) {
	t.Helper()
	it := &dag.Item{ID: id, Title: "item " + id, Priority: 2, IssueType: typ}
	if _, err := e.AddItem(context.Background(), it, parent); err != nil {
		t.Fatalf("AddItem(%s): %v", id, err)
	}
}

func dep(t *testing.T, e *Engine, from, to string) {
	t.Helper()
	if err := e.AddDependency(context.Background(), dag.Edge{From: from, To: to}); err != nil {
		t.Fatalf("AddDependency(%s, %s): %v", from, to, err)
	}
}

func TestReadyWorkFollowsClosures(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t, Options{})
	add(t, e, "A", dag.TypeTask, "")
	add(t, e, "B", dag.TypeTask, "")
	dep(t, e, "A", "B")

	got, err := e.ReadyWork(ctx, ready.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if ids := dag.ItemIDs(got); !slices.Equal(ids, []string{"B"}) {
		t.Fatalf("ReadyWork() = %v, want [B]", ids)
	}

	if _, err := e.SetStatus(ctx, "B", dag.StatusClosed); err != nil {
		t.Fatal(err)
	}
	got, _ = e.ReadyWork(ctx, ready.Filter{})
	if ids := dag.ItemIDs(got); !slices.Equal(ids, []string{"A"}) {
		t.Fatalf("after close: ReadyWork() = %v, want [A]", ids)
	}
	if !slices.Equal(rec.ready, []int{1, 1}) {
		t.Errorf("OnReadyComputed counts = %v", rec.ready)
	}
}

func TestReadyWorkConfiguredExclusions(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, Options{ExcludeTypes: []dag.IssueType{dag.TypeTask}})
	add(t, e, "T", dag.TypeTask, "")
	add(t, e, "B", "bug", "")

	got, err := e.ReadyWork(ctx, ready.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if ids := dag.ItemIDs(got); !slices.Equal(ids, []string{"B"}) {
		t.Errorf("ReadyWork() = %v, want [B]", ids)
	}

	got, _ = e.ReadyWork(ctx, ready.Filter{ExcludeTypes: []dag.IssueType{}})
	if len(got) != 2 {
		t.Errorf("explicit empty exclusions: got %d items, want 2", len(got))
	}
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t, Options{})
	for _, id := range []string{"A", "B", "C"} {
		add(t, e, id, dag.TypeTask, "")
	}
	dep(t, e, "A", "B")
	dep(t, e, "B", "C")

	err := e.AddDependency(ctx, dag.Edge{From: "C", To: "A", Kind: dag.KindWaitsFor})
	if !errors.Is(err, errors.ErrCodeCycleDetected) {
		t.Fatalf("AddDependency(C, A) = %v, want CYCLE_DETECTED", err)
	}
	if !slices.Equal(rec.rejected, []string{"waits-for"}) {
		t.Errorf("rejected = %v", rec.rejected)
	}
	if !slices.Equal(rec.inserted, []string{"blocks", "blocks"}) {
		t.Errorf("inserted = %v", rec.inserted)
	}

	if err := e.AddDependency(ctx, dag.Edge{From: "C", To: "A", Kind: dag.KindRelated}); err != nil {
		t.Errorf("non-blocking back edge: %v", err)
	}

	cycles, err := e.DetectCycles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cycles) != 0 {
		t.Errorf("DetectCycles() = %v, want none", cycles)
	}
}

// rawEdgeStore reports extra blocking edges that never went through
// InsertEdge.
type rawEdgeStore struct {
	*memory.Store
	extra []dag.Edge
}

func (s *rawEdgeStore) ListBlockingEdges(ctx context.Context) ([]dag.Edge, error) {
	edges, err := s.Store.ListBlockingEdges(ctx)
	return append(edges, s.extra...), err
}

func TestDetectCyclesStartAtSmallestID(t *testing.T) {
	st := &rawEdgeStore{Store: memory.New(), extra: []dag.Edge{
		{From: "a", To: "d", Kind: dag.KindBlocks},
		{From: "d", To: "c", Kind: dag.KindBlocks},
		{From: "c", To: "d", Kind: dag.KindBlocks},
	}}
	e := New(st, Options{Logger: log.New(io.Discard)})
	t.Cleanup(func() { e.Close() })

	cycles, err := e.DetectCycles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cycles) != 1 || !slices.Equal(cycles[0], []string{"c", "d"}) {
		t.Errorf("DetectCycles() = %v, want [[c d]]", cycles)
	}
}

func TestRemoveDependencyUnblocks(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, Options{})
	add(t, e, "A", dag.TypeTask, "")
	add(t, e, "B", dag.TypeTask, "")
	dep(t, e, "A", "B")

	if err := e.RemoveDependency(ctx, "A", "B"); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveDependency(ctx, "A", "B"); err != nil {
		t.Errorf("second RemoveDependency: %v", err)
	}
	refs, err := e.Dependencies(ctx, "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 0 {
		t.Errorf("Dependencies(A) = %v", refs)
	}
	if _, err := e.Dependencies(ctx, "nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Dependencies(nope) = %v", err)
	}
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, Options{})
	add(t, e, "E", dag.TypeEpic, "")

	it, err := e.AddItem(ctx, &dag.Item{Title: "child", Priority: 1}, "E")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(it.ID, IDPrefix) || len(it.ID) != len(IDPrefix)+8 {
		t.Errorf("generated id = %q", it.ID)
	}
	if it.Status != dag.StatusOpen || it.IssueType != dag.TypeTask || !it.CreatedAt.Equal(now) {
		t.Errorf("defaults not applied: %+v", it)
	}

	refs, _ := e.Dependencies(ctx, it.ID)
	want := []dag.EdgeRef{{Peer: "E", Kind: dag.KindParentChild, Direction: dag.Outgoing}}
	if !slices.Equal(refs, want) {
		t.Errorf("Dependencies(child) = %v, want %v", refs, want)
	}

	if _, err := e.AddItem(ctx, &dag.Item{ID: "E", Title: "dup"}, ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("duplicate id: %v", err)
	}
	add(t, e, "T", dag.TypeTask, "")
	if _, err := e.AddItem(ctx, &dag.Item{Title: "x"}, "T"); !errors.Is(err, errors.ErrCodeNotAnEpic) {
		t.Errorf("parent not an epic: %v", err)
	}
	if _, err := e.AddItem(ctx, &dag.Item{Title: "x"}, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing parent: %v", err)
	}
}

func TestSwarm(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, Options{})
	add(t, e, "E", dag.TypeEpic, "")
	for _, id := range []string{"A", "B", "C"} {
		add(t, e, id, dag.TypeTask, "E")
	}
	dep(t, e, "B", "A")
	dep(t, e, "C", "A")

	a, err := e.SwarmValidate(ctx, "E")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Swarmable || len(a.Waves) != 2 || a.MaxParallelism != 2 {
		t.Errorf("SwarmValidate(E) = swarmable %v, waves %d, parallelism %d",
			a.Swarmable, len(a.Waves), a.MaxParallelism)
	}

	if _, err := e.SetStatus(ctx, "A", dag.StatusClosed); err != nil {
		t.Fatal(err)
	}
	p, err := e.SwarmStatus(ctx, "E")
	if err != nil {
		t.Fatal(err)
	}
	if p.Completed != 1 || p.Total != 3 || p.Ready != 2 {
		t.Errorf("SwarmStatus(E) = completed %d/%d, ready %d", p.Completed, p.Total, p.Ready)
	}

	if _, err := e.SwarmValidate(ctx, "A"); !errors.Is(err, errors.ErrCodeNotAnEpic) {
		t.Errorf("SwarmValidate(task) = %v", err)
	}
	if _, err := e.SwarmValidate(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("SwarmValidate(missing) = %v", err)
	}
}

func TestSwarmEmptyEpic(t *testing.T) {
	e, _ := newEngine(t, Options{})
	add(t, e, "E", dag.TypeEpic, "")
	add(t, e, "other", dag.TypeTask, "")

	a, err := e.SwarmValidate(context.Background(), "E")
	if err != nil {
		t.Fatal(err)
	}
	if a.ChildCount() != 0 || !a.Swarmable {
		t.Errorf("empty epic: children %d, swarmable %v", a.ChildCount(), a.Swarmable)
	}
}

func TestGraph(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t, Options{})
	for _, id := range []string{"R", "D", "X"} {
		add(t, e, id, dag.TypeTask, "")
	}
	dep(t, e, "R", "D")

	res, err := e.Graph(ctx, GraphRequest{Root: "R", Format: FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	g, err := graph.UnmarshalGraph(res.Data)
	if err != nil {
		t.Fatal(err)
	}
	if res.Nodes != 2 || len(g.Nodes) != 2 {
		t.Errorf("json: nodes %d/%d, want 2", res.Nodes, len(g.Nodes))
	}
	if n, ok := g.Node("R"); !ok || n.Layer != 1 {
		t.Errorf("R layer = %+v", n)
	}

	res, err = e.Graph(ctx, GraphRequest{All: true, Format: FormatText})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(res.Data), "1 isolated item(s): X") {
		t.Errorf("text all:\n%s", res.Data)
	}
	if res.Nodes != 3 {
		t.Errorf("all nodes = %d, want 3", res.Nodes)
	}

	res, err = e.Graph(ctx, GraphRequest{Root: "D", Format: FormatDOT})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(res.Data), `"D" -> "R"`) {
		t.Errorf("dot:\n%s", res.Data)
	}

	if !slices.Equal(rec.graphs, []string{"json", "text", "dot"}) {
		t.Errorf("OnGraphBuilt = %v", rec.graphs)
	}
}

func TestGraphErrors(t *testing.T) {
	ctx := context.Background()
	e, rec := newEngine(t, Options{})
	add(t, e, "R", dag.TypeTask, "")

	tests := []struct {
		name string
		req  GraphRequest
		code errors.Code
	}{
		{"neither", GraphRequest{}, errors.ErrCodeInvalidInput},
		{"both", GraphRequest{Root: "R", All: true}, errors.ErrCodeInvalidInput},
		{"format", GraphRequest{Root: "R", Format: "pdf"}, errors.ErrCodeInvalidFormat},
		{"missing root", GraphRequest{Root: "nope"}, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Graph(ctx, tt.req); !errors.Is(err, tt.code) {
				t.Errorf("Graph(%+v) = %v, want %s", tt.req, err, tt.code)
			}
		})
	}
	if len(rec.graphs) != len(tests) || !strings.HasSuffix(rec.graphs[0], ":error") {
		t.Errorf("OnGraphBuilt = %v", rec.graphs)
	}
}

func TestGraphSVGCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e, _ := newEngine(t, Options{Cache: c})
	add(t, e, "R", dag.TypeTask, "")
	add(t, e, "D", dag.TypeTask, "")
	dep(t, e, "R", "D")

	first, err := e.Graph(ctx, GraphRequest{Root: "R", Format: FormatSVG})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || !strings.Contains(string(first.Data), "<svg") {
		t.Fatalf("first render: hit %v, %d bytes", first.CacheHit, len(first.Data))
	}
	second, err := e.Graph(ctx, GraphRequest{Root: "R", Format: FormatSVG})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit || string(second.Data) != string(first.Data) {
		t.Errorf("second render should come from cache")
	}
	third, err := e.Graph(ctx, GraphRequest{Root: "R", Format: FormatSVG, NoCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("NoCache render reported a cache hit")
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"", "text", "DOT", " json ", "svg"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) = %v", s, err)
		}
	}
	if _, err := ParseFormat("png"); err == nil {
		t.Error("ParseFormat(png) succeeded")
	}
}

func TestGraphJSONIsValid(t *testing.T) {
	e, _ := newEngine(t, Options{})
	res, err := e.Graph(context.Background(), GraphRequest{All: true, Format: FormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(res.Data) {
		t.Errorf("invalid json: %s", res.Data)
	}
}
