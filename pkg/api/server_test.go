package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/observability"
	"github.com/matzehuels/workgraph/pkg/ready"
	"github.com/matzehuels/workgraph/pkg/store/memory"
	"github.com/matzehuels/workgraph/pkg/swarm"
)

var created = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	items := []*dag.Item{
		{ID: "E", Title: "Epic", Status: dag.StatusOpen, Priority: 1, IssueType: dag.TypeEpic, CreatedAt: created},
		{ID: "A", Title: "Alpha", Status: dag.StatusOpen, Priority: 1, IssueType: dag.TypeTask, CreatedAt: created},
		{ID: "B", Title: "Beta", Status: dag.StatusOpen, Priority: 2, IssueType: dag.TypeTask, Labels: []string{"api"}, CreatedAt: created},
		{ID: "C", Title: "Gamma", Status: dag.StatusOpen, Priority: 3, IssueType: dag.TypeTask, CreatedAt: created},
	}
	for _, it := range items {
		if err := st.PutItem(ctx, it); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []dag.Edge{
		{From: "A", To: "E", Kind: dag.KindParentChild},
		{From: "B", To: "E", Kind: dag.KindParentChild},
		{From: "B", To: "A", Kind: dag.KindBlocks},
	} {
		if err := st.InsertEdge(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	logger := log.New(io.Discard)
	eng := engine.New(st, engine.Options{Logger: logger, Hooks: observability.NoopEngineHooks{}})
	reg := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	srv := httptest.NewServer(New(eng, Options{Logger: logger, Gatherer: reg}))
	t.Cleanup(srv.Close)
	return srv, eng
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestReady(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/ready", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[ReadyResponse](t, resp)
	// A and B are children of the open epic, so parent-child blocks them.
	if ids := dag.ItemIDs(got.Items); strings.Join(ids, ",") != "E,C" {
		t.Errorf("ready = %v, want [E C]", ids)
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Error("missing request id header")
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/ready?type=task&limit=1", "")
	got = decode[ReadyResponse](t, resp)
	if got.Count != 1 || got.Items[0].ID != "C" {
		t.Errorf("filtered ready = %v", dag.ItemIDs(got.Items))
	}
}

func TestReadyBadQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, q := range []string{"priority=x", "priority=9", "sort=random", "limit=-2"} {
		resp := do(t, http.MethodGet, srv.URL+"/v1/ready?"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestBlocked(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/blocked", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[[]ready.BlockedItem](t, resp)
	if len(got) != 2 {
		t.Fatalf("blocked = %d items, want 2", len(got))
	}
	if got[0].Item.ID != "A" || strings.Join(got[0].BlockedBy, ",") != "E" {
		t.Errorf("first blocked = %s by %v, want A by [E]", got[0].Item.ID, got[0].BlockedBy)
	}
}

func TestDepsLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/deps", `{"from":"A","to":"B"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cycle insert status = %d, want 409", resp.StatusCode)
	}
	body := decode[ErrorBody](t, resp)
	if body.Code != errors.ErrCodeCycleDetected {
		t.Errorf("code = %s", body.Code)
	}

	resp = do(t, http.MethodPost, srv.URL+"/v1/deps", `{"from":"C","to":"nope"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown endpoint status = %d, want 404", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, srv.URL+"/v1/deps", `{"from":"C","to":"B","kind":"waits-for"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("insert status = %d", resp.StatusCode)
	}
	e := decode[dag.Edge](t, resp)
	if e.Kind != dag.KindWaitsFor {
		t.Errorf("kind = %s", e.Kind)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/blocked", "")
	blocked := decode[[]ready.BlockedItem](t, resp)
	if len(blocked) != 3 {
		t.Errorf("blocked = %d items, want 3", len(blocked))
	}

	resp = do(t, http.MethodDelete, srv.URL+"/v1/deps/C/B", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, srv.URL+"/v1/items/C", "")
	item := decode[ItemResponse](t, resp)
	if len(item.Edges) != 0 {
		t.Errorf("edges after delete = %v", item.Edges)
	}
}

func TestAddDepMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, body := range []string{"{", `{"from":"A","to":"B","extra":1}`} {
		resp := do(t, http.MethodPost, srv.URL+"/v1/deps", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestItem(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/items/B", "")
	got := decode[ItemResponse](t, resp)
	if got.Item.ID != "B" || len(got.Edges) != 2 {
		t.Errorf("item = %+v", got)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/items/missing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing status = %d", resp.StatusCode)
	}
}

func TestCycles(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/v1/cycles", "")
	got := decode[CyclesResponse](t, resp)
	if got.Count != 0 || got.Cycles == nil {
		t.Errorf("cycles = %+v", got)
	}
}

func TestSwarm(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/swarm/E", "")
	a := decode[swarm.Analysis](t, resp)
	if !a.Swarmable || len(a.Waves) != 2 {
		t.Errorf("analysis = %+v", a)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/swarm/E/status", "")
	p := decode[swarm.Progress](t, resp)
	if p.Total != 2 || p.Ready != 1 {
		t.Errorf("progress = %+v", p)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/swarm/A", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-epic status = %d, want 400", resp.StatusCode)
	}
	body := decode[ErrorBody](t, resp)
	if body.Code != errors.ErrCodeNotAnEpic {
		t.Errorf("code = %s", body.Code)
	}
}

func TestGraph(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/graph?root=B", "")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var g struct {
		Nodes []struct{ ID string } `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 3 {
		t.Errorf("nodes = %v", g.Nodes)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/graph?all=1&format=dot", "")
	data, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("dot body = %q", data)
	}

	for _, q := range []string{"", "root=B&format=pdf"} {
		resp = do(t, http.MethodGet, srv.URL+"/v1/graph?"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodGet, srv.URL+"/v1/items/A", "")

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "")
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), `workgraph_http_requests_total{method="GET",route="/v1/items/{id}",status="200"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", data)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NotFound("x"), http.StatusNotFound},
		{&errors.CycleError{From: "a", To: "b", Kind: "blocks"}, http.StatusConflict},
		{errors.New(errors.ErrCodeNotAnEpic, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeInvalidFormat, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeStorage, "x"), http.StatusInternalServerError},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
