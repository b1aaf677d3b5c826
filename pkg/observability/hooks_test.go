package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopEngineHooks{}
	e.OnEdgeInserted(ctx, "blocks")
	e.OnCycleRejected(ctx, "blocks")
	e.OnReadyComputed(ctx, 3, time.Millisecond)
	e.OnSwarmAnalyzed(ctx, 2, true, time.Millisecond)
	e.OnGraphBuilt(ctx, "svg", 10, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/v1/ready")
	h.OnResponse(ctx, "GET", "/v1/ready", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Engine() should return NoopEngineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customEngine := &testEngineHooks{}
	SetEngineHooks(customEngine)
	if Engine() != customEngine {
		t.Error("SetEngineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Reset() should restore NoopEngineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testEngineHooks{}
	SetEngineHooks(custom)
	SetEngineHooks(nil)

	if Engine() != custom {
		t.Error("SetEngineHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	h := NewPrometheusHooks(reg)

	h.OnEdgeInserted(ctx, "blocks")
	h.OnEdgeInserted(ctx, "blocks")
	h.OnEdgeInserted(ctx, "related")
	h.OnCycleRejected(ctx, "waits-for")
	h.OnSwarmAnalyzed(ctx, 3, false, time.Millisecond)
	h.OnGraphBuilt(ctx, "svg", 4, time.Millisecond, errors.New("boom"))
	h.OnCacheHit(ctx, "artifact")
	h.OnCacheSet(ctx, "artifact", 512)
	h.OnResponse(ctx, "GET", "/v1/ready", 200, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"edges blocks", testutil.ToFloat64(h.edgesInserted.WithLabelValues("blocks")), 2},
		{"edges related", testutil.ToFloat64(h.edgesInserted.WithLabelValues("related")), 1},
		{"cycles", testutil.ToFloat64(h.cyclesRejected.WithLabelValues("waits-for")), 1},
		{"swarm not swarmable", testutil.ToFloat64(h.swarmTotal.WithLabelValues("false")), 1},
		{"cache hit", testutil.ToFloat64(h.cacheEvents.WithLabelValues("artifact", "hit")), 1},
		{"cache bytes", testutil.ToFloat64(h.cacheBytes), 512},
		{"http", testutil.ToFloat64(h.httpRequests.WithLabelValues("GET", "/v1/ready", "200")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(h.graphDuration, "workgraph_graph_render_duration_seconds"); n != 1 {
		t.Errorf("graph duration series = %d, want 1", n)
	}
}

func TestPrometheusHooksRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusHooks(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	NewPrometheusHooks(reg)
}

type testEngineHooks struct{ NoopEngineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
