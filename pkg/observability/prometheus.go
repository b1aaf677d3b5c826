package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "workgraph"

// PrometheusHooks implements EngineHooks, CacheHooks and HTTPHooks by
// updating Prometheus collectors.
type PrometheusHooks struct {
	edgesInserted  *prometheus.CounterVec
	cyclesRejected *prometheus.CounterVec
	readyItems     prometheus.Histogram
	readyDuration  prometheus.Histogram
	swarmWaves     prometheus.Histogram
	swarmTotal     *prometheus.CounterVec
	graphDuration  *prometheus.HistogramVec
	cacheEvents    *prometheus.CounterVec
	cacheBytes     prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var (
	_ EngineHooks = (*PrometheusHooks)(nil)
	_ CacheHooks  = (*PrometheusHooks)(nil)
	_ HTTPHooks   = (*PrometheusHooks)(nil)
)

// NewPrometheusHooks creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PrometheusHooks{
		edgesInserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "edges_inserted_total",
			Help: "Dependency edges inserted, by kind.",
		}, []string{"kind"}),
		cyclesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycles_rejected_total",
			Help: "Edge inserts rejected because they would create a cycle, by kind.",
		}, []string{"kind"}),
		readyItems: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ready_items",
			Help:    "Number of items returned by ready-work queries.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		readyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ready_duration_seconds",
			Help:    "Ready-work computation latency.",
			Buckets: prometheus.DefBuckets,
		}),
		swarmWaves: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "swarm_waves",
			Help:    "Number of waves per swarm analysis.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		swarmTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "swarm_analyses_total",
			Help: "Swarm analyses, by swarmable outcome.",
		}, []string{"swarmable"}),
		graphDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "graph_render_duration_seconds",
			Help:    "Graph build and render latency, by format and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format", "outcome"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_events_total",
			Help: "Artifact cache events, by key type and event.",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total",
			Help: "Bytes written to the artifact cache.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP API requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP API latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (h *PrometheusHooks) OnEdgeInserted(_ context.Context, kind string) {
	h.edgesInserted.WithLabelValues(kind).Inc()
}

func (h *PrometheusHooks) OnCycleRejected(_ context.Context, kind string) {
	h.cyclesRejected.WithLabelValues(kind).Inc()
}

func (h *PrometheusHooks) OnReadyComputed(_ context.Context, count int, d time.Duration) {
	h.readyItems.Observe(float64(count))
	h.readyDuration.Observe(d.Seconds())
}

func (h *PrometheusHooks) OnSwarmAnalyzed(_ context.Context, waves int, swarmable bool, _ time.Duration) {
	h.swarmWaves.Observe(float64(waves))
	h.swarmTotal.WithLabelValues(strconv.FormatBool(swarmable)).Inc()
}

func (h *PrometheusHooks) OnGraphBuilt(_ context.Context, format string, _ int, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.graphDuration.WithLabelValues(format, outcome).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
