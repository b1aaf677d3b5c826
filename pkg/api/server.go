package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/ready"
)

// Options configures a Server.
type Options struct {
	// Logger receives request logs. Defaults to log.Default().
	Logger *log.Logger

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// ReadyDefaults seeds every /v1/ready filter before query parameters
	// are applied. Used for configured sort, limit and exclusions.
	ReadyDefaults ready.Filter
}

// Server is the HTTP API. It implements http.Handler.
type Server struct {
	engine   *engine.Engine
	logger   *log.Logger
	defaults ready.Filter
	router   chi.Router
}

// New builds the router for e.
func New(e *engine.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{engine: e, logger: opts.Logger, defaults: opts.ReadyDefaults}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ready", s.handleReady)
		r.Get("/blocked", s.handleBlocked)
		r.Get("/items/{id}", s.handleItem)
		r.Post("/deps", s.handleAddDep)
		r.Delete("/deps/{from}/{to}", s.handleRemoveDep)
		r.Get("/cycles", s.handleCycles)
		r.Get("/swarm/{id}", s.handleSwarm)
		r.Get("/swarm/{id}/status", s.handleSwarmStatus)
		r.Get("/graph", s.handleGraph)
	})
	s.router = r
	return s
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
