package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/api"
	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/observability"
	"github.com/matzehuels/workgraph/pkg/ready"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API on --addr (default from [server] addr).

Routes live under /v1; Prometheus metrics are exposed on /metrics and a
liveness probe on /healthz. The server shuts down gracefully on SIGINT or
SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			hooks := observability.NewPrometheusHooks(reg)
			observability.SetEngineHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			defer observability.Reset()

			return c.withEngine(cmd.Context(), func(e *engine.Engine) error {
				srv := api.New(e, api.Options{
					Logger:   c.Logger,
					Gatherer: reg,
					ReadyDefaults: ready.Filter{
						Sort:  cfg.SortPolicy(),
						Limit: cfg.Ready.Limit,
					},
				})
				c.Logger.Info("Starting API", "addr", addr, "store", cfg.Store.Backend)
				return srv.ListenAndServe(cmd.Context(), addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
