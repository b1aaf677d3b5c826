// Package cli implements the workgraph command-line interface.
//
// The command tree is built with cobra. Every command loads the TOML
// configuration, opens the configured edge store and runs one engine
// operation against it. Human output is styled with lipgloss; --json
// switches most query commands to machine-readable output.
//
// # Commands
//
//   - item: create, close, show and list work items
//   - dep: add, remove and list dependency edges
//   - ready, blocked: ready-work and blocked-work queries
//   - cycles: report dependency cycles
//   - swarm: wave analysis of an epic's children
//   - graph: render the dependency graph as text, DOT, JSON or SVG
//   - import, export: JSON/YAML snapshots
//   - serve: HTTP API with Prometheus metrics
//   - cache: manage the rendered-SVG cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Logs go to
// stderr; results go to stdout.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/buildinfo"
	"github.com/matzehuels/workgraph/pkg/cache"
	"github.com/matzehuels/workgraph/pkg/config"
	"github.com/matzehuels/workgraph/pkg/engine"
	"github.com/matzehuels/workgraph/pkg/errors"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Flag values shared by every command.
	verbose    bool
	configPath string
	backend    string

	cfg *config.Config

	// openEngine is replaced in tests to run commands against a
	// preloaded store.
	openEngine func(ctx context.Context) (*engine.Engine, error)
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{Logger: newLogger(w, level)}
	c.openEngine = c.defaultEngine
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "workgraph",
		Short: "workgraph tracks work items and the dependencies between them",
		Long: `workgraph is a dependency-aware work tracker. It stores typed edges between
work items, refuses edges that would create blocking cycles, answers "what
can be worked on now", splits an epic into parallel waves and draws the
dependency graph.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/workgraph/config.toml)")
	pf.StringVar(&c.backend, "store", "", "store backend: memory, sqlite, badger, redis, mongo")

	root.AddCommand(c.itemCommand())
	root.AddCommand(c.depCommand())
	root.AddCommand(c.readyCommand())
	root.AddCommand(c.blockedCommand())
	root.AddCommand(c.cyclesCommand())
	root.AddCommand(c.swarmCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and applies global flags on top of it.
func (c *CLI) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.backend != "" {
		cfg.Store.Backend = c.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level := cfg.LogLevel()
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	for _, key := range cfg.Unknown {
		c.Logger.Warn("Unknown config key", "key", key, "file", cfg.Source)
	}
	c.cfg = cfg
	return nil
}

// config returns the loaded configuration, or defaults when setup has not
// run.
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Engine Factory
// =============================================================================

// defaultEngine opens the configured store and wraps it in an engine.
func (c *CLI) defaultEngine(ctx context.Context) (*engine.Engine, error) {
	cfg := c.config()
	st, err := openStore(ctx, cfg.Store, c.Logger)
	if err != nil {
		return nil, err
	}
	ac, err := newCache(cfg.Cache)
	if err != nil {
		st.Close()
		return nil, err
	}
	return engine.New(st, engine.Options{
		Logger:       c.Logger,
		Cache:        ac,
		ExcludeTypes: cfg.ExcludeTypes(),
		GroupTypes:   cfg.GroupTypes(),
	}), nil
}

// withEngine opens an engine for the duration of fn.
func (c *CLI) withEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	e, err := c.openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			c.Logger.Warn("Close store", "err", cerr)
		}
	}()
	return fn(e)
}

func newCache(cfg config.CacheConfig) (cache.Cache, error) {
	if cfg.Disabled || cfg.Dir == "" {
		return cache.NewDisabled(), nil
	}
	fc, err := cache.NewFileCache(cfg.Dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open cache %s", cfg.Dir)
	}
	return fc, nil
}

// =============================================================================
// Output Helpers
// =============================================================================

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
