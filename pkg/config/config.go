// Package config loads workgraph settings from a TOML file.
//
// # Lookup Order
//
// The first of these that is set wins:
//
//  1. the --config flag
//  2. $WORKGRAPH_CONFIG
//  3. $XDG_CONFIG_HOME/workgraph/config.toml (or ~/.config/workgraph/config.toml)
//
// A missing file at the default location is not an error; the defaults
// apply. A missing file that was named explicitly is.
//
// # Example
//
//	[store]
//	backend = "sqlite"
//	path = "~/.local/share/workgraph/workgraph.db"
//
//	[ready]
//	exclude_types = ["gate", "molecule"]
//	sort = "oldest"
//	limit = 20
//
//	[swarm]
//	group_types = ["epic"]
//
//	[server]
//	addr = ":8080"
//
//	[cache]
//	disabled = false
//
//	[log]
//	level = "debug"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	charmlog "github.com/charmbracelet/log"

	"github.com/matzehuels/workgraph/pkg/dag"
	wgerrors "github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/ready"
)

// AppName names the XDG subdirectories.
const AppName = "workgraph"

// EnvConfig overrides the default config path.
const EnvConfig = "WORKGRAPH_CONFIG"

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Backends lists the accepted store backends.
var Backends = []string{BackendMemory, BackendSQLite, BackendBadger, BackendRedis, BackendMongo}

// Config is the decoded configuration file.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Ready  ReadyConfig  `toml:"ready"`
	Swarm  SwarmConfig  `toml:"swarm"`
	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`

	// Source is the file the configuration came from, empty for defaults.
	Source string `toml:"-"`
	// Unknown lists keys present in the file that were not recognized.
	Unknown []string `toml:"-"`
}

// StoreConfig selects and configures the edge store.
type StoreConfig struct {
	Backend string `toml:"backend"`
	// Path is the sqlite file or badger directory.
	Path          string `toml:"path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// ReadyConfig holds defaults for ready-work queries.
type ReadyConfig struct {
	// ExcludeTypes replaces the built-in exclusion list when set. An empty
	// list excludes nothing.
	ExcludeTypes []string `toml:"exclude_types"`
	Sort         string   `toml:"sort"`
	Limit        int      `toml:"limit"`
}

// SwarmConfig holds swarm settings.
type SwarmConfig struct {
	// GroupTypes are the issue types treated as epics.
	GroupTypes []string `toml:"group_types"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// CacheConfig configures the rendered-artifact cache.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:       BackendSQLite,
			Path:          filepath.Join(DataDir(), AppName+".db"),
			RedisAddr:     "localhost:6379",
			MongoDatabase: "workgraph",
		},
		Ready:  ReadyConfig{Sort: string(ready.SortPriority)},
		Server: ServerConfig{Addr: ":8080"},
		Cache:  CacheConfig{Dir: CacheDir()},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the configuration. explicit is the --config flag value.
func Load(explicit string) (*Config, error) {
	cfg := Default()
	path, named := Path(explicit)
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) && !named {
		return cfg, nil
	}
	if err != nil {
		return nil, wgerrors.Wrap(wgerrors.ErrCodeInvalidFormat, err, "read config %s", path)
	}
	cfg.Source = path
	for _, k := range md.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, k.String())
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	return cfg, nil
}

// Path resolves the config file location. named reports whether the user
// chose it through the flag or the environment.
func Path(explicit string) (path string, named bool) {
	if explicit != "" {
		return explicit, true
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env, true
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), false
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), false
}

// Validate checks enumerated values and required fields.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Store.Backend) {
		return wgerrors.New(wgerrors.ErrCodeInvalidInput,
			"unknown store backend %q (want %s)", c.Store.Backend, strings.Join(Backends, ", "))
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendBadger:
		if c.Store.Path == "" {
			return wgerrors.New(wgerrors.ErrCodeInvalidInput, "store.path is required for %s", c.Store.Backend)
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return wgerrors.New(wgerrors.ErrCodeInvalidInput, "store.mongo_uri is required for mongo")
		}
	}
	if _, err := ready.ParseSortPolicy(c.Ready.Sort); err != nil {
		return err
	}
	if c.Ready.Limit < 0 {
		return wgerrors.New(wgerrors.ErrCodeInvalidInput, "ready.limit must not be negative")
	}
	if _, err := charmlog.ParseLevel(c.Log.Level); err != nil {
		return wgerrors.New(wgerrors.ErrCodeInvalidInput, "unknown log level %q", c.Log.Level)
	}
	return nil
}

// ExcludeTypes returns the ready exclusion list, or nil for the built-in
// default.
func (c *Config) ExcludeTypes() []dag.IssueType { return issueTypes(c.Ready.ExcludeTypes) }

// GroupTypes returns the configured epic types, or nil for the built-in
// default.
func (c *Config) GroupTypes() []dag.IssueType { return issueTypes(c.Swarm.GroupTypes) }

// SortPolicy returns the parsed ready sort policy.
func (c *Config) SortPolicy() ready.SortPolicy {
	p, _ := ready.ParseSortPolicy(c.Ready.Sort)
	return p
}

// LogLevel returns the parsed log level, info when unset or invalid.
func (c *Config) LogLevel() charmlog.Level {
	l, err := charmlog.ParseLevel(c.Log.Level)
	if err != nil {
		return charmlog.InfoLevel
	}
	return l
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("# encode config: %v\n", err)
	}
	return b.String()
}

func issueTypes(in []string) []dag.IssueType {
	if in == nil {
		return nil
	}
	out := make([]dag.IssueType, len(in))
	for i, s := range in {
		out[i] = dag.IssueType(strings.TrimSpace(s))
	}
	return out
}

// DataDir returns $XDG_DATA_HOME/workgraph or ~/.local/share/workgraph.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// CacheDir returns $XDG_CACHE_HOME/workgraph or ~/.cache/workgraph.
func CacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(append(append([]string{home}, fallback...), AppName)...)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
