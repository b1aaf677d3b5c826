package cli

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/workgraph/pkg/config"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
	"github.com/matzehuels/workgraph/pkg/store/badger"
	"github.com/matzehuels/workgraph/pkg/store/memory"
	"github.com/matzehuels/workgraph/pkg/store/mongo"
	"github.com/matzehuels/workgraph/pkg/store/redis"
	"github.com/matzehuels/workgraph/pkg/store/sqlite"
)

// openStore opens the backend selected by cfg.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *log.Logger) (store.Store, error) {
	logger.Debug("Opening store", "backend", cfg.Backend)
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		return sqlite.Open(sqlite.Config{Path: cfg.Path, Logger: logger})
	case config.BackendBadger:
		return badger.Open(badger.Config{Path: cfg.Path, Logger: logger})
	case config.BackendRedis:
		return redis.Open(ctx, redis.Config{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Prefix: cfg.RedisPrefix,
		})
	case config.BackendMongo:
		return mongo.Open(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", cfg.Backend)
}
