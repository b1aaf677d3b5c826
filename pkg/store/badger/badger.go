// Package badger provides an embedded key-value edge store on
// dgraph-io/badger/v4.
//
// # Key Layout
//
//	item/<id>                     JSON-encoded dag.Item
//	edge/<from>\x00<to>\x00<kind> JSON-encoded dag.Edge
//	redge/<to>\x00<from>\x00<kind> empty; reverse index for incoming edges
//
// Item IDs never contain NUL bytes, so the separator is unambiguous.
// Inserts run in a single Update transaction under the store mutex.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
)

const (
	prefixItem  = "item/"
	prefixEdge  = "edge/"
	prefixREdge = "redge/"
	sep         = "\x00"
)

// Config configures the badger store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives badger's internal messages. Nil silences them.
	Logger *log.Logger
}

// InMemoryConfig returns a configuration for a throwaway database.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts charmbracelet/log to badger.Logger.
type badgerLogger struct {
	logger *log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is a badger-backed edge store. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex
	db *badger.DB
}

var _ store.Store = (*Store)(nil)

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "badger: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "create database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.WithPrefix("badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open badger database")
	}
	return &Store{db: db}, nil
}

func itemKey(id string) []byte { return []byte(prefixItem + id) }

func edgeKey(e dag.Edge) []byte {
	return []byte(prefixEdge + e.From + sep + e.To + sep + string(e.Kind))
}

func reverseKey(e dag.Edge) []byte {
	return []byte(prefixREdge + e.To + sep + e.From + sep + string(e.Kind))
}

func (s *Store) GetItem(ctx context.Context, id string) (*dag.Item, error) {
	var it *dag.Item
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		it, err = getItem(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, errors.NotFound(id)
	}
	return it, nil
}

func (s *Store) ListItems(ctx context.Context, f store.ItemFilter) ([]*dag.Item, error) {
	var out []*dag.Item
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(prefixItem), func(_, val []byte) error {
			var it dag.Item
			if err := json.Unmarshal(val, &it); err != nil {
				return fmt.Errorf("decode item: %w", err)
			}
			if f.Match(&it) {
				out = append(out, &it)
			}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list items")
	}
	return out, nil
}

func (s *Store) PutItem(ctx context.Context, it *dag.Item) error {
	if err := store.ValidateItem(it); err != nil {
		return err
	}
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(itemKey(it.ID), data)
	}); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "put item %s", it.ID)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context) ([]dag.Edge, error) {
	var out []dag.Edge
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = loadEdges(txn)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list edges")
	}
	return out, nil
}

func (s *Store) ListBlockingEdges(ctx context.Context) ([]dag.Edge, error) {
	edges, err := s.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	return dag.BlockingOnly(edges), nil
}

func (s *Store) ListEdgesFor(ctx context.Context, id string) ([]dag.EdgeRef, error) {
	var refs []dag.EdgeRef
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scan(txn, []byte(prefixEdge+id+sep), func(key, _ []byte) error {
			_, peer, kind := splitKey(key, prefixEdge)
			refs = append(refs, dag.EdgeRef{Peer: peer, Kind: kind, Direction: dag.Outgoing})
			return nil
		}); err != nil {
			return err
		}
		return scan(txn, []byte(prefixREdge+id+sep), func(key, _ []byte) error {
			_, peer, kind := splitKey(key, prefixREdge)
			refs = append(refs, dag.EdgeRef{Peer: peer, Kind: kind, Direction: dag.Incoming})
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list edges for %s", id)
	}
	store.SortRefs(refs)
	return refs, nil
}

func (s *Store) InsertEdge(ctx context.Context, e dag.Edge) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode edge: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rejected error
	err = s.db.Update(func(txn *badger.Txn) error {
		existing, err := loadEdges(txn)
		if err != nil {
			return err
		}
		known := make(map[string]bool, 2)
		for _, id := range []string{e.From, e.To} {
			it, err := getItem(txn, id)
			if err != nil {
				return err
			}
			known[id] = it != nil
		}
		ok, checkErr := store.CheckInsert(e, existing, func(id string) bool { return known[id] })
		if checkErr != nil || !ok {
			rejected = checkErr
			return nil
		}
		if err := txn.Set(edgeKey(e), data); err != nil {
			return err
		}
		return txn.Set(reverseKey(e), nil)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "insert edge %s -> %s", e.From, e.To)
	}
	return rejected
}

func (s *Store) DeleteEdge(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		var victims []dag.Edge
		if err := scan(txn, []byte(prefixEdge+from+sep+to+sep), func(key, _ []byte) error {
			f, t, kind := splitKey(key, prefixEdge)
			victims = append(victims, dag.Edge{From: f, To: t, Kind: kind})
			return nil
		}); err != nil {
			return err
		}
		for _, e := range victims {
			if err := txn.Delete(edgeKey(e)); err != nil {
				return err
			}
			if err := txn.Delete(reverseKey(e)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete edge %s -> %s", from, to)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "close badger database")
	}
	return nil
}

func getItem(txn *badger.Txn, id string) (*dag.Item, error) {
	item, err := txn.Get(itemKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "get item %s", id)
	}
	var it dag.Item
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &it) }); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode item %s", id)
	}
	return &it, nil
}

func loadEdges(txn *badger.Txn) ([]dag.Edge, error) {
	var out []dag.Edge
	err := scan(txn, []byte(prefixEdge), func(_, val []byte) error {
		var e dag.Edge
		if err := json.Unmarshal(val, &e); err != nil {
			return fmt.Errorf("decode edge: %w", err)
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// scan calls fn for every key under prefix, in key order. The slices passed
// to fn are copies.
func scan(txn *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.KeyCopy(nil), val); err != nil {
			return err
		}
	}
	return nil
}

// splitKey decodes "<prefix><a>\x00<b>\x00<kind>".
func splitKey(key []byte, prefix string) (a, b string, kind dag.Kind) {
	parts := bytes.SplitN(key[len(prefix):], []byte(sep), 3)
	if len(parts) != 3 {
		return "", "", ""
	}
	return string(parts[0]), string(parts[1]), dag.Kind(parts[2])
}
