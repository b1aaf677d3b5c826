// Package redis provides a shared edge store on Redis.
//
// Items live in one hash and edges in another, both under a configurable
// key prefix:
//
//	<prefix>items  field <id>                    -> JSON dag.Item
//	<prefix>edges  field <from>\x00<to>\x00<kind> -> JSON dag.Edge
//
// Edge inserts use optimistic WATCH/MULTI transactions on both hashes, so
// two processes inserting opposite edges cannot both commit.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
)

// DefaultPrefix namespaces workgraph keys.
const DefaultPrefix = "workgraph:"

// maxTxRetries bounds WATCH retries on contention.
const maxTxRetries = 16

// Config configures the Redis store.
type Config struct {
	// Addr is host:port. Defaults to localhost:6379.
	Addr string
	// Password for AUTH, if any.
	Password string
	// DB selects the logical database.
	DB int
	// Prefix namespaces all keys. Defaults to [DefaultPrefix].
	Prefix string
}

// Store is a Redis-backed edge store. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	client *goredis.Client
	items  string
	edges  string
}

var _ store.Store = (*Store)(nil)

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := store.Connect(ctx, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to redis at %s", cfg.Addr)
	}
	return New(client, cfg.Prefix), nil
}

// New wraps an existing client. An empty prefix uses [DefaultPrefix].
func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, items: prefix + "items", edges: prefix + "edges"}
}

func field(from, to string, kind dag.Kind) string {
	return from + "\x00" + to + "\x00" + string(kind)
}

func (s *Store) GetItem(ctx context.Context, id string) (*dag.Item, error) {
	data, err := s.client.HGet(ctx, s.items, id).Bytes()
	if err == goredis.Nil {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "get item %s", id)
	}
	var it dag.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode item %s", id)
	}
	return &it, nil
}

func (s *Store) ListItems(ctx context.Context, f store.ItemFilter) ([]*dag.Item, error) {
	var raw map[string]string
	var err error
	if len(f.IDs) > 0 {
		raw, err = s.itemsByID(ctx, s.client, f.IDs)
	} else {
		raw, err = s.client.HGetAll(ctx, s.items).Result()
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list items")
	}
	out := make([]*dag.Item, 0, len(raw))
	for id, data := range raw {
		var it dag.Item
		if err := json.Unmarshal([]byte(data), &it); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode item %s", id)
		}
		if f.Match(&it) {
			out = append(out, &it)
		}
	}
	dag.SortItems(out)
	return out, nil
}

func (s *Store) itemsByID(ctx context.Context, c goredis.Cmdable, ids []string) (map[string]string, error) {
	vals, err := c.HMGet(ctx, s.items, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ids))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[ids[i]] = str
		}
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
	if err := s.client.HSet(ctx, s.items, it.ID, data).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "put item %s", it.ID)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context) ([]dag.Edge, error) {
	edges, err := s.loadEdges(ctx, s.client)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list edges")
	}
	return edges, nil
}

func (s *Store) ListBlockingEdges(ctx context.Context) ([]dag.Edge, error) {
	edges, err := s.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	return dag.BlockingOnly(edges), nil
}

func (s *Store) ListEdgesFor(ctx context.Context, id string) ([]dag.EdgeRef, error) {
	edges, err := s.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	return store.RefsFor(id, edges), nil
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
	txf := func(tx *goredis.Tx) error {
		rejected = nil
		existing, err := s.loadEdges(ctx, tx)
		if err != nil {
			return err
		}
		found, err := s.itemsByID(ctx, tx, []string{e.From, e.To})
		if err != nil {
			return err
		}
		ok, checkErr := store.CheckInsert(e, existing, func(id string) bool {
			_, present := found[id]
			return present
		})
		if checkErr != nil || !ok {
			rejected = checkErr
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, s.edges, field(e.From, e.To, e.Kind), data)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err = s.client.Watch(ctx, txf, s.edges, s.items)
		if err == goredis.TxFailedErr {
			continue
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "insert edge %s -> %s", e.From, e.To)
		}
		return rejected
	}
	return errors.New(errors.ErrCodeStorage, "insert edge %s -> %s: too much contention", e.From, e.To)
}

func (s *Store) DeleteEdge(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := s.client.HKeys(ctx, s.edges).Result()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete edge %s -> %s", from, to)
	}
	pair := from + "\x00" + to + "\x00"
	var victims []string
	for _, f := range fields {
		if strings.HasPrefix(f, pair) {
			victims = append(victims, f)
		}
	}
	if len(victims) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.edges, victims...).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete edge %s -> %s", from, to)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) loadEdges(ctx context.Context, c goredis.Cmdable) ([]dag.Edge, error) {
	raw, err := c.HGetAll(ctx, s.edges).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]dag.Edge, 0, len(keys))
	for _, k := range keys {
		var e dag.Edge
		if err := json.Unmarshal([]byte(raw[k]), &e); err != nil {
			return nil, fmt.Errorf("decode edge %q: %w", k, err)
		}
		out = append(out, e)
	}
	return out, nil
}
