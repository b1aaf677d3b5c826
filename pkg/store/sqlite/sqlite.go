// Package sqlite provides the default persistent edge store, backed by a
// single SQLite connection (zombiezen.com/go/sqlite).
//
// One connection sits behind a mutex, so writers are serialized in-process
// and every edge insert runs its cycle check and its INSERT inside one
// IMMEDIATE transaction. Use ":memory:" as the path for a throwaway
// database.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	status      TEXT NOT NULL,
	priority    INTEGER NOT NULL,
	issue_type  TEXT NOT NULL,
	assignee    TEXT NOT NULL DEFAULT '',
	labels      TEXT NOT NULL DEFAULT '[]',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	defer_until INTEGER,
	ephemeral   INTEGER NOT NULL DEFAULT 0,
	is_template INTEGER NOT NULL DEFAULT 0,
	pinned      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS edges (
	from_id    TEXT NOT NULL,
	to_id      TEXT NOT NULL,
	kind       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (from_id, to_id, kind)
);

CREATE INDEX IF NOT EXISTS edges_to ON edges (to_id);
CREATE INDEX IF NOT EXISTS items_status ON items (status);
`

const itemColumns = `id, title, status, priority, issue_type, assignee, labels,
	created_at, updated_at, defer_until, ephemeral, is_template, pinned`

// Config configures the SQLite store.
type Config struct {
	// Path is the database file. The parent directory is created if
	// needed. ":memory:" opens a private in-memory database.
	Path string

	// Logger receives open/close messages. Nil disables logging.
	Logger *log.Logger
}

// Store is a SQLite-backed edge store. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	path   string
	logger *log.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database and applies the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "sqlite: path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "create database directory")
		}
	}

	conn, err := sqlite.OpenConn(cfg.Path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s", cfg.Path)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "%s", pragma)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "apply schema")
	}

	logger.Debug("sqlite store opened", "path", cfg.Path)
	return &Store{conn: conn, path: cfg.Path, logger: logger}, nil
}

// lock takes the connection for the duration of one operation and wires
// ctx cancellation to SQLite's interrupt.
func (s *Store) lock(ctx context.Context) func() {
	s.mu.Lock()
	old := s.conn.SetInterrupt(ctx.Done())
	return func() {
		s.conn.SetInterrupt(old)
		s.mu.Unlock()
	}
}

func (s *Store) GetItem(ctx context.Context, id string) (*dag.Item, error) {
	defer s.lock(ctx)()

	var found *dag.Item
	var scanErr error
	err := sqlitex.Execute(s.conn, "SELECT "+itemColumns+" FROM items WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found, scanErr = scanItem(stmt)
			return scanErr
		},
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "get item %s", id)
	}
	if found == nil {
		return nil, errors.NotFound(id)
	}
	return found, nil
}

func (s *Store) ListItems(ctx context.Context, f store.ItemFilter) ([]*dag.Item, error) {
	defer s.lock(ctx)()

	var out []*dag.Item
	err := sqlitex.Execute(s.conn, "SELECT "+itemColumns+" FROM items ORDER BY id", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			it, err := scanItem(stmt)
			if err != nil {
				return err
			}
			if f.Match(it) {
				out = append(out, it)
			}
			return nil
		},
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
	labels, err := json.Marshal(nonNil(it.Labels))
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	var deferUntil any
	if it.DeferUntil != nil {
		deferUntil = it.DeferUntil.UnixNano()
	}

	defer s.lock(ctx)()
	err = sqlitex.Execute(s.conn, `INSERT OR REPLACE INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			it.ID, it.Title, string(it.Status), it.Priority, string(it.IssueType), it.Assignee, string(labels),
			unixNano(it.CreatedAt), unixNano(it.UpdatedAt), deferUntil,
			boolInt(it.Ephemeral), boolInt(it.IsTemplate), boolInt(it.Pinned),
		},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "put item %s", it.ID)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context) ([]dag.Edge, error) {
	defer s.lock(ctx)()
	return s.loadEdges()
}

func (s *Store) ListBlockingEdges(ctx context.Context) ([]dag.Edge, error) {
	edges, err := s.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	return dag.BlockingOnly(edges), nil
}

func (s *Store) ListEdgesFor(ctx context.Context, id string) ([]dag.EdgeRef, error) {
	defer s.lock(ctx)()

	var refs []dag.EdgeRef
	err := sqlitex.Execute(s.conn, `
		SELECT to_id, kind, 'outgoing' FROM edges WHERE from_id = ?1
		UNION ALL
		SELECT from_id, kind, 'incoming' FROM edges WHERE to_id = ?1`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			refs = append(refs, dag.EdgeRef{
				Peer:      stmt.ColumnText(0),
				Kind:      dag.Kind(stmt.ColumnText(1)),
				Direction: dag.Direction(stmt.ColumnText(2)),
			})
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list edges for %s", id)
	}
	store.SortRefs(refs)
	return refs, nil
}

func (s *Store) InsertEdge(ctx context.Context, e dag.Edge) (err error) {
	defer s.lock(ctx)()

	endTransaction, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "begin transaction")
	}
	defer endTransaction(&err)

	existing, err := s.loadEdges()
	if err != nil {
		return err
	}
	known, err := s.existingIDs(e.From, e.To)
	if err != nil {
		return err
	}
	ok, err := store.CheckInsert(e, existing, func(id string) bool { return known[id] })
	if err != nil || !ok {
		return err
	}

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	err = sqlitex.Execute(s.conn, `INSERT INTO edges (from_id, to_id, kind, created_at, created_by)
		VALUES (?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{e.From, e.To, string(e.Kind), unixNano(created), e.CreatedBy},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "insert edge %s -> %s", e.From, e.To)
	}
	return nil
}

func (s *Store) DeleteEdge(ctx context.Context, from, to string) error {
	defer s.lock(ctx)()
	err := sqlitex.Execute(s.conn, "DELETE FROM edges WHERE from_id = ? AND to_id = ?", &sqlitex.ExecOptions{
		Args: []any{from, to},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete edge %s -> %s", from, to)
	}
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Close(); err != nil {
		s.logger.Error("sqlite close error", "path", s.path, "error", err)
		return errors.Wrap(errors.ErrCodeStorage, err, "close %s", s.path)
	}
	s.logger.Debug("sqlite store closed", "path", s.path)
	return nil
}

// loadEdges reads every edge. Callers hold the lock.
func (s *Store) loadEdges() ([]dag.Edge, error) {
	var out []dag.Edge
	err := sqlitex.Execute(s.conn, "SELECT from_id, to_id, kind, created_at, created_by FROM edges ORDER BY from_id, to_id, kind", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			out = append(out, dag.Edge{
				From:      stmt.ColumnText(0),
				To:        stmt.ColumnText(1),
				Kind:      dag.Kind(stmt.ColumnText(2)),
				CreatedAt: fromUnixNano(stmt.ColumnInt64(3)),
				CreatedBy: stmt.ColumnText(4),
			})
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list edges")
	}
	return out, nil
}

func (s *Store) existingIDs(ids ...string) (map[string]bool, error) {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		err := sqlitex.Execute(s.conn, "SELECT 1 FROM items WHERE id = ?", &sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(*sqlite.Stmt) error {
				known[id] = true
				return nil
			},
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "look up %s", id)
		}
	}
	return known, nil
}

// unixNano stores the zero time as 0; UnixNano overflows for it.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func scanItem(stmt *sqlite.Stmt) (*dag.Item, error) {
	it := &dag.Item{
		ID:         stmt.ColumnText(0),
		Title:      stmt.ColumnText(1),
		Status:     dag.Status(stmt.ColumnText(2)),
		Priority:   stmt.ColumnInt(3),
		IssueType:  dag.IssueType(stmt.ColumnText(4)),
		Assignee:   stmt.ColumnText(5),
		CreatedAt:  fromUnixNano(stmt.ColumnInt64(7)),
		UpdatedAt:  fromUnixNano(stmt.ColumnInt64(8)),
		Ephemeral:  stmt.ColumnInt(10) != 0,
		IsTemplate: stmt.ColumnInt(11) != 0,
		Pinned:     stmt.ColumnInt(12) != 0,
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(6)), &it.Labels); err != nil {
		return nil, fmt.Errorf("decode labels of %s: %w", it.ID, err)
	}
	if len(it.Labels) == 0 {
		it.Labels = nil
	}
	if stmt.ColumnType(9) != sqlite.TypeNull {
		t := time.Unix(0, stmt.ColumnInt64(9)).UTC()
		it.DeferUntil = &t
	}
	return it, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
