// Package memory provides an in-process edge store.
//
// It backs tests and `--store memory`. Contents are lost when the process
// exits.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
)

// Store is an in-memory edge store. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items map[string]*dag.Item
	edges []dag.Edge
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{items: make(map[string]*dag.Item)}
}

// GetItem returns a copy of the item, or NOT_FOUND.
func (s *Store) GetItem(ctx context.Context, id string) (*dag.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	return it.Clone(), nil
}

// ListItems returns copies of the items matching f, sorted by ID.
func (s *Store) ListItems(ctx context.Context, f store.ItemFilter) ([]*dag.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*dag.Item
	for _, it := range s.items {
		if f.Match(it) {
			out = append(out, it.Clone())
		}
	}
	dag.SortItems(out)
	return out, nil
}

// PutItem validates it and stores a copy, replacing any item with the same ID.
func (s *Store) PutItem(ctx context.Context, it *dag.Item) error {
	if err := store.ValidateItem(it); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = it.Clone()
	return nil
}

// ListEdges returns every edge in insertion order.
func (s *Store) ListEdges(ctx context.Context) ([]dag.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.edges), nil
}

// ListBlockingEdges returns the edges whose kind blocks readiness.
func (s *Store) ListBlockingEdges(ctx context.Context) ([]dag.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dag.BlockingOnly(s.edges), nil
}

// ListEdgesFor returns the edges touching id from id's point of view.
func (s *Store) ListEdgesFor(ctx context.Context, id string) ([]dag.EdgeRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.RefsFor(id, s.edges), nil
}

// InsertEdge checks e against the stored edges and inserts it while holding
// the write lock, so a rejected edge leaves the store unchanged.
func (s *Store) InsertEdge(ctx context.Context, e dag.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := store.CheckInsert(e, s.edges, func(id string) bool {
		_, found := s.items[id]
		return found
	})
	if err != nil || !ok {
		return err
	}
	s.edges = append(s.edges, e)
	return nil
}

// DeleteEdge removes every edge from one item to the other.
func (s *Store) DeleteEdge(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = slices.DeleteFunc(s.edges, func(e dag.Edge) bool {
		return e.From == from && e.To == to
	})
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
