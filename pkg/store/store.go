package store

import (
	"context"
	"slices"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/dag/transform"
	"github.com/matzehuels/workgraph/pkg/errors"
)

// Store is the interface for edge store backends.
type Store interface {
	// GetItem returns the item or a NOT_FOUND error.
	GetItem(ctx context.Context, id string) (*dag.Item, error)

	// ListItems returns the items matching f, sorted by ID.
	ListItems(ctx context.Context, f ItemFilter) ([]*dag.Item, error)

	// PutItem creates or replaces an item.
	PutItem(ctx context.Context, it *dag.Item) error

	// ListEdges returns every edge, blocking or not.
	ListEdges(ctx context.Context) ([]dag.Edge, error)

	// ListBlockingEdges returns the edges whose kind is blocking.
	ListBlockingEdges(ctx context.Context) ([]dag.Edge, error)

	// ListEdgesFor returns the edges touching id, seen from id.
	ListEdgesFor(ctx context.Context, id string) ([]dag.EdgeRef, error)

	// InsertEdge adds an edge. It fails with CYCLE_DETECTED, NOT_FOUND or
	// INVALID_INPUT without changing anything. Re-inserting an existing
	// triple succeeds without effect.
	InsertEdge(ctx context.Context, e dag.Edge) error

	// DeleteEdge removes every edge from -> to regardless of kind. Deleting
	// a missing edge is not an error.
	DeleteEdge(ctx context.Context, from, to string) error

	// Close releases backend resources.
	Close() error
}

// ItemFilter selects items for [Store.ListItems]. The zero value selects
// everything.
type ItemFilter struct {
	// IDs restricts the result to these IDs.
	IDs []string
	// Statuses keeps items whose status is listed.
	Statuses []dag.Status
	// Type keeps items of this type.
	Type dag.IssueType
	// ExcludeClosed drops closed items.
	ExcludeClosed bool
}

// Match reports whether it passes the filter.
func (f ItemFilter) Match(it *dag.Item) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, it.ID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, it.Status) {
		return false
	}
	if f.Type != "" && it.IssueType != f.Type {
		return false
	}
	if f.ExcludeClosed && it.Status.IsClosed() {
		return false
	}
	return true
}

// ValidateItem checks the fields every backend relies on.
func ValidateItem(it *dag.Item) error {
	if it == nil {
		return errors.New(errors.ErrCodeInvalidInput, "item is nil")
	}
	if err := errors.ValidateID(it.ID); err != nil {
		return err
	}
	if err := errors.ValidateTitle(it.Title); err != nil {
		return err
	}
	return errors.ValidatePriority(it.Priority)
}

// CheckInsert validates inserting e into a store that currently holds
// existing and whose items are reported by exists. It returns false with a
// nil error when the triple is already present.
//
// Callers must hold their write lock from loading existing until the edge
// is written.
func CheckInsert(e dag.Edge, existing []dag.Edge, exists func(id string) bool) (bool, error) {
	if err := errors.ValidateID(e.From); err != nil {
		return false, err
	}
	if err := errors.ValidateID(e.To); err != nil {
		return false, err
	}
	if err := errors.ValidateKind(string(e.Kind)); err != nil {
		return false, err
	}
	if e.From == e.To {
		if e.Kind.IsBlocking() {
			return false, &errors.CycleError{From: e.From, To: e.To, Kind: string(e.Kind)}
		}
		return false, errors.New(errors.ErrCodeInvalidInput, "%s cannot relate to itself", e.From)
	}
	if !exists(e.From) {
		return false, errors.NotFound(e.From)
	}
	if !exists(e.To) {
		return false, errors.NotFound(e.To)
	}
	if slices.ContainsFunc(existing, e.SameTriple) {
		return false, nil
	}
	if e.Kind.IsBlocking() && transform.WouldCycle(dag.BlockingOnly(existing), e.From, e.To) {
		return false, &errors.CycleError{From: e.From, To: e.To, Kind: string(e.Kind)}
	}
	return true, nil
}

// RefsFor derives the edge references of id from a full edge list,
// outgoing first, each group ordered by peer then kind.
func RefsFor(id string, edges []dag.Edge) []dag.EdgeRef {
	var out []dag.EdgeRef
	for _, e := range edges {
		switch id {
		case e.From:
			out = append(out, dag.EdgeRef{Peer: e.To, Kind: e.Kind, Direction: dag.Outgoing})
		case e.To:
			out = append(out, dag.EdgeRef{Peer: e.From, Kind: e.Kind, Direction: dag.Incoming})
		}
	}
	SortRefs(out)
	return out
}

// SortRefs orders edge references: outgoing before incoming, then by peer
// and kind.
func SortRefs(refs []dag.EdgeRef) {
	slices.SortFunc(refs, func(a, b dag.EdgeRef) int {
		if a.Direction != b.Direction {
			if a.Direction == dag.Outgoing {
				return -1
			}
			return 1
		}
		if a.Peer != b.Peer {
			if a.Peer < b.Peer {
				return -1
			}
			return 1
		}
		switch {
		case a.Kind < b.Kind:
			return -1
		case a.Kind > b.Kind:
			return 1
		}
		return 0
	})
}

// SortEdges orders edges by from, to, kind.
func SortEdges(edges []dag.Edge) {
	slices.SortFunc(edges, func(a, b dag.Edge) int {
		switch {
		case a.From != b.From:
			return compare(a.From, b.From)
		case a.To != b.To:
			return compare(a.To, b.To)
		}
		return compare(string(a.Kind), string(b.Kind))
	})
}

func compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
