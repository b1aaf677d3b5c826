package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
	"github.com/matzehuels/workgraph/pkg/swarm"
)

// IDPrefix starts every generated item ID.
const IDPrefix = "wg-"

// NewID returns a fresh item ID of the form wg-xxxxxxxx.
func NewID() string {
	return IDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AddItem stores a new item. An empty ID is generated, defaults fill in
// status and type, and a non-empty parent links the item to that epic
// with a parent-child edge. It fails with INVALID_INPUT when the ID is
// already taken.
func (e *Engine) AddItem(ctx context.Context, it *dag.Item, parent string) (*dag.Item, error) {
	it = it.Clone()
	if it.ID == "" {
		id, err := e.freshID(ctx)
		if err != nil {
			return nil, err
		}
		it.ID = id
	} else if _, err := e.store.GetItem(ctx, it.ID); err == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "item %s already exists", it.ID)
	} else if !errors.Is(err, errors.ErrCodeNotFound) {
		return nil, err
	}
	if it.Status == "" {
		it.Status = dag.StatusOpen
	}
	if it.IssueType == "" {
		it.IssueType = dag.TypeTask
	}
	now := e.now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now

	if parent != "" {
		p, err := e.store.GetItem(ctx, parent)
		if err != nil {
			return nil, err
		}
		if err := swarm.CheckEpic(p, e.groupTypes); err != nil {
			return nil, err
		}
	}
	if err := e.store.PutItem(ctx, it); err != nil {
		return nil, err
	}
	if parent != "" {
		if err := e.AddDependency(ctx, dag.Edge{From: it.ID, To: parent, Kind: dag.KindParentChild}); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("added item", "id", it.ID, "type", it.IssueType, "parent", parent)
	return it, nil
}

func (e *Engine) freshID(ctx context.Context) (string, error) {
	for range 8 {
		id := NewID()
		_, err := e.store.GetItem(ctx, id)
		if errors.Is(err, errors.ErrCodeNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New(errors.ErrCodeInternal, "could not generate a unique item id")
}

// SetStatus changes an item's status.
func (e *Engine) SetStatus(ctx context.Context, id string, status dag.Status) (*dag.Item, error) {
	it, err := e.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	it.Status = status
	it.UpdatedAt = e.now().UTC()
	if err := e.store.PutItem(ctx, it); err != nil {
		return nil, err
	}
	e.logger.Debug("updated status", "id", id, "status", status)
	return it, nil
}

// Item returns one item.
func (e *Engine) Item(ctx context.Context, id string) (*dag.Item, error) {
	return e.store.GetItem(ctx, id)
}

// Items lists items matching f.
func (e *Engine) Items(ctx context.Context, f store.ItemFilter) ([]*dag.Item, error) {
	return e.store.ListItems(ctx, f)
}
