package engine

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/workgraph/pkg/cache"
	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/dag/transform"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/observability"
	"github.com/matzehuels/workgraph/pkg/ready"
	"github.com/matzehuels/workgraph/pkg/store"
	"github.com/matzehuels/workgraph/pkg/swarm"
)

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Logger receives operation logs. Defaults to log.Default().
	Logger *log.Logger

	// Hooks receives engine events. Defaults to observability.Engine().
	Hooks observability.EngineHooks

	// Cache stores rendered SVG. Defaults to cache.NewDisabled().
	Cache cache.Cache

	// Keyer derives artifact cache keys. Defaults to cache.NewDefaultKeyer().
	Keyer cache.Keyer

	// ExcludeTypes is applied to ready-work filters that leave
	// ExcludeTypes nil. Nil keeps ready.DefaultExcludeTypes.
	ExcludeTypes []dag.IssueType

	// GroupTypes are the issue types accepted as epics by the swarm
	// operations. Nil means swarm.DefaultGroupTypes.
	GroupTypes []dag.IssueType

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Engine runs graph operations against a store.
type Engine struct {
	store        store.Store
	logger       *log.Logger
	hooks        observability.EngineHooks
	cache        cache.Cache
	keyer        cache.Keyer
	excludeTypes []dag.IssueType
	groupTypes   []dag.IssueType
	now          func() time.Time
}

// New creates an engine over st.
func New(st store.Store, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.Engine()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewDisabled()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.GroupTypes == nil {
		opts.GroupTypes = swarm.DefaultGroupTypes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:        st,
		logger:       opts.Logger,
		hooks:        opts.Hooks,
		cache:        opts.Cache,
		keyer:        opts.Keyer,
		excludeTypes: opts.ExcludeTypes,
		groupTypes:   opts.GroupTypes,
		now:          opts.Now,
	}
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Close releases the store and the cache.
func (e *Engine) Close() error {
	cerr := e.cache.Close()
	if err := e.store.Close(); err != nil {
		return err
	}
	return cerr
}

// snapshot loads every item and the edges selected by blockingOnly.
func (e *Engine) snapshot(ctx context.Context, blockingOnly bool) ([]*dag.Item, []dag.Edge, error) {
	items, err := e.store.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		return nil, nil, err
	}
	var edges []dag.Edge
	if blockingOnly {
		edges, err = e.store.ListBlockingEdges(ctx)
	} else {
		edges, err = e.store.ListEdges(ctx)
	}
	if err != nil {
		return nil, nil, err
	}
	return items, edges, nil
}

// ReadyWork returns open items with no unresolved blocking dependency,
// filtered and ordered by f.
func (e *Engine) ReadyWork(ctx context.Context, f ready.Filter) ([]*dag.Item, error) {
	start := time.Now()
	items, edges, err := e.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	if f.ExcludeTypes == nil && e.excludeTypes != nil {
		f.ExcludeTypes = e.excludeTypes
	}
	out := ready.Resolve(items, edges, f, e.now())

	elapsed := time.Since(start)
	e.hooks.OnReadyComputed(ctx, len(out), elapsed)
	e.logger.Debug("computed ready work",
		"items", len(items),
		"edges", len(edges),
		"ready", len(out),
		"duration", elapsed)
	return out, nil
}

// Blocked returns non-closed items that wait on at least one unresolved
// blocking dependency.
func (e *Engine) Blocked(ctx context.Context) ([]ready.BlockedItem, error) {
	items, edges, err := e.snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	out := ready.Blocked(items, edges)
	e.logger.Debug("computed blocked work", "blocked", len(out))
	return out, nil
}

// AddDependency records that edge.From depends on edge.To. An empty kind
// means blocks. Inserts that would close a blocking cycle fail with
// CYCLE_DETECTED and leave the store unchanged.
func (e *Engine) AddDependency(ctx context.Context, edge dag.Edge) error {
	if edge.Kind == "" {
		edge.Kind = dag.KindBlocks
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = e.now().UTC()
	}

	err := e.store.InsertEdge(ctx, edge)
	if cerr, ok := errors.AsCycle(err); ok {
		e.hooks.OnCycleRejected(ctx, string(edge.Kind))
		e.logger.Warn("rejected dependency", "from", cerr.From, "to", cerr.To, "kind", cerr.Kind, "reason", "cycle")
		return err
	}
	if err != nil {
		return err
	}

	e.hooks.OnEdgeInserted(ctx, string(edge.Kind))
	e.logger.Debug("added dependency", "from", edge.From, "to", edge.To, "kind", edge.Kind)
	return nil
}

// RemoveDependency deletes every edge from -> to. Removing a missing edge
// succeeds.
func (e *Engine) RemoveDependency(ctx context.Context, from, to string) error {
	if err := e.store.DeleteEdge(ctx, from, to); err != nil {
		return err
	}
	e.logger.Debug("removed dependency", "from", from, "to", to)
	return nil
}

// Dependencies returns the edges touching id. It fails with NOT_FOUND when
// id does not exist.
func (e *Engine) Dependencies(ctx context.Context, id string) ([]dag.EdgeRef, error) {
	if _, err := e.store.GetItem(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListEdgesFor(ctx, id)
}

// DetectCycles lists every elementary cycle among blocking edges, each
// rotated to start at its smallest ID. A healthy store returns none.
func (e *Engine) DetectCycles(ctx context.Context) ([][]string, error) {
	edges, err := e.store.ListBlockingEdges(ctx)
	if err != nil {
		return nil, err
	}
	cycles := transform.EnumerateCycles(edges)
	for i, c := range cycles {
		cycles[i] = transform.NormalizeCycle(c)
	}
	if len(cycles) > 0 {
		e.logger.Warn("blocking cycles present", "count", len(cycles))
	}
	return cycles, nil
}

// SwarmValidate partitions the children of epicID into waves. It fails
// with NOT_FOUND for an unknown ID and NOT_AN_EPIC when the item's type is
// not a group type. A non-swarmable result is not an error.
func (e *Engine) SwarmValidate(ctx context.Context, epicID string) (*swarm.Analysis, error) {
	a, _, err := e.analyze(ctx, epicID)
	return a, err
}

// SwarmStatus reports per-wave progress for epicID.
func (e *Engine) SwarmStatus(ctx context.Context, epicID string) (*swarm.Progress, error) {
	a, children, err := e.analyze(ctx, epicID)
	if err != nil {
		return nil, err
	}
	return swarm.Status(a, children), nil
}

func (e *Engine) analyze(ctx context.Context, epicID string) (*swarm.Analysis, []*dag.Item, error) {
	start := time.Now()
	epic, err := e.store.GetItem(ctx, epicID)
	if err != nil {
		return nil, nil, err
	}
	if err := swarm.CheckEpic(epic, e.groupTypes); err != nil {
		return nil, nil, err
	}
	edges, err := e.store.ListEdges(ctx)
	if err != nil {
		return nil, nil, err
	}

	var children []*dag.Item
	if ids := swarm.ChildIDs(epicID, edges); len(ids) > 0 {
		children, err = e.store.ListItems(ctx, store.ItemFilter{IDs: ids})
		if err != nil {
			return nil, nil, err
		}
	}

	a := swarm.Analyze(epic, children, edges)
	elapsed := time.Since(start)
	e.hooks.OnSwarmAnalyzed(ctx, len(a.Waves), a.Swarmable, elapsed)
	e.logger.Debug("analyzed epic",
		"epic", epicID,
		"children", a.ChildCount(),
		"waves", len(a.Waves),
		"swarmable", a.Swarmable,
		"duration", elapsed)
	return a, children, nil
}
