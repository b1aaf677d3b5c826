package dag

import (
	"slices"
	"time"
)

// Status is the workflow state of an item. The constants below are the
// statuses the engine reasons about; stores may hold custom values, which
// are treated as "not open" and "not closed".
type Status string

// Item statuses.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDeferred   Status = "deferred"
	StatusClosed     Status = "closed"
)

// IsClosed reports whether the status resolves dependencies on the item.
func (s Status) IsClosed() bool { return s == StatusClosed }

// IssueType classifies an item. The set is open; the constants are the
// types the engine gives special treatment.
type IssueType string

// Item types.
const (
	TypeTask     IssueType = "task"
	TypeBug      IssueType = "bug"
	TypeFeature  IssueType = "feature"
	TypeChore    IssueType = "chore"
	TypeEpic     IssueType = "epic"
	TypeGate     IssueType = "gate"
	TypeMolecule IssueType = "molecule"
)

// Item is the minimal view of a work item the graph engine needs. The
// engine reads these fields and never mutates them.
type Item struct {
	ID         string     `json:"id" yaml:"id" bson:"_id"`
	Title      string     `json:"title" yaml:"title" bson:"title"`
	Status     Status     `json:"status" yaml:"status" bson:"status"`
	Priority   int        `json:"priority" yaml:"priority" bson:"priority"` // 0 = highest, 4 = lowest
	IssueType  IssueType  `json:"issue_type" yaml:"issue_type" bson:"issue_type"`
	Assignee   string     `json:"assignee,omitempty" yaml:"assignee,omitempty" bson:"assignee,omitempty"`
	Labels     []string   `json:"labels,omitempty" yaml:"labels,omitempty" bson:"labels,omitempty"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at" bson:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"updated_at" bson:"updated_at"`
	DeferUntil *time.Time `json:"defer_until,omitempty" yaml:"defer_until,omitempty" bson:"defer_until,omitempty"`
	Ephemeral  bool       `json:"ephemeral,omitempty" yaml:"ephemeral,omitempty" bson:"ephemeral,omitempty"`
	IsTemplate bool       `json:"is_template,omitempty" yaml:"is_template,omitempty" bson:"is_template,omitempty"`
	Pinned     bool       `json:"pinned,omitempty" yaml:"pinned,omitempty" bson:"pinned,omitempty"`
}

// Clone returns a deep copy of the item.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	c := *it
	c.Labels = slices.Clone(it.Labels)
	if it.DeferUntil != nil {
		t := *it.DeferUntil
		c.DeferUntil = &t
	}
	return &c
}

// HasLabel reports whether the item carries the label.
func (it *Item) HasLabel(label string) bool {
	return slices.Contains(it.Labels, label)
}

// IsDeferred reports whether the item is hidden until a future time.
func (it *Item) IsDeferred(now time.Time) bool {
	return it.DeferUntil != nil && now.Before(*it.DeferUntil)
}

// Edge is a directed, typed dependency: From depends on To.
// The (From, To, Kind) triple identifies an edge.
type Edge struct {
	From      string    `json:"from" yaml:"from" bson:"from"`
	To        string    `json:"to" yaml:"to" bson:"to"`
	Kind      Kind      `json:"kind" yaml:"kind" bson:"kind"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty" bson:"created_at"`
	CreatedBy string    `json:"created_by,omitempty" yaml:"created_by,omitempty" bson:"created_by,omitempty"`
}

// SameTriple reports whether two edges share identity.
func (e Edge) SameTriple(o Edge) bool {
	return e.From == o.From && e.To == o.To && e.Kind == o.Kind
}

// Direction tells which side of an edge an item is on.
type Direction string

// Edge directions relative to the queried item.
const (
	// Outgoing: the item depends on the peer.
	Outgoing Direction = "outgoing"
	// Incoming: the peer depends on the item.
	Incoming Direction = "incoming"
)

// EdgeRef is an edge seen from one endpoint.
type EdgeRef struct {
	Peer      string    `json:"peer"`
	Kind      Kind      `json:"kind"`
	Direction Direction `json:"direction"`
}

// BlockingOnly filters edges down to blocking kinds, preserving order.
func BlockingOnly(edges []Edge) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.Kind.IsBlocking() {
			out = append(out, e)
		}
	}
	return out
}

// SortItems orders items by id for deterministic output.
func SortItems(items []*Item) {
	slices.SortFunc(items, func(a, b *Item) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
