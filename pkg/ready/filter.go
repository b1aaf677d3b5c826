package ready

import (
	"slices"
	"strings"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
)

// SortPolicy selects the ordering of ready work.
type SortPolicy string

// Sort policies.
const (
	// SortPriority orders by priority ascending, then oldest first.
	SortPriority SortPolicy = "priority"
	// SortOldest orders by creation time only.
	SortOldest SortPolicy = "oldest"
)

// ParseSortPolicy validates a user-supplied sort policy. Empty input maps to
// [SortPriority].
func ParseSortPolicy(s string) (SortPolicy, error) {
	switch p := SortPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return SortPriority, nil
	case SortPriority, SortOldest:
		return p, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown sort policy %q (want priority or oldest)", s)
}

// DefaultExcludeTypes lists the workflow item types that never show up as
// ready work unless asked for by type.
var DefaultExcludeTypes = []dag.IssueType{"gate", "molecule", "message", "merge-request"}

// Filter narrows and orders ready work. The zero value selects every ready
// item with the default exclusion policy, sorted by priority.
type Filter struct {
	// Assignee keeps only items assigned to this user. Ignored when
	// Unassigned is set.
	Assignee string
	// Unassigned keeps only items with no assignee.
	Unassigned bool
	// Labels keeps items carrying every listed label.
	Labels []string
	// LabelsAny keeps items carrying at least one listed label.
	LabelsAny []string
	// Type keeps only items of this type. Setting it lifts the exclusion
	// policy for that type.
	Type dag.IssueType
	// Priority keeps only items with this priority.
	Priority *int

	// ExcludeTypes replaces DefaultExcludeTypes when non-nil. An empty,
	// non-nil slice excludes nothing.
	ExcludeTypes []dag.IssueType
	// IncludeEphemeral admits ephemeral items.
	IncludeEphemeral bool
	// IncludeDeferred admits items whose DeferUntil is still in the future.
	IncludeDeferred bool

	// Sort is the ordering policy. Unknown values fall back to SortPriority.
	Sort SortPolicy
	// Limit caps the result length. Zero means unlimited.
	Limit int
}

func (f Filter) excluded(t dag.IssueType) bool {
	if f.Type != "" {
		return false
	}
	if f.ExcludeTypes != nil {
		return slices.Contains(f.ExcludeTypes, t)
	}
	return slices.Contains(DefaultExcludeTypes, t)
}

// matches applies the post-readiness predicates.
func (f Filter) matches(it *dag.Item) bool {
	if f.Unassigned {
		if it.Assignee != "" {
			return false
		}
	} else if f.Assignee != "" && it.Assignee != f.Assignee {
		return false
	}

	for _, l := range f.Labels {
		if !it.HasLabel(l) {
			return false
		}
	}
	if len(f.LabelsAny) > 0 && !slices.ContainsFunc(f.LabelsAny, it.HasLabel) {
		return false
	}

	if f.Type != "" && it.IssueType != f.Type {
		return false
	}
	if f.Priority != nil && it.Priority != *f.Priority {
		return false
	}
	return true
}
