package dag

import "strings"

// Kind is the type of a dependency edge.
//
// The blocking variants form a closed vocabulary. Any other value is a
// custom annotation kind and is never blocking, so a typo or a kind added
// by a newer client degrades to "informational" instead of silently
// blocking work.
type Kind string

// Blocking edge kinds.
const (
	// KindBlocks is the plain "From cannot proceed until To closes" edge.
	KindBlocks Kind = "blocks"
	// KindParentChild links a child (From) to its parent epic (To).
	KindParentChild Kind = "parent-child"
	// KindConditionalBlocks is a blocks edge whose target is a fallback path.
	KindConditionalBlocks Kind = "conditional-blocks"
	// KindWaitsFor is a fan-in gate edge waiting on dynamically created work.
	KindWaitsFor Kind = "waits-for"
)

// Well-known non-blocking edge kinds.
const (
	KindRelated        Kind = "related"
	KindDiscoveredFrom Kind = "discovered-from"
)

// ParseKind normalizes a user-supplied kind string. Empty input maps to
// [KindBlocks], the default for dependency-add operations.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindBlocks
	}
	return Kind(s)
}

// IsBlocking reports whether edges of this kind gate readiness and must
// keep the graph acyclic.
func (k Kind) IsBlocking() bool {
	switch k {
	case KindBlocks, KindParentChild, KindConditionalBlocks, KindWaitsFor:
		return true
	}
	return false
}

// IsWellKnown reports whether k is one of the kinds defined in this package.
func (k Kind) IsWellKnown() bool {
	return k.IsBlocking() || k == KindRelated || k == KindDiscoveredFrom
}

// String returns the kind as stored.
func (k Kind) String() string { return string(k) }
