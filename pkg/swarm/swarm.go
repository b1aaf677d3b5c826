package swarm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/dag/transform"
	"github.com/matzehuels/workgraph/pkg/errors"
)

// DefaultGroupTypes are the item types that can own a wave analysis.
var DefaultGroupTypes = []dag.IssueType{dag.TypeEpic, dag.TypeMolecule}

var (
	foundationKeywords  = []string{"foundation", "setup", "base", "core", "scaffold", "infra"}
	integrationKeywords = []string{"integration", "test", "e2e", "verify", "validation"}
)

// Analysis is the result of partitioning an epic's children into waves.
type Analysis struct {
	EpicID    string `json:"epic_id"`
	EpicTitle string `json:"epic_title"`

	// Waves are ordered; wave 0 has no in-set blockers.
	Waves []Wave `json:"waves"`

	// Unresolved lists children trapped on a cycle, sorted by ID.
	Unresolved []string `json:"unresolved,omitempty"`

	// MaxParallelism is the size of the largest wave.
	MaxParallelism int `json:"max_parallelism"`

	// CriticalPathLength is the number of waves.
	CriticalPathLength int `json:"critical_path_length"`

	Swarmable bool     `json:"swarmable"`
	Warnings  []string `json:"warnings,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// Wave is a set of children that become workable together.
type Wave struct {
	Index int        `json:"index"`
	Items []WaveItem `json:"items"`
}

// WaveItem is one child in a wave.
type WaveItem struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status dag.Status `json:"status"`
	// Needs lists in-set blockers that are not closed yet.
	Needs []string `json:"needs,omitempty"`
}

// ChildCount returns the number of children covered by the analysis.
func (a *Analysis) ChildCount() int {
	n := len(a.Unresolved)
	for _, w := range a.Waves {
		n += len(w.Items)
	}
	return n
}

// IsGroup reports whether it can own a wave analysis. A nil or empty
// groupTypes selects DefaultGroupTypes.
func IsGroup(it *dag.Item, groupTypes []dag.IssueType) bool {
	if len(groupTypes) == 0 {
		groupTypes = DefaultGroupTypes
	}
	return slices.Contains(groupTypes, it.IssueType)
}

// CheckEpic returns a NOT_AN_EPIC error unless it is a grouping item.
func CheckEpic(it *dag.Item, groupTypes []dag.IssueType) error {
	if !IsGroup(it, groupTypes) {
		return errors.New(errors.ErrCodeNotAnEpic, "%s is a %s, not an epic", it.ID, it.IssueType)
	}
	return nil
}

// ChildIDs returns the IDs linked to epicID by a parent-child edge where
// the child is the dependent side, in ascending order.
func ChildIDs(epicID string, edges []dag.Edge) []string {
	var out []string
	for _, e := range edges {
		if e.Kind == dag.KindParentChild && e.To == epicID && e.From != epicID {
			out = append(out, e.From)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Analyze partitions children into waves using the blocking edges among
// them. Edges that touch the epic or items outside children are ignored for
// wave computation. Analyze never fails; an epic with no children yields a
// swarmable analysis with a single warning.
func Analyze(epic *dag.Item, children []*dag.Item, edges []dag.Edge) *Analysis {
	a := &Analysis{EpicID: epic.ID, EpicTitle: epic.Title, Waves: []Wave{}}

	byID := make(map[string]*dag.Item, len(children))
	for _, c := range children {
		if c != nil && c.ID != epic.ID {
			byID[c.ID] = c
		}
	}
	if len(byID) == 0 {
		a.Swarmable = true
		a.Warnings = append(a.Warnings, "epic has no children")
		return a
	}

	g := dag.New()
	for _, id := range sortedKeys(byID) {
		_ = g.AddItem(byID[id])
	}
	var external []dag.Edge
	for _, e := range edges {
		if !e.Kind.IsBlocking() {
			continue
		}
		_, fromIn := byID[e.From]
		_, toIn := byID[e.To]
		switch {
		case fromIn && toIn:
			_ = g.AddEdge(e)
		case fromIn && e.To != epic.ID:
			external = append(external, e)
		}
	}

	waves, unresolved := kahn(g)
	for i, ids := range waves {
		w := Wave{Index: i, Items: make([]WaveItem, len(ids))}
		for j, id := range ids {
			it := byID[id]
			w.Items[j] = WaveItem{ID: id, Title: it.Title, Status: it.Status, Needs: g.OpenBlockers(id)}
		}
		a.Waves = append(a.Waves, w)
		a.MaxParallelism = max(a.MaxParallelism, len(ids))
	}
	a.CriticalPathLength = len(waves)
	a.Unresolved = unresolved
	a.Swarmable = len(unresolved) == 0

	if !a.Swarmable {
		a.Errors = cycleErrors(g, unresolved)
	}
	a.Warnings = append(a.Warnings, structuralWarnings(g)...)
	a.Warnings = append(a.Warnings, externalWarnings(external)...)
	return a
}

// kahn layers g. A node's in-degree counts the distinct in-set items it
// depends on. The remainder, if any, is returned sorted.
func kahn(g *dag.Graph) (waves [][]string, unresolved []string) {
	indegree := make(map[string]int, g.ItemCount())
	var current []string
	for _, id := range g.IDs() {
		indegree[id] = len(g.DependsOn(id))
		if indegree[id] == 0 {
			current = append(current, id)
		}
	}

	for len(current) > 0 {
		waves = append(waves, current)
		var next []string
		for _, id := range current {
			delete(indegree, id)
			for _, dependent := range g.Dependents(id) {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	return waves, sortedKeys(indegree)
}

func cycleErrors(g *dag.Graph, unresolved []string) []string {
	var out []string
	for _, c := range transform.EnumerateCycles(g.Subgraph(unresolved).Edges()) {
		c = transform.NormalizeCycle(c)
		out = append(out, "dependency cycle: "+strings.Join(append(c, c[0]), " -> "))
	}
	if len(out) == 0 {
		out = append(out, "unresolved dependencies among: "+strings.Join(unresolved, ", "))
	}
	return out
}

func structuralWarnings(g *dag.Graph) []string {
	var out []string
	for _, it := range g.Items() {
		title := strings.ToLower(it.Title)
		if containsAny(title, foundationKeywords) && len(g.Dependents(it.ID)) == 0 {
			out = append(out, fmt.Sprintf("%s (%q) looks foundational but nothing in the epic depends on it", it.ID, it.Title))
		}
		if containsAny(title, integrationKeywords) && len(g.DependsOn(it.ID)) == 0 {
			out = append(out, fmt.Sprintf("%s (%q) looks like integration work but depends on nothing in the epic", it.ID, it.Title))
		}
	}
	return out
}

func externalWarnings(edges []dag.Edge) []string {
	slices.SortFunc(edges, func(a, b dag.Edge) int {
		return strings.Compare(a.From+"\x00"+a.To, b.From+"\x00"+b.To)
	})
	var out []string
	for i, e := range edges {
		if i > 0 && edges[i-1].From == e.From && edges[i-1].To == e.To {
			continue
		}
		out = append(out, fmt.Sprintf("%s is blocked by %s outside the epic (%s)", e.From, e.To, e.Kind))
	}
	return out
}

func containsAny(s string, words []string) bool {
	return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(s, w) })
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
