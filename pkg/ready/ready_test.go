package ready

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/workgraph/pkg/dag"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func item(id string, opts ...func(*dag.Item)) *dag.Item {
	it := &dag.Item{
		ID:        id,
		Title:     id,
		Status:    dag.StatusOpen,
		Priority:  2,
		IssueType: dag.TypeTask,
		CreatedAt: now.Add(-time.Hour),
	}
	for _, o := range opts {
		o(it)
	}
	return it
}

func withStatus(s dag.Status) func(*dag.Item) { return func(it *dag.Item) { it.Status = s } }
func withPriority(p int) func(*dag.Item)      { return func(it *dag.Item) { it.Priority = p } }
func withType(t dag.IssueType) func(*dag.Item) {
	return func(it *dag.Item) { it.IssueType = t }
}
func withLabels(l ...string) func(*dag.Item)   { return func(it *dag.Item) { it.Labels = l } }
func withAssignee(a string) func(*dag.Item)    { return func(it *dag.Item) { it.Assignee = a } }
func createdAt(d time.Duration) func(*dag.Item) { return func(it *dag.Item) { it.CreatedAt = now.Add(d) } }

func edge(from, to string, kind dag.Kind) dag.Edge {
	return dag.Edge{From: from, To: to, Kind: kind}
}

func ids(items []*dag.Item) []string { return dag.ItemIDs(items) }

func TestResolve_ScenarioA(t *testing.T) {
	a, b := item("A"), item("B")
	edges := []dag.Edge{edge("A", "B", dag.KindBlocks)}

	got := ids(Resolve([]*dag.Item{a, b}, edges, Filter{}, now))
	if !slices.Equal(got, []string{"B"}) {
		t.Fatalf("before close: Resolve() = %v, want [B]", got)
	}

	b.Status = dag.StatusClosed
	got = ids(Resolve([]*dag.Item{a, b}, edges, Filter{}, now))
	if !slices.Equal(got, []string{"A"}) {
		t.Fatalf("after close: Resolve() = %v, want [A]", got)
	}
}

func TestResolve_Readiness(t *testing.T) {
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name  string
		items []*dag.Item
		edges []dag.Edge
		f     Filter
		want  []string
	}{
		{
			name:  "in progress is not ready",
			items: []*dag.Item{item("a", withStatus(dag.StatusInProgress)), item("b")},
			want:  []string{"b"},
		},
		{
			name:  "custom status is not ready",
			items: []*dag.Item{item("a", withStatus("review"))},
		},
		{
			name: "template and pinned excluded",
			items: []*dag.Item{
				item("a", func(it *dag.Item) { it.IsTemplate = true }),
				item("b", func(it *dag.Item) { it.Pinned = true }),
				item("c"),
			},
			want: []string{"c"},
		},
		{
			name: "workflow types excluded by default",
			items: []*dag.Item{
				item("g", withType(dag.TypeGate)),
				item("m", withType(dag.TypeMolecule)),
				item("r", withType("merge-request")),
				item("t"),
			},
			want: []string{"t"},
		},
		{
			name:  "explicit type lifts exclusion",
			items: []*dag.Item{item("g", withType(dag.TypeGate)), item("t")},
			f:     Filter{Type: dag.TypeGate},
			want:  []string{"g"},
		},
		{
			name:  "custom exclusion list",
			items: []*dag.Item{item("g", withType(dag.TypeGate)), item("b", withType(dag.TypeBug))},
			f:     Filter{ExcludeTypes: []dag.IssueType{dag.TypeBug}},
			want:  []string{"g"},
		},
		{
			name:  "ephemeral hidden unless included",
			items: []*dag.Item{item("e", func(it *dag.Item) { it.Ephemeral = true })},
		},
		{
			name:  "ephemeral included",
			items: []*dag.Item{item("e", func(it *dag.Item) { it.Ephemeral = true })},
			f:     Filter{IncludeEphemeral: true},
			want:  []string{"e"},
		},
		{
			name: "deferred into the future hidden",
			items: []*dag.Item{
				item("f", func(it *dag.Item) { it.DeferUntil = &future }),
				item("p", func(it *dag.Item) { it.DeferUntil = &past }),
			},
			want: []string{"p"},
		},
		{
			name:  "deferred included",
			items: []*dag.Item{item("f", func(it *dag.Item) { it.DeferUntil = &future })},
			f:     Filter{IncludeDeferred: true},
			want:  []string{"f"},
		},
		{
			name:  "open blocker holds item back",
			items: []*dag.Item{item("a"), item("b", withStatus(dag.StatusInProgress))},
			edges: []dag.Edge{edge("a", "b", dag.KindWaitsFor)},
		},
		{
			name:  "missing blocker holds item back",
			items: []*dag.Item{item("a")},
			edges: []dag.Edge{edge("a", "ghost", dag.KindBlocks)},
		},
		{
			name:  "non-blocking edge ignored",
			items: []*dag.Item{item("a"), item("b")},
			edges: []dag.Edge{edge("a", "b", dag.KindRelated), edge("b", "a", "tracks")},
			want:  []string{"a", "b"},
		},
		{
			name:  "parent-child blocks child until parent closes",
			items: []*dag.Item{item("child"), item("epic", withType(dag.TypeEpic))},
			edges: []dag.Edge{edge("child", "epic", dag.KindParentChild)},
			want:  []string{"epic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Resolve(tt.items, tt.edges, tt.f, now))
			if !slices.Equal(got, tt.want) && (len(got) != 0 || len(tt.want) != 0) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_Filters(t *testing.T) {
	p0 := 0
	items := []*dag.Item{
		item("a", withAssignee("ann"), withLabels("backend", "urgent")),
		item("b", withAssignee("bob"), withLabels("frontend")),
		item("c", withLabels("backend"), withPriority(0)),
		item("d", withType(dag.TypeBug)),
	}

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"assignee", Filter{Assignee: "ann"}, []string{"a"}},
		{"unassigned wins over assignee", Filter{Assignee: "ann", Unassigned: true}, []string{"c", "d"}},
		{"labels all", Filter{Labels: []string{"backend", "urgent"}}, []string{"a"}},
		{"labels any", Filter{LabelsAny: []string{"urgent", "frontend"}}, []string{"a", "b"}},
		{"labels and any combined", Filter{Labels: []string{"backend"}, LabelsAny: []string{"urgent"}}, []string{"a"}},
		{"type", Filter{Type: dag.TypeBug}, []string{"d"}},
		{"priority", Filter{Priority: &p0}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Resolve(items, nil, tt.f, now))
			slices.Sort(got)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_Sort(t *testing.T) {
	items := []*dag.Item{
		item("old-low", withPriority(3), createdAt(-3*time.Hour)),
		item("new-high", withPriority(0), createdAt(-1*time.Hour)),
		item("mid-high", withPriority(0), createdAt(-2*time.Hour)),
		item("tie-b", withPriority(1), createdAt(-time.Minute)),
		item("tie-a", withPriority(1), createdAt(-time.Minute)),
	}

	tests := []struct {
		sort SortPolicy
		want []string
	}{
		{SortPriority, []string{"mid-high", "new-high", "tie-a", "tie-b", "old-low"}},
		{"", []string{"mid-high", "new-high", "tie-a", "tie-b", "old-low"}},
		{"hybrid", []string{"mid-high", "new-high", "tie-a", "tie-b", "old-low"}},
		{SortOldest, []string{"old-low", "mid-high", "new-high", "tie-a", "tie-b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got := ids(Resolve(items, nil, Filter{Sort: tt.sort}, now))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Resolve(sort=%q) = %v, want %v", tt.sort, got, tt.want)
			}
		})
	}
}

func TestResolve_Limit(t *testing.T) {
	var items []*dag.Item
	for i := range 5 {
		items = append(items, item(fmt.Sprintf("i%d", i), withPriority(i%5)))
	}
	if got := Resolve(items, nil, Filter{Limit: 2}, now); len(got) != 2 {
		t.Errorf("Limit 2: got %d items", len(got))
	}
	if got := Resolve(items, nil, Filter{}, now); len(got) != 5 {
		t.Errorf("Limit 0: got %d items, want unlimited", len(got))
	}
}

func TestResolve_EmptyIsNotNilError(t *testing.T) {
	got := Resolve(nil, nil, Filter{}, now)
	if len(got) != 0 {
		t.Errorf("Resolve(nil) = %v", got)
	}
}

// Closing an item never removes any other item from the ready set.
func TestResolve_MonotonicUnderClose(t *testing.T) {
	base := func() []*dag.Item {
		return []*dag.Item{
			item("a"), item("b"), item("c"), item("d"), item("e", withStatus(dag.StatusInProgress)),
		}
	}
	edges := []dag.Edge{
		edge("a", "b", dag.KindBlocks),
		edge("b", "c", dag.KindBlocks),
		edge("d", "e", dag.KindWaitsFor),
		edge("a", "d", dag.KindConditionalBlocks),
	}

	for _, closing := range []string{"a", "b", "c", "d", "e"} {
		items := base()
		before := ids(Resolve(items, edges, Filter{}, now))
		for _, it := range items {
			if it.ID == closing {
				it.Status = dag.StatusClosed
			}
		}
		after := ids(Resolve(items, edges, Filter{}, now))
		for _, id := range before {
			if id != closing && !slices.Contains(after, id) {
				t.Errorf("closing %s removed %s from ready set (%v -> %v)", closing, id, before, after)
			}
		}
	}
}

func TestBlocked(t *testing.T) {
	items := []*dag.Item{
		item("a", withPriority(1)),
		item("b", withStatus(dag.StatusInProgress)),
		item("c", withStatus(dag.StatusClosed)),
		item("d", withPriority(0)),
		item("e", withStatus(dag.StatusClosed)),
	}
	edges := []dag.Edge{
		edge("a", "b", dag.KindBlocks),
		edge("a", "c", dag.KindBlocks),
		edge("a", "ghost", dag.KindBlocks),
		edge("d", "b", dag.KindParentChild),
		edge("e", "b", dag.KindBlocks),
		edge("b", "c", dag.KindBlocks),
	}

	got := Blocked(items, edges)
	if len(got) != 2 {
		t.Fatalf("Blocked() returned %d items, want 2: %+v", len(got), got)
	}
	if got[0].Item.ID != "d" || !slices.Equal(got[0].BlockedBy, []string{"b"}) {
		t.Errorf("got[0] = %s %v, want d [b]", got[0].Item.ID, got[0].BlockedBy)
	}
	if got[1].Item.ID != "a" || !slices.Equal(got[1].BlockedBy, []string{"b", "ghost"}) {
		t.Errorf("got[1] = %s %v, want a [b ghost]", got[1].Item.ID, got[1].BlockedBy)
	}
}

func TestParseSortPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    SortPolicy
		wantErr bool
	}{
		{"", SortPriority, false},
		{"priority", SortPriority, false},
		{" Oldest ", SortOldest, false},
		{"random", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSortPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSortPolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}
