package graph

import (
	"encoding/json"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/visual"
)

// =============================================================================
// Graph - Structured Sub-graph
// =============================================================================

// Graph is the structured form of one connected sub-graph.
type Graph struct {
	Root     string     `json:"root,omitempty" bson:"root,omitempty"`
	Nodes    []Node     `json:"nodes" bson:"nodes"`
	Edges    []Edge     `json:"edges" bson:"edges"`
	Layers   [][]string `json:"layers" bson:"layers"`
	Overflow []string   `json:"overflow,omitempty" bson:"overflow,omitempty"`
}

// Node is an item placed on a layer.
type Node struct {
	ID       string        `json:"id" bson:"id"`
	Title    string        `json:"title" bson:"title"`
	Status   dag.Status    `json:"status" bson:"status"`
	Priority int           `json:"priority" bson:"priority"`
	Type     dag.IssueType `json:"type,omitempty" bson:"type,omitempty"`
	Layer    int           `json:"layer" bson:"layer"`
	Needs    []string      `json:"needs,omitempty" bson:"needs,omitempty"` // open direct blockers
}

// Edge is a blocking edge between two nodes, in storage direction.
type Edge struct {
	From string   `json:"from" bson:"from"`
	To   string   `json:"to" bson:"to"`
	Kind dag.Kind `json:"kind" bson:"kind"`
}

// Document is the structured form of the all-open view.
type Document struct {
	Components  []Graph  `json:"components" bson:"components"`
	Isolated    int      `json:"isolated" bson:"isolated"`
	IsolatedIDs []string `json:"isolated_ids,omitempty" bson:"isolated_ids,omitempty"`
}

// =============================================================================
// Conversion
// =============================================================================

// FromSubgraph converts a visualizer sub-graph to its structured form.
func FromSubgraph(s *visual.Subgraph) Graph {
	g := s.Graph
	out := Graph{
		Root:     s.Root,
		Nodes:    make([]Node, 0, g.ItemCount()),
		Edges:    make([]Edge, 0, g.EdgeCount()),
		Layers:   s.Layering.ByLayer(),
		Overflow: s.Layering.Overflow,
	}
	if out.Layers == nil {
		out.Layers = [][]string{}
	}

	for _, it := range g.Items() {
		out.Nodes = append(out.Nodes, Node{
			ID:       it.ID,
			Title:    it.Title,
			Status:   it.Status,
			Priority: it.Priority,
			Type:     it.IssueType,
			Layer:    s.Layer(it.ID),
			Needs:    g.OpenBlockers(it.ID),
		})
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, Edge{From: e.From, To: e.To, Kind: e.Kind})
	}
	return out
}

// FromResult converts an all-open build to a Document.
func FromResult(r *visual.Result) Document {
	doc := Document{
		Components:  make([]Graph, len(r.Components)),
		Isolated:    r.Isolated,
		IsolatedIDs: r.IsolatedIDs,
	}
	for i, c := range r.Components {
		doc.Components[i] = FromSubgraph(c)
	}
	return doc
}

// UnmarshalGraph deserializes JSON bytes to a Graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// Node returns the node with the given ID.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
