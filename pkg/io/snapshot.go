package io

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
)

// Format is a snapshot encoding.
type Format string

// Supported encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. Empty input means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown snapshot format %q (want json or yaml)", s)
}

// FormatFromPath picks the format from a file extension, JSON unless the
// extension is .yaml or .yml.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Snapshot is a full copy of a store's items and edges.
type Snapshot struct {
	Items []*dag.Item `json:"items" yaml:"items"`
	Edges []dag.Edge  `json:"edges" yaml:"edges"`
}

// Read decodes a snapshot from r.
func Read(r io.Reader, f Format) (*Snapshot, error) {
	var s Snapshot
	var err error
	switch f {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&s)
		if err == io.EOF {
			err = nil
		}
	default:
		err = json.NewDecoder(r).Decode(&s)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s snapshot", f)
	}
	for i := range s.Edges {
		if s.Edges[i].Kind == "" {
			s.Edges[i].Kind = dag.KindBlocks
		}
	}
	return &s, nil
}

// Write encodes s to w.
func Write(s *Snapshot, w io.Writer, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	}
}

// ReadFile decodes the snapshot at path, choosing the format from the
// extension.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, FormatFromPath(path))
}

// WriteFile encodes s to path.
func WriteFile(s *Snapshot, path string, f Format) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(s, out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Dump reads every item and edge from st, items by ID and edges by
// from, to, kind.
func Dump(ctx context.Context, st store.Store) (*Snapshot, error) {
	items, err := st.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		return nil, err
	}
	edges, err := st.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	store.SortEdges(edges)
	if items == nil {
		items = []*dag.Item{}
	}
	if edges == nil {
		edges = []dag.Edge{}
	}
	return &Snapshot{Items: items, Edges: edges}, nil
}

func withDefaults(it *dag.Item) *dag.Item {
	if it == nil || (it.Status != "" && it.IssueType != "") {
		return it
	}
	it = it.Clone()
	if it.Status == "" {
		it.Status = dag.StatusOpen
	}
	if it.IssueType == "" {
		it.IssueType = dag.TypeTask
	}
	return it
}

// SkippedEdge is an edge the store refused during [Apply].
type SkippedEdge struct {
	Edge   dag.Edge
	Reason error
}

// Report summarizes an [Apply].
type Report struct {
	Items   int
	Edges   int
	Skipped []SkippedEdge
}

// Apply stores every item of s, then inserts its edges. Invalid items
// abort the import. Items without a status are stored as open and
// items without a type as tasks. Edges rejected as cycles, unknown
// endpoints or bad input are recorded in the report and the import
// continues. Storage failures abort.
func Apply(ctx context.Context, st store.Store, s *Snapshot) (*Report, error) {
	rep := &Report{}
	for _, it := range s.Items {
		it = withDefaults(it)
		if err := st.PutItem(ctx, it); err != nil {
			id := "<nil>"
			if it != nil {
				id = it.ID
			}
			return rep, fmt.Errorf("item %s: %w", id, err)
		}
		rep.Items++
	}
	for _, e := range s.Edges {
		err := st.InsertEdge(ctx, e)
		switch errors.GetCode(err) {
		case "":
			if err != nil {
				return rep, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
			}
			rep.Edges++
		case errors.ErrCodeCycleDetected, errors.ErrCodeNotFound,
			errors.ErrCodeInvalidInput, errors.ErrCodeInvalidKind:
			rep.Skipped = append(rep.Skipped, SkippedEdge{Edge: e, Reason: err})
		default:
			return rep, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return rep, nil
}
