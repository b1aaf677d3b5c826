package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/visual"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds status, priority and layer lines to node labels.
	// When false, labels show the ID and title.
	Detailed bool
}

var statusFill = map[dag.Status]string{
	dag.StatusOpen:       "white",
	dag.StatusInProgress: "lightyellow",
	dag.StatusBlocked:    "mistyrose",
	dag.StatusDeferred:   "lightblue",
	dag.StatusClosed:     "honeydew",
}

// ToDOT converts a sub-graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
func ToDOT(sub *visual.Subgraph, opts Options) string {
	var buf bytes.Buffer
	writeHeader(&buf)
	writeBody(&buf, sub, opts, "  ")
	buf.WriteString("}\n")
	return buf.String()
}

// ToDOTAll draws every component of res into one digraph, one cluster per
// component, largest first. Isolated items are not drawn.
func ToDOTAll(res *visual.Result, opts Options) string {
	var buf bytes.Buffer
	writeHeader(&buf)
	for i, c := range res.Components {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		buf.WriteString("    style=dashed;\n    color=grey;\n")
		writeBody(&buf, c, opts, "    ")
		buf.WriteString("  }\n")
	}
	if res.Isolated > 0 {
		fmt.Fprintf(&buf, "  label=%q;\n", fmt.Sprintf("%d isolated item(s) not shown", res.Isolated))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func writeHeader(buf *bytes.Buffer) {
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")
}

func writeBody(buf *bytes.Buffer, sub *visual.Subgraph, opts Options, indent string) {
	g := sub.Graph
	for _, it := range g.Items() {
		attrs := fmtAttrs(it, fmtLabel(it, sub.Layer(it.ID), opts.Detailed), it.ID == sub.Root)
		fmt.Fprintf(buf, "%s%q [%s];\n", indent, it.ID, strings.Join(attrs, ", "))
	}

	for _, ids := range sub.Layering.ByLayer() {
		if len(ids) < 2 {
			continue
		}
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = strconv.Quote(id)
		}
		fmt.Fprintf(buf, "%s{ rank=same; %s; }\n", indent, strings.Join(quoted, "; "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		// Drawn dependency -> dependent.
		if e.Kind == dag.KindBlocks {
			fmt.Fprintf(buf, "%s%q -> %q;\n", indent, e.To, e.From)
			continue
		}
		fmt.Fprintf(buf, "%s%q -> %q [style=dashed, label=%q];\n", indent, e.To, e.From, e.Kind)
	}
}

func fmtLabel(it *dag.Item, layer int, detailed bool) string {
	label := it.ID
	if it.Title != "" {
		label += "\n" + it.Title
	}
	if !detailed {
		return label
	}
	return label + fmt.Sprintf("\nstatus: %s\npriority: P%d\nlayer: %d", it.Status, it.Priority, layer)
}

func fmtAttrs(it *dag.Item, label string, root bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if fill, ok := statusFill[it.Status]; ok && fill != "white" {
		attrs = append(attrs, "fillcolor="+fill)
	}
	if it.Status.IsClosed() {
		attrs = append(attrs, "fontcolor=grey40")
	}
	if root {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root tag to a zero-origin viewBox with
// matching pixel size, so the SVG scales cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
