package text

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/visual"
)

// Options configures text rendering.
type Options struct {
	// Color styles glyphs and secondary text with ANSI colors.
	Color bool
}

var glyphs = map[dag.Status]string{
	dag.StatusOpen:       "○",
	dag.StatusInProgress: "◐",
	dag.StatusBlocked:    "●",
	dag.StatusClosed:     "✓",
	dag.StatusDeferred:   "❄",
}

var (
	styleOpen     = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	styleProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleBlocked  = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
	styleClosed   = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	styleDeferred = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	styleHeader   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var glyphStyles = map[dag.Status]lipgloss.Style{
	dag.StatusOpen:       styleOpen,
	dag.StatusInProgress: styleProgress,
	dag.StatusBlocked:    styleBlocked,
	dag.StatusClosed:     styleClosed,
	dag.StatusDeferred:   styleDeferred,
}

// Glyph returns the status glyph for s.
func Glyph(s dag.Status) string {
	if g, ok := glyphs[s]; ok {
		return g
	}
	return "?"
}

// Render draws one sub-graph.
func Render(sub *visual.Subgraph, opts Options) string {
	var b strings.Builder
	r := renderer{opts: opts}
	r.subgraph(&b, sub, "")
	return b.String()
}

// RenderAll draws every component of an all-open build, largest first,
// followed by the isolated item count.
func RenderAll(res *visual.Result, opts Options) string {
	var b strings.Builder
	r := renderer{opts: opts}
	if len(res.Components) == 0 && res.Isolated == 0 {
		b.WriteString("No open items.\n")
		return b.String()
	}
	for i, c := range res.Components {
		if i > 0 {
			b.WriteString("\n")
		}
		header := fmt.Sprintf("Component %d (%d items)", i+1, c.Graph.ItemCount())
		b.WriteString(r.style(styleHeader, header) + "\n")
		r.subgraph(&b, c, "  ")
	}
	if res.Isolated > 0 {
		if len(res.Components) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.style(styleDim, fmt.Sprintf("%d isolated item(s): %s", res.Isolated, strings.Join(res.IsolatedIDs, ", "))) + "\n")
	}
	return b.String()
}

type renderer struct{ opts Options }

func (r renderer) style(s lipgloss.Style, text string) string {
	if !r.opts.Color {
		return text
	}
	return s.Render(text)
}

func (r renderer) subgraph(b *strings.Builder, sub *visual.Subgraph, indent string) {
	overflow := len(sub.Layering.Overflow) > 0
	for layer, ids := range sub.Layering.ByLayer() {
		header := fmt.Sprintf("Layer %d", layer)
		if overflow && layer == sub.Layering.MaxLayer {
			header += " (cycle)"
		}
		b.WriteString(indent + r.style(styleHeader, header) + "\n")
		for _, id := range ids {
			it, _ := sub.Graph.Item(id)
			b.WriteString(indent + "  " + r.line(it, sub.Graph.OpenBlockers(id)) + "\n")
		}
	}
}

func (r renderer) line(it *dag.Item, needs []string) string {
	glyph := Glyph(it.Status)
	if s, ok := glyphStyles[it.Status]; ok {
		glyph = r.style(s, glyph)
	}
	line := fmt.Sprintf("%s %s [P%d] %s", glyph, it.ID, it.Priority, it.Title)
	if len(needs) > 0 {
		line += "  " + r.style(styleDim, "needs: "+strings.Join(needs, ", "))
	}
	return strings.TrimRight(line, " ")
}
