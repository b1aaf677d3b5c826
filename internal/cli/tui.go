package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/engine"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ReadyPickerModel - Interactive ready-work selection
// =============================================================================

// ReadyPickerModel is the bubbletea model for choosing one ready item.
type ReadyPickerModel struct {
	Items    []*dag.Item
	Cursor   int
	Selected *dag.Item
	Height   int
	Offset   int
	Now      time.Time
}

// NewReadyPickerModel creates a picker over items.
func NewReadyPickerModel(items []*dag.Item) ReadyPickerModel {
	return ReadyPickerModel{
		Items:  items,
		Height: 15,
		Now:    time.Now(),
	}
}

func (m ReadyPickerModel) Init() tea.Cmd {
	return nil
}

func (m ReadyPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Items)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Items) == 0 {
				return m, tea.Quit
			}
			m.Selected = m.Items[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ReadyPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Pick ready work"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ start  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Items))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		it := m.Items[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		assignee := it.Assignee
		if assignee == "" {
			assignee = "—"
		}
		rows = append(rows, []string{
			cursor,
			it.ID,
			fmt.Sprintf("P%d", it.Priority),
			string(it.IssueType),
			it.Title,
			assignee,
			formatAge(m.Now, it.CreatedAt),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Pri", "Type", "Title", "Assignee", "Age").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Items) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 5 || col == 6 {
				base = base.Foreground(colorDim)
			}
			if idx == m.Cursor {
				if col == 5 || col == 6 {
					return base.Foreground(colorGray).Bold(true)
				}
				return base.Foreground(colorGreen).Bold(true)
			}
			if col == 2 && m.Items[idx].Priority <= 1 {
				return base.Foreground(colorYellow)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Items))))

	return b.String()
}

// pickReady runs the picker and marks the chosen item in_progress.
func (c *CLI) pickReady(cmd *cobra.Command, e *engine.Engine, items []*dag.Item) error {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		printInfo(out, "No ready work")
		return nil
	}

	p := tea.NewProgram(NewReadyPickerModel(items),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("picker: %w", err)
	}
	m, ok := final.(ReadyPickerModel)
	if !ok || m.Selected == nil {
		printInfo(out, "Nothing picked")
		return nil
	}

	it, err := e.SetStatus(cmd.Context(), m.Selected.ID, dag.StatusInProgress)
	if err != nil {
		return err
	}
	printSuccess(out, "Started %s %s", StyleHighlight.Render(it.ID), it.Title)
	printNextStep(out, "Close it when done", "workgraph item close "+it.ID)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func formatAge(now, t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	diff := now.Sub(t)

	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
