package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const progressBarWidth = 30

// StageRow is one line of the read-only position view: a stage id, its
// readiness/completion markers, and whether it is the workflow's
// current stage.
type StageRow struct {
	ID        string
	Complete  bool
	Stale     bool
	Ready     bool
	IsCurrent bool
}

// PositionModel is a read-only Bubble Tea view of a session's DAG
// position: a progress bar, the current stage, and a scrollable stage
// list with stale markers. A bubbles/viewport wraps a rendered string
// body, sized to the terminal on tea.WindowSizeMsg.
type PositionModel struct {
	viewport viewport.Model
	ready    bool

	Rows        []StageRow
	Current     string
	Completed   int
	Total       int
	NextAdvice  string
}

// NewPositionModel constructs a PositionModel for a single render of
// sessionID's position. It is read-only: no key handling advances the
// workflow; rendering stays separate from engine dispatch.
func NewPositionModel(rows []StageRow, current string, completed, total int, advice string) PositionModel {
	return PositionModel{
		Rows:       rows,
		Current:    current,
		Completed:  completed,
		Total:      total,
		NextAdvice: advice,
	}
}

// Init implements tea.Model.
func (m PositionModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m PositionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		body := m.render()
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.viewport.SetContent(body)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
			m.viewport.SetContent(body)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m PositionModel) View() string {
	if !m.ready {
		return m.render()
	}
	return m.viewport.View() + "\n" + MutedStyle.Render("q to quit")
}

func (m PositionModel) render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", BoldStyle.Render("workflow position"))
	fmt.Fprintf(&b, "%s  %d/%d stages complete\n\n", progressBar(m.Completed, m.Total), m.Completed, m.Total)

	for _, r := range m.Rows {
		marker := " "
		switch {
		case r.IsCurrent:
			marker = AccentStyle.Render("▸")
		case r.Complete && r.Stale:
			marker = WarningStyle.Render("!")
		case r.Complete:
			marker = SuccessStyle.Render("✓")
		case !r.Ready:
			marker = MutedStyle.Render("·")
		}

		label := r.ID
		if r.IsCurrent {
			label = BoldStyle.Render(label)
		} else if !r.Ready {
			label = MutedStyle.Render(label)
		}

		line := fmt.Sprintf("  %s %s", marker, label)
		if r.Complete && r.Stale {
			line += WarningStyle.Render(" (stale)")
		}
		b.WriteString(line + "\n")
	}

	if m.NextAdvice != "" {
		fmt.Fprintf(&b, "\n%s %s\n", Bullet(), m.NextAdvice)
	}

	return b.String()
}

func progressBar(completed, total int) string {
	if total <= 0 {
		return lipgloss.NewStyle().Render("[" + strings.Repeat(" ", progressBarWidth) + "]")
	}
	filled := progressBarWidth * completed / total
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	bar := SuccessStyle.Render(strings.Repeat("=", filled)) + strings.Repeat(" ", progressBarWidth-filled)
	return "[" + bar + "]"
}
