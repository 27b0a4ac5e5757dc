package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/handleui/shimmer"
)

// DispatchDoneMsg signals that the in-flight plugin dispatch finished.
type DispatchDoneMsg struct {
	Message string
	Success bool
	Err     error
}

// DispatchModel is the single-line shimmer spinner shown while a
// plugin dispatch is in flight: a shimmer.Model driven purely by
// shimmer.TickMsg until a DispatchDoneMsg arrives from the dispatch
// goroutine.
type DispatchModel struct {
	shimmer  shimmer.Model
	done     bool
	result   DispatchDoneMsg
	quitting bool
}

// NewDispatchModel constructs a spinner labeled with the command
// being dispatched.
func NewDispatchModel(label string) DispatchModel {
	return DispatchModel{shimmer: shimmer.New(label, "#00D787")}
}

// Init implements tea.Model.
func (m DispatchModel) Init() tea.Cmd { return m.shimmer.Init() }

// Update implements tea.Model.
func (m DispatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case DispatchDoneMsg:
		m.done = true
		m.result = msg
		m.shimmer = m.shimmer.SetLoading(false)
		return m, tea.Quit
	case shimmer.TickMsg:
		var cmd tea.Cmd
		m.shimmer, cmd = m.shimmer.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m DispatchModel) View() string {
	if m.quitting {
		return ""
	}
	if m.done {
		if m.result.Err != nil {
			return fmt.Sprintf("%s %s\n", StatusIcon(false), ErrorStyle.Render(m.result.Err.Error()))
		}
		return fmt.Sprintf("%s %s\n", StatusIcon(m.result.Success), m.result.Message)
	}
	return fmt.Sprintf("%s %s\n", Bullet(), m.shimmer.View())
}
