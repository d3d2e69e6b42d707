package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/clientbook/viz"
)

var graphSourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

func (m Model) renderGraphView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("GRAPH: " + strings.ToUpper(m.graphTitle)))
	s.WriteString("\n\n")

	lines := strings.Split(m.graphDOT, "\n")
	start, end := m.graphWindow(len(lines))
	s.WriteString(graphSourceStyle.Render(strings.Join(lines[start:end], "\n")))
	s.WriteString("\n\n")
	if len(lines) > end-start {
		s.WriteString(helpStyle.Render(fmt.Sprintf("lines %d-%d of %d", start+1, end, len(lines))))
		s.WriteString("\n")
	}

	s.WriteString(m.renderGraphHelp())
	return s.String()
}

// graphWindow returns the slice of source lines that fits the terminal.
func (m Model) graphWindow(total int) (int, int) {
	rows := m.height - 8
	if rows < 10 {
		rows = 10
	}
	start := m.graphOffset
	if start > total-1 {
		start = max(total-1, 0)
	}
	return start, min(start+rows, total)
}

func (m Model) renderGraphHelp() string {
	help := []string{
		"↑/↓: Scroll",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.graphOffset > 0 {
			m.graphOffset--
		}
	case "down", "j":
		if m.graphOffset < strings.Count(m.graphDOT, "\n") {
			m.graphOffset++
		}
	case "esc":
		m.viewMode = m.graphReturn
		m.graphDOT = ""
	}

	return m, nil
}

// generateClientGraph renders the selected client's graph as DOT source.
func (m *Model) generateClientGraph() error {
	dot, err := viz.NewGraphGenerator(m.app).GenerateClientGraph(m.ctx, m.selectedID)
	if err != nil {
		return err
	}
	title := m.selectedID
	if c, ok := m.app.Clients.Get(m.selectedID); ok {
		title = c.FullName()
	}
	m.showGraph(title, dot)
	return nil
}

func (m *Model) generatePipelineGraph() error {
	dot, err := viz.NewGraphGenerator(m.app).GeneratePipelineGraph(m.ctx)
	if err != nil {
		return err
	}
	m.showGraph("pipeline", dot)
	return nil
}

func (m *Model) showGraph(title, dot string) {
	m.graphReturn = m.viewMode
	m.graphTitle = title
	m.graphDOT = dot
	m.graphOffset = 0
	m.viewMode = ViewGraph
}
