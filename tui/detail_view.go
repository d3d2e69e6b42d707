package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/clientbook/format"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sectionStyle = lipgloss.NewStyle().Bold(true)
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("CLIENT"))
	s.WriteString("\n\n")

	s.WriteString(m.renderClientDetail())
	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())

	// Help
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderClientDetail() string {
	c, ok := m.app.Clients.Get(m.selectedID)
	if !ok {
		return fmt.Sprintf("Error: client not found: %s", m.selectedID)
	}
	now := time.Now()

	var s strings.Builder

	s.WriteString(m.renderField("Name", c.FullName()))
	s.WriteString(m.renderField("Company", c.Company))
	s.WriteString(m.renderField("Position", c.Position))
	s.WriteString(m.renderField("Status", string(c.Status)))
	s.WriteString(m.renderField("Email", c.Email))
	s.WriteString(m.renderField("Phone", c.Phone))
	s.WriteString(m.renderField("Address", c.Address))
	s.WriteString(m.renderField("Notes", c.Notes))
	s.WriteString(m.renderField("Added", format.Date(c.CreatedAt)))

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("OPPORTUNITIES"))
	s.WriteString("\n")
	for _, o := range m.app.Opportunities.ByClient(c.ID) {
		stage := lipgloss.NewStyle().Foreground(lipgloss.Color(o.Stage.Color())).Render(o.Stage.Label())
		s.WriteString(fmt.Sprintf("  • %s  %s  %s\n", o.Title, format.Currency(o.Value), stage))
	}

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("RECENT INTERACTIONS"))
	s.WriteString("\n")
	for i, it := range m.app.Interactions.ByClient(c.ID) {
		if i == 5 {
			break
		}
		line := fmt.Sprintf("  • [%s] %s", format.Relative(it.Date, now), it.Type)
		if it.Duration != nil {
			line += " " + format.Minutes(it.Duration)
		}
		if it.Notes != "" {
			line += ": " + format.Truncate(it.Notes, 50)
		}
		s.WriteString(line + "\n")
	}

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("TASKS"))
	s.WriteString("\n")
	for _, t := range m.app.Tasks.ByClient(c.ID) {
		if t.Completed {
			continue
		}
		due := format.Date(t.DueDate)
		if t.IsOverdue(now.UnixMilli()) {
			due = errorStyle.Render(due + " overdue")
		}
		s.WriteString(fmt.Sprintf("  • %s (due %s)\n", t.Title, due))
	}

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"c: Log call",
		"e: Edit",
		"d: Delete",
		"g: View graph",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.status = ""
	case "e":
		m.viewMode = ViewEdit
		m.initFormInputs()
	case "d":
		m.viewMode = ViewConfirmDelete
	case "g":
		if err := m.generateClientGraph(); err != nil {
			m.err = err
		}
	case "c":
		return m.startCall()
	}

	return m, nil
}
