// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Confirms deletion of a client before removing it from the store
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	c, ok := m.app.Clients.Get(m.selectedID)
	if !ok {
		return fmt.Sprintf("Error: client not found: %s", m.selectedID)
	}

	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := "Are you sure you want to delete this client?"
	entityInfo := fmt.Sprintf("\nCLIENT: %s\n", c.FullName())
	related := fmt.Sprintf("Their %d opportunit(ies), %d interaction(s), and %d task(s) are kept.",
		len(m.app.Opportunities.ByClient(c.ID)), len(m.app.Interactions.ByClient(c.ID)), len(m.app.Tasks.ByClient(c.ID)))
	warning := "\nThis action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		related,
		warning,
		"",
		buttons,
	)

	box := confirmBoxStyle.Render(content)

	// Center the box on screen
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if err := m.app.Clients.Delete(m.ctx, m.selectedID); err != nil {
			m.err = err
			m.viewMode = ViewDetail
			return m, nil
		}
		m.err = nil
		m.status = "Successfully deleted"
		m.viewMode = ViewList
		m.selectedID = ""
		m.clampSelection()
	case "n", "N", "esc":
		// Cancel delete
		m.viewMode = ViewDetail
	}

	return m, nil
}
