package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/clientbook/models"
)

func (m Model) renderListView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("CLIENTBOOK"))
	s.WriteString("\n\n")

	// Tabs
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.searching || m.searchQuery != "" {
		cursor := ""
		if m.searching {
			cursor = "█"
		}
		s.WriteString(fmt.Sprintf("Search: %s%s\n\n", m.searchQuery, cursor))
	}

	switch m.entityType {
	case EntityClients:
		s.WriteString(m.renderClientsTable())
	case EntityPipeline:
		s.WriteString(m.renderKanban())
	case EntityTasks:
		s.WriteString(m.renderTasksTable())
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderStatusLine())

	// Help
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	tabs := []string{
		fmt.Sprintf("Clients (%d)", m.app.Clients.Len()),
		fmt.Sprintf("Pipeline (%d)", m.app.Opportunities.Len()),
		fmt.Sprintf("Tasks (%d)", len(m.app.Tasks.Overdue())+len(m.app.Tasks.Upcoming(0))),
	}
	var rendered []string

	for i, tab := range tabs {
		if EntityType(i) == m.entityType {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderStatusLine() string {
	var lines []string
	if m.status != "" {
		lines = append(lines, statusStyle.Render(m.status))
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render("Error: "+m.err.Error()))
	}
	for _, st := range []string{m.app.Clients.Status().Err, m.app.Opportunities.Status().Err, m.app.Tasks.Status().Err} {
		if st != "" {
			lines = append(lines, errorStyle.Render(st))
			break
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// visibleClients is the client tab's rows after search.
func (m Model) visibleClients() []models.Client {
	return m.app.Clients.Search(m.searchQuery)
}

func (m Model) renderClientsTable() string {
	clients := m.visibleClients()
	if len(clients) == 0 {
		return "No clients yet. Press n to add one."
	}

	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Company", Width: 20},
		{Title: "Status", Width: 10},
		{Title: "Email", Width: 28},
		{Title: "Phone", Width: 14},
	}

	var rows []table.Row
	for _, c := range clients {
		rows = append(rows, table.Row{
			c.FullName(),
			c.Company,
			string(c.Status),
			c.Email,
			c.Phone,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 3)),
	)

	// Set selected row
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{"↑/↓: Navigate", "Tab: Switch tabs"}
	switch m.entityType {
	case EntityClients:
		help = append(help, "Enter: View details", "/: Search", "n: New")
	case EntityPipeline:
		help = append(help, "←/→: Stage", "[/]: Move deal", "g: Graph")
	case EntityTasks:
		help = append(help, "Space: Done")
	}
	help = append(help, "s: Sync", "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) rowCount() int {
	switch m.entityType {
	case EntityClients:
		return len(m.visibleClients())
	case EntityPipeline:
		return len(m.app.Opportunities.ByStage(m.currentStage()))
	case EntityTasks:
		return len(m.visibleTasks())
	}
	return 0
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}
	m.status = ""

	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}
	case "tab":
		m.entityType = (m.entityType + 1) % entityCount
		m.selectedRow = 0
	case "shift+tab":
		m.entityType = (m.entityType + entityCount - 1) % entityCount
		m.selectedRow = 0
	case "s":
		m.viewMode = ViewSync
	default:
		switch m.entityType {
		case EntityClients:
			return m.handleClientListKeys(msg)
		case EntityPipeline:
			return m.handleKanbanKeys(msg)
		case EntityTasks:
			return m.handleTaskKeys(msg)
		}
	}

	return m, nil
}

func (m Model) handleClientListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if id := m.getSelectedID(); id != "" {
			m.viewMode = ViewDetail
			m.selectedID = id
		}
	case "/":
		m.searching = true
	case "n":
		// Switch to edit view (new)
		m.viewMode = ViewEdit
		m.selectedID = ""
		m.initFormInputs()
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyEsc:
		m.searching = false
		m.searchQuery = ""
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.searchQuery += " "
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
	}
	m.selectedRow = 0
	return m, nil
}

func (m Model) getSelectedID() string {
	clients := m.visibleClients()
	if m.selectedRow < len(clients) {
		return clients[m.selectedRow].ID
	}
	return ""
}
