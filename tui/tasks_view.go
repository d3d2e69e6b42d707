// ABOUTME: TUI view for follow-up tasks
// ABOUTME: Overdue tasks first, then those due this week, with a due-date indicator
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

// visibleTasks lists incomplete tasks, overdue first then due this week.
func (m Model) visibleTasks() []models.Task {
	return append(m.app.Tasks.Overdue(), m.app.Tasks.Upcoming(0)...)
}

func (m Model) renderTasksTable() string {
	tasks := m.visibleTasks()
	if len(tasks) == 0 {
		return "Nothing due this week."
	}

	columns := []table.Column{
		{Title: "", Width: 3},
		{Title: "Task", Width: 30},
		{Title: "Due", Width: 14},
		{Title: "Priority", Width: 8},
		{Title: "Client", Width: 22},
	}

	now := time.Now().UnixMilli()
	var rows []table.Row
	for _, t := range tasks {
		indicator := "🟢"
		if t.IsOverdue(now) {
			indicator = "🔴"
		} else if t.IsDueWithin(now, models.Day) {
			indicator = "🟡"
		}

		client := ""
		if c, ok := m.app.Clients.Get(t.ClientID); ok {
			client = c.FullName()
		}

		rows = append(rows, table.Row{
			indicator,
			t.Title,
			format.Date(t.DueDate),
			string(t.Priority),
			client,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 3)),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) handleTaskKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ", "x":
		tasks := m.visibleTasks()
		if m.selectedRow >= len(tasks) {
			return m, nil
		}
		t := tasks[m.selectedRow]
		if err := m.app.Tasks.ToggleCompletion(m.ctx, t.ID); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = "✓ " + t.Title
		m.clampSelection()
	case "enter":
		tasks := m.visibleTasks()
		if m.selectedRow < len(tasks) && tasks[m.selectedRow].ClientID != "" {
			if _, ok := m.app.Clients.Get(tasks[m.selectedRow].ClientID); ok {
				m.viewMode = ViewDetail
				m.selectedID = tasks[m.selectedRow].ClientID
			}
		}
	}
	return m, nil
}
