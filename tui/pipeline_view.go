// ABOUTME: Kanban board of opportunities by pipeline stage
// ABOUTME: Columns are colored by stage; deals move between stages with [ and ]
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

const kanbanColumnWidth = 20

func (m Model) currentStage() models.Stage {
	stages := models.Stages()
	if m.selectedStage < 0 || m.selectedStage >= len(stages) {
		return stages[0]
	}
	return stages[m.selectedStage]
}

func (m Model) renderKanban() string {
	var columns []string
	for i, st := range models.Stages() {
		columns = append(columns, m.renderKanbanColumn(st, i == m.selectedStage))
	}
	board := lipgloss.JoinHorizontal(lipgloss.Top, columns...)

	totals := fmt.Sprintf("Pipeline %s • Weighted %s",
		format.Currency(m.app.Opportunities.TotalValue()),
		format.Currency(m.app.Opportunities.WeightedValue()))
	return board + "\n" + helpStyle.Render(totals)
}

func (m Model) renderKanbanColumn(st models.Stage, active bool) string {
	color := lipgloss.Color(st.Color())
	opps := m.app.Opportunities.ByStage(st)

	var value int64
	for _, o := range opps {
		value += o.Value
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(color).
		Width(kanbanColumnWidth).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("%s (%d)", st.Label(), len(opps)))

	var cards []string
	cards = append(cards, header, helpStyle.UnsetMarginTop().Render(format.Currency(value)))
	for i, o := range opps {
		cards = append(cards, m.renderCard(o, color, active && i == m.selectedRow))
	}

	border := lipgloss.HiddenBorder()
	if active {
		border = lipgloss.RoundedBorder()
	}
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Width(kanbanColumnWidth + 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, cards...))
}

func (m Model) renderCard(o models.Opportunity, color lipgloss.Color, selected bool) string {
	client := ""
	if c, ok := m.app.Clients.Get(o.ClientID); ok {
		client = c.FullName()
	}
	body := fmt.Sprintf("%s\n%s\n%s • %s",
		format.Truncate(o.Title, kanbanColumnWidth-2),
		format.Truncate(client, kanbanColumnWidth-2),
		format.Currency(o.Value),
		format.Probability(o))

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(color).
		PaddingLeft(1).
		Width(kanbanColumnWidth)
	if selected {
		style = style.Background(lipgloss.Color("235")).Bold(true)
	}
	return style.Render(body)
}

func (m Model) selectedOpportunity() (models.Opportunity, bool) {
	opps := m.app.Opportunities.ByStage(m.currentStage())
	if m.selectedRow < len(opps) {
		return opps[m.selectedRow], true
	}
	return models.Opportunity{}, false
}

func (m Model) handleKanbanKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	last := len(models.Stages()) - 1
	switch msg.String() {
	case "left", "h":
		if m.selectedStage > 0 {
			m.selectedStage--
			m.selectedRow = 0
		}
	case "right", "l":
		if m.selectedStage < last {
			m.selectedStage++
			m.selectedRow = 0
		}
	case "[", "]":
		o, ok := m.selectedOpportunity()
		if !ok {
			return m, nil
		}
		to := m.selectedStage + 1
		if msg.String() == "[" {
			to = m.selectedStage - 1
		}
		if to < 0 || to > last {
			return m, nil
		}
		st := models.Stages()[to]
		if err := m.app.Opportunities.Update(m.ctx, o.ID, models.OpportunityPatch{Stage: &st}); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("%s moved to %s", o.Title, st.Label())
		m.selectedStage = to
		m.selectedRow = m.indexInStage(st, o.ID)
	case "g":
		if err := m.generatePipelineGraph(); err != nil {
			m.err = err
		}
	case "enter":
		if o, ok := m.selectedOpportunity(); ok {
			m.viewMode = ViewDetail
			m.selectedID = o.ClientID
		}
	}
	return m, nil
}

func (m Model) indexInStage(st models.Stage, id string) int {
	for i, o := range m.app.Opportunities.ByStage(st) {
		if o.ID == id {
			return i
		}
	}
	return 0
}
