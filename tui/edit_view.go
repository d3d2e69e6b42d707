package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/clientbook/models"
)

// Client form field order.
const (
	fieldFirst = iota
	fieldLast
	fieldCompany
	fieldPosition
	fieldEmail
	fieldPhone
	fieldAddress
	fieldStatus
	fieldNotes
	fieldCount
)

func (m Model) renderEditView() string {
	var s strings.Builder

	// Title
	if m.selectedID == "" {
		s.WriteString(titleStyle.Render("NEW CLIENT"))
	} else {
		s.WriteString(titleStyle.Render("EDIT CLIENT"))
	}
	s.WriteString("\n\n")

	// Form fields
	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab/↓: Next field",
		"Shift+Tab/↑: Previous",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.err = nil
		if m.selectedID == "" {
			m.viewMode = ViewList
		} else {
			m.viewMode = ViewDetail
		}
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		// Save the client
		id, err := m.saveClient()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		if m.selectedID == "" {
			m.status = "✓ Client created"
			m.viewMode = ViewList
			return m, nil
		}
		m.status = "✓ Client updated"
		m.viewMode = ViewDetail
		m.selectedID = id
		return m, nil
	}

	// Update current input
	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *Model) initFormInputs() {
	placeholders := [fieldCount]string{
		fieldFirst:    "First name",
		fieldLast:     "Last name",
		fieldCompany:  "Company",
		fieldPosition: "Position",
		fieldEmail:    "Email",
		fieldPhone:    "Phone",
		fieldAddress:  "Address",
		fieldStatus:   "Status (lead/prospect/customer/inactive)",
		fieldNotes:    "Notes",
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholders[i]
		inputs[i].CharLimit = 100
	}
	inputs[fieldPhone].CharLimit = 20
	inputs[fieldAddress].CharLimit = 200
	inputs[fieldNotes].CharLimit = 500
	inputs[fieldStatus].SetValue(string(models.StatusLead))

	// If editing, populate fields
	if c, ok := m.app.Clients.Get(m.selectedID); ok && m.selectedID != "" {
		inputs[fieldFirst].SetValue(c.FirstName)
		inputs[fieldLast].SetValue(c.LastName)
		inputs[fieldCompany].SetValue(c.Company)
		inputs[fieldPosition].SetValue(c.Position)
		inputs[fieldEmail].SetValue(c.Email)
		inputs[fieldPhone].SetValue(c.Phone)
		inputs[fieldAddress].SetValue(c.Address)
		inputs[fieldStatus].SetValue(string(c.Status))
		inputs[fieldNotes].SetValue(c.Notes)
	}

	m.formInputs = inputs
	m.focusIndex = 0
	m.updateFormFocus()
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m Model) value(field int) string {
	return strings.TrimSpace(m.formInputs[field].Value())
}

// saveClient creates or updates the client from the form and returns its id.
func (m Model) saveClient() (string, error) {
	status, err := models.ParseClientStatus(m.value(fieldStatus))
	if err != nil {
		return "", err
	}

	if m.selectedID == "" {
		if m.value(fieldFirst) == "" {
			return "", fmt.Errorf("first name is required")
		}
		return m.app.Clients.Add(m.ctx, models.ClientInput{
			FirstName: m.value(fieldFirst),
			LastName:  m.value(fieldLast),
			Company:   m.value(fieldCompany),
			Position:  m.value(fieldPosition),
			Email:     m.value(fieldEmail),
			Phone:     m.value(fieldPhone),
			Address:   m.value(fieldAddress),
			Status:    status,
			Notes:     m.value(fieldNotes),
		})
	}

	patch := models.ClientPatch{
		FirstName: models.String(m.value(fieldFirst)),
		LastName:  models.String(m.value(fieldLast)),
		Company:   models.String(m.value(fieldCompany)),
		Position:  models.String(m.value(fieldPosition)),
		Email:     models.String(m.value(fieldEmail)),
		Phone:     models.String(m.value(fieldPhone)),
		Address:   models.String(m.value(fieldAddress)),
		Status:    &status,
		Notes:     models.String(m.value(fieldNotes)),
	}
	if err := m.app.Clients.Update(m.ctx, m.selectedID, patch); err != nil {
		return "", err
	}
	return m.selectedID, nil
}
