// ABOUTME: Call timer view for logging a phone call with a client
// ABOUTME: Shows a live elapsed timer, then takes notes and records the call as an interaction
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/clientbook/calllog"
	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

var callTickInterval = time.Second

var timerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color(models.ColorSuccess)).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color(models.ColorSuccess)).
	Padding(1, 4)

type callTickMsg struct {
	elapsed time.Duration
}

func waitForTick(ticks <-chan time.Duration) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-ticks
		if !ok {
			return nil
		}
		return callTickMsg{elapsed: d}
	}
}

func (m Model) startCall() (tea.Model, tea.Cmd) {
	if _, ok := m.app.Clients.Get(m.selectedID); !ok {
		return m, nil
	}
	ticks := make(chan time.Duration, 1)
	m.callTicks = ticks
	m.call = calllog.Start(m.ctx, m.selectedID, func(d time.Duration) {
		select {
		case ticks <- d:
		default:
		}
	}, calllog.WithInterval(callTickInterval))
	m.callElapsed = 0
	m.callEnded = false
	m.status = ""
	m.viewMode = ViewCall
	return m, waitForTick(ticks)
}

// stopTicks runs after the call has halted, so no tick can race the close.
func (m *Model) stopTicks() {
	if m.callTicks != nil {
		close(m.callTicks)
		m.callTicks = nil
	}
}

func (m Model) handleCallTick(msg callTickMsg) (tea.Model, tea.Cmd) {
	if m.call == nil || m.callEnded {
		return m, nil
	}
	m.callElapsed = msg.elapsed
	return m, waitForTick(m.callTicks)
}

func (m Model) renderCallView() string {
	var s strings.Builder

	name := m.selectedID
	phone := ""
	if c, ok := m.app.Clients.Get(m.selectedID); ok {
		name = c.FullName()
		phone = c.Phone
	}

	s.WriteString(titleStyle.Render("📞 CALL WITH " + strings.ToUpper(name)))
	s.WriteString("\n")
	if phone != "" {
		s.WriteString(fieldValueStyle.Render(phone))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(timerStyle.Render(format.Duration(m.callElapsed)))
	s.WriteString("\n\n")

	if !m.callEnded {
		s.WriteString(helpStyle.Render("Enter: End call • Esc: Cancel"))
		return s.String()
	}

	s.WriteString(fmt.Sprintf("Call ended after %s (%d min)\n\n", format.Duration(m.callElapsed), calllog.Minutes(m.callElapsed)))
	s.WriteString(m.callNotes.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Enter: Save call • Esc: Discard"))
	return s.String()
}

func (m Model) handleCallKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.call == nil {
		m.viewMode = ViewDetail
		return m, nil
	}

	if !m.callEnded {
		switch msg.String() {
		case "enter":
			m.callElapsed = m.call.End()
			m.stopTicks()
			m.callEnded = true
			m.callNotes = textinput.New()
			m.callNotes.Placeholder = "Call notes"
			m.callNotes.CharLimit = 500
			m.callNotes.Focus()
		case "esc":
			m.call.Cancel()
			m.stopTicks()
			m.call = nil
			m.status = "Call cancelled, nothing saved"
			m.viewMode = ViewDetail
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		record := m.call.Interaction(calllog.Summary{Notes: strings.TrimSpace(m.callNotes.Value())})
		if _, err := m.app.Interactions.Add(m.ctx, record); err != nil {
			m.err = err
		} else {
			m.err = nil
			m.status = fmt.Sprintf("✓ Call logged, %s", format.Minutes(record.Duration))
		}
		m.call = nil
		m.viewMode = ViewDetail
		return m, nil
	case "esc":
		m.call = nil
		m.status = "Call discarded"
		m.viewMode = ViewDetail
		return m, nil
	}

	var cmd tea.Cmd
	m.callNotes, cmd = m.callNotes.Update(msg)
	return m, cmd
}
