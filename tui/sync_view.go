// ABOUTME: TUI view for sync status and controls
// ABOUTME: Shows Charm sync freshness for the local backend and live sync state for the remote one
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	syncTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(12)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// SyncCompleteMsg is sent when a manual sync finishes.
type SyncCompleteMsg struct {
	Error error
}

func (m Model) renderSyncView() string {
	var s strings.Builder

	s.WriteString(syncTitleStyle.Render("Sync"))
	s.WriteString("\n\n")

	row := func(label, value string) {
		s.WriteString(syncLabelStyle.Render(label))
		s.WriteString(value)
		s.WriteString("\n")
	}

	s.WriteString(syncHeaderStyle.Render("Status"))
	s.WriteString("\n\n")

	if m.app.Charm != nil {
		cfg := m.app.Charm.Config()
		row("Backend", "local (Charm KV)")
		row("Server", cfg.Host)
		row("Auto-sync", fmt.Sprintf("%v", cfg.AutoSync))

		switch last := m.app.Charm.LastSync(); {
		case m.syncInProgress:
			row("State", syncSyncingStyle.Render("⟳ Syncing..."))
		case last.IsZero():
			row("State", syncMessageStyle.Render("Not synced this session"))
		case m.app.Charm.Stale(time.Now()):
			row("State", syncErrorStyle.Render("Stale • last synced "+humanize.Time(last)))
		default:
			row("State", syncIdleStyle.Render("✓ Idle • last synced "+humanize.Time(last)))
		}
	} else if m.app.Auth != nil {
		row("Backend", "remote")
		if u, ok := m.app.Auth.CurrentUser(); ok {
			row("Account", fmt.Sprintf("%s <%s>", u.DisplayName, u.Email))
		} else {
			row("Account", syncErrorStyle.Render("not signed in"))
		}
		if m.app.Sync != nil && m.app.Sync.Active() {
			row("Live sync", syncIdleStyle.Render("✓ active"))
		} else {
			row("Live sync", syncMessageStyle.Render("inactive"))
		}
	} else {
		row("Backend", m.app.Backend)
		row("State", syncMessageStyle.Render("sync unavailable"))
	}

	row("Records", fmt.Sprintf("%d client(s), %d opportunit(ies), %d interaction(s), %d task(s)",
		m.app.Clients.Len(), m.app.Opportunities.Len(), m.app.Interactions.Len(), m.app.Tasks.Len()))
	s.WriteString("\n")

	// Recent messages
	if len(m.syncMessages) > 0 {
		s.WriteString(syncHeaderStyle.Render("Recent Activity"))
		s.WriteString("\n\n")
		// Show last 5 messages
		start := 0
		if len(m.syncMessages) > 5 {
			start = len(m.syncMessages) - 5
		}
		for i := start; i < len(m.syncMessages); i++ {
			s.WriteString(syncMessageStyle.Render("  " + m.syncMessages[i]))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderSyncHelp())

	return s.String()
}

func (m Model) renderSyncHelp() string {
	help := []string{"Esc: Back", "q: Quit"}
	if m.app.Charm != nil {
		help = append([]string{"Enter: Sync now"}, help...)
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.app.Charm == nil || m.syncInProgress {
			return m, nil
		}
		// Send start message immediately, then queue the async sync
		m.syncInProgress = true
		m.addSyncMessage("Starting sync...")
		return m, m.syncNow()
	case "esc":
		m.viewMode = ViewList
	}

	return m, nil
}

// syncNow pulls and pushes Charm changes, then reloads the stores.
func (m Model) syncNow() tea.Cmd {
	return func() tea.Msg {
		if err := m.app.Charm.Sync(); err != nil {
			return SyncCompleteMsg{Error: err}
		}
		return SyncCompleteMsg{Error: m.app.Load(m.ctx)}
	}
}

// addSyncMessage adds a message to the sync message log.
func (m *Model) addSyncMessage(msg string) {
	timestamp := time.Now().Format("15:04:05")
	m.syncMessages = append(m.syncMessages, fmt.Sprintf("[%s] %s", timestamp, msg))
}

// handleSyncComplete handles sync completion messages.
func (m *Model) handleSyncComplete(msg SyncCompleteMsg) {
	m.syncInProgress = false

	if msg.Error != nil {
		m.addSyncMessage(fmt.Sprintf("✗ sync failed: %v", msg.Error))
	} else {
		m.addSyncMessage("✓ sync completed")
	}
	m.clampSelection()
}
