// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Full-screen client list, pipeline kanban, tasks, and call timer over the app stores
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/calllog"
	"github.com/harperreed/clientbook/models"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
	ViewCall
	ViewSync
)

// EntityType is the tab shown in the list view
type EntityType int

const (
	EntityClients EntityType = iota
	EntityPipeline
	EntityTasks
	entityCount
)

// Model is the main bubbletea model
type Model struct {
	app *app.App
	ctx context.Context

	viewMode   ViewMode
	entityType EntityType

	// List view state
	selectedRow int
	searchQuery string
	searching   bool

	// Pipeline state
	selectedStage int

	// Detail view state
	selectedID string

	// Edit view state
	formInputs []textinput.Model
	focusIndex int

	// Graph view state
	graphDOT    string
	graphTitle  string
	graphOffset int
	graphReturn ViewMode

	// Call view state
	call        *calllog.Call
	callTicks   chan time.Duration
	callElapsed time.Duration
	callNotes   textinput.Model
	callEnded   bool

	// Sync view state
	syncInProgress bool
	syncMessages   []string

	changes chan struct{}
	status  string

	width  int
	height int
	err    error
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, a *app.App) Model {
	return Model{
		app:        a,
		ctx:        ctx,
		viewMode:   ViewList,
		entityType: EntityClients,
		width:      80,
		height:     24,
	}
}

// Run starts the full-screen interface and blocks until the user quits.
// The screen redraws whenever a store changes, including changes pushed
// by live sync.
func Run(ctx context.Context, a *app.App) error {
	m := NewModel(ctx, a)
	m.changes = make(chan struct{}, 1)
	stop := watchStores(a, m.changes)
	defer stop()
	stopLive := a.Live(ctx)
	defer stopLive()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// storeChangedMsg is delivered after any collection changes.
type storeChangedMsg struct{}

func watchStores(a *app.App, changes chan<- struct{}) (stop func()) {
	ping := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
	cancels := []func(){
		a.Clients.Watch(func([]models.Client) { ping() }),
		a.Opportunities.Watch(func([]models.Opportunity) { ping() }),
		a.Interactions.Watch(func([]models.Interaction) { ping() }),
		a.Tasks.Watch(func([]models.Task) { ping() }),
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		<-changes
		return storeChangedMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case storeChangedMsg:
		m.clampSelection()
		return m, waitForChange(m.changes)
	case callTickMsg:
		return m.handleCallTick(msg)
	case SyncCompleteMsg:
		m.handleSyncComplete(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	case ViewCall:
		return m.renderCallView()
	case ViewSync:
		return m.renderSyncView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.call != nil {
			m.call.Cancel()
		}
		return m, tea.Quit
	}

	// text entry owns every other key
	typing := m.viewMode == ViewEdit || m.searching || (m.viewMode == ViewCall && m.callEnded)
	if !typing && msg.String() == "q" {
		if m.call != nil {
			m.call.Cancel()
		}
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	case ViewCall:
		return m.handleCallKeys(msg)
	case ViewSync:
		return m.handleSyncKeys(msg)
	}

	return m, nil
}

// clampSelection keeps the cursor on a row after records disappear.
func (m *Model) clampSelection() {
	n := m.rowCount()
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
	if m.viewMode == ViewDetail {
		if _, ok := m.app.Clients.Get(m.selectedID); !ok {
			m.viewMode = ViewList
			m.selectedID = ""
		}
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(models.ColorSuccess))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(models.ColorDanger))
)
