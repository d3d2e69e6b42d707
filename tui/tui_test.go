// ABOUTME: Tests for the TUI model
// ABOUTME: Drives list, kanban, task, edit, delete, and call views with key messages
package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/charm"
	"github.com/harperreed/clientbook/models"
	"github.com/harperreed/clientbook/store"
)

func setupTestApp(t *testing.T) *app.App {
	t.Helper()
	a := app.NewLocal(charm.NewTestClient(t), nil, store.Options{})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Failed to load app: %v", err)
	}
	return a
}

type fixture struct {
	app       *app.App
	annID     string
	bobID     string
	websiteID string
	taskID    string
}

func seed(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{app: setupTestApp(t)}
	var err error
	if f.annID, err = f.app.Clients.Add(ctx, models.ClientInput{FirstName: "Ann", LastName: "Lee", Company: "Acme", Phone: "555-0100"}); err != nil {
		t.Fatal(err)
	}
	if f.bobID, err = f.app.Clients.Add(ctx, models.ClientInput{FirstName: "Bob", Company: "Globex"}); err != nil {
		t.Fatal(err)
	}
	if f.websiteID, err = f.app.Opportunities.Add(ctx, models.OpportunityInput{Title: "Website", ClientID: f.annID, Value: 5000, Stage: models.StageProposal}); err != nil {
		t.Fatal(err)
	}
	due := time.Now().Add(-time.Hour).UnixMilli()
	if f.taskID, err = f.app.Tasks.Add(ctx, models.TaskInput{Title: "Send contract", ClientID: f.annID, DueDate: due}); err != nil {
		t.Fatal(err)
	}
	return f
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(key(k))
		m = updated.(Model)
	}
	return m
}

func TestListViewShowsClients(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)

	output := m.View()
	for _, want := range []string{"CLIENTBOOK", "Clients (2)", "Pipeline (1)", "Ann Lee", "Globex"} {
		if !strings.Contains(output, want) {
			t.Errorf("List view should contain %q", want)
		}
	}
}

func TestTabSwitching(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)

	m = press(t, m, "tab")
	if m.entityType != EntityPipeline {
		t.Fatalf("Expected pipeline tab, got %v", m.entityType)
	}
	output := m.View()
	for _, st := range models.Stages() {
		if !strings.Contains(output, st.Label()) {
			t.Errorf("Kanban should have a %s column", st.Label())
		}
	}
	if !strings.Contains(output, "Website") {
		t.Error("Kanban should show the Website card")
	}

	m = press(t, m, "tab")
	if m.entityType != EntityTasks {
		t.Fatalf("Expected tasks tab, got %v", m.entityType)
	}
	if !strings.Contains(m.View(), "Send contract") {
		t.Error("Tasks tab should list the overdue task")
	}

	m = press(t, m, "tab")
	if m.entityType != EntityClients {
		t.Error("Tab should wrap back to clients")
	}
}

func TestSearch(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)

	m = press(t, m, "/", "g", "l", "o", "b", "enter")
	if m.searching {
		t.Fatal("Enter should end search mode")
	}
	if got := m.visibleClients(); len(got) != 1 || got[0].ID != f.bobID {
		t.Fatalf("Expected only Bob, got %v", got)
	}
	if strings.Contains(m.View(), "Ann Lee") {
		t.Error("Filtered list should not show Ann")
	}

	// q goes into the query while searching instead of quitting
	m = press(t, m, "/")
	updated, cmd := m.Update(key("q"))
	m = updated.(Model)
	if cmd != nil {
		t.Error("q should not quit while searching")
	}
	if m.searchQuery != "globq" {
		t.Errorf("Expected query globq, got %q", m.searchQuery)
	}

	m = press(t, m, "esc")
	if m.searchQuery != "" || len(m.visibleClients()) != 2 {
		t.Error("Escape should clear the search")
	}
}

func TestKanbanMovesDeal(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)
	m.entityType = EntityPipeline
	m.selectedStage = models.StageProposal.Index()

	m = press(t, m, "]")
	o, _ := f.app.Opportunities.Get(f.websiteID)
	if o.Stage != models.StageNegotiation {
		t.Fatalf("Expected negotiation, got %s", o.Stage)
	}
	if m.currentStage() != models.StageNegotiation {
		t.Error("Selection should follow the moved deal")
	}
	if !strings.Contains(m.status, "moved to Negotiation") {
		t.Errorf("Unexpected status %q", m.status)
	}

	m = press(t, m, "[", "[")
	o, _ = f.app.Opportunities.Get(f.websiteID)
	if o.Stage != models.StageQualified {
		t.Errorf("Expected qualified, got %s", o.Stage)
	}

	m = press(t, m, "enter")
	if m.viewMode != ViewDetail || m.selectedID != f.annID {
		t.Error("Enter on a card should open its client")
	}
}

func TestToggleTask(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)
	m.entityType = EntityTasks

	m = press(t, m, " ")
	task, _ := f.app.Tasks.Get(f.taskID)
	if !task.Completed {
		t.Fatal("Space should complete the task")
	}
	if !strings.Contains(m.View(), "Nothing due this week") {
		t.Error("Completed task should leave the list")
	}
}

func TestDetailView(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)

	m = press(t, m, "enter")
	if m.viewMode != ViewDetail {
		t.Fatalf("Expected detail view, got %v", m.viewMode)
	}
	output := m.View()
	for _, want := range []string{"Ann Lee", "OPPORTUNITIES", "Website", "Send contract", "overdue"} {
		if !strings.Contains(output, want) {
			t.Errorf("Detail view should contain %q", want)
		}
	}

	m = press(t, m, "g")
	if m.viewMode != ViewGraph || !strings.Contains(m.graphDOT, "digraph") {
		t.Error("g should render the client graph")
	}
	m = press(t, m, "esc", "esc")
	if m.viewMode != ViewList {
		t.Error("Escape should return to the list")
	}
}

func TestCreateClientFromForm(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)

	m = press(t, m, "n")
	if m.viewMode != ViewEdit || len(m.formInputs) != fieldCount {
		t.Fatalf("Expected a client form, got view %v with %d fields", m.viewMode, len(m.formInputs))
	}
	m = press(t, m, "C", "y", "tab", "q")
	m = press(t, m, "enter")

	if m.viewMode != ViewList {
		t.Fatalf("Save should return to the list, err: %v", m.err)
	}
	if f.app.Clients.Len() != 3 {
		t.Fatalf("Expected 3 clients, got %d", f.app.Clients.Len())
	}
	found := f.app.Clients.Search("Cy q")
	if len(found) != 1 || found[0].Status != models.StatusLead {
		t.Errorf("Expected new lead Cy q, got %v", found)
	}
}

func TestEditClientRejectsBadStatus(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)
	m.viewMode = ViewDetail
	m.selectedID = f.annID

	m = press(t, m, "e")
	if got := m.formInputs[fieldCompany].Value(); got != "Acme" {
		t.Fatalf("Form should be prefilled, company = %q", got)
	}
	m.formInputs[fieldStatus].SetValue("vip")
	m = press(t, m, "enter")
	if m.err == nil || m.viewMode != ViewEdit {
		t.Fatal("Invalid status should keep the form open with an error")
	}

	m.formInputs[fieldStatus].SetValue("customer")
	m = press(t, m, "enter")
	if m.viewMode != ViewDetail {
		t.Fatalf("Save should return to detail, err: %v", m.err)
	}
	c, _ := f.app.Clients.Get(f.annID)
	if c.Status != models.StatusCustomer {
		t.Errorf("Expected customer, got %s", c.Status)
	}
}

func TestDeleteClient(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)
	m.viewMode = ViewDetail
	m.selectedID = f.bobID

	m = press(t, m, "d")
	if !strings.Contains(m.View(), "CLIENT: Bob") {
		t.Fatal("Confirmation should name the client")
	}
	m = press(t, m, "n")
	if m.viewMode != ViewDetail || f.app.Clients.Len() != 2 {
		t.Fatal("n should cancel")
	}

	m = press(t, m, "d", "y")
	if m.viewMode != ViewList || f.app.Clients.Len() != 1 {
		t.Error("y should delete and return to the list")
	}
}

func TestCallView(t *testing.T) {
	old := callTickInterval
	callTickInterval = time.Millisecond
	t.Cleanup(func() { callTickInterval = old })

	f := seed(t)
	m := NewModel(context.Background(), f.app)
	m.viewMode = ViewDetail
	m.selectedID = f.annID

	updated, cmd := m.Update(key("c"))
	m = updated.(Model)
	if m.viewMode != ViewCall || cmd == nil {
		t.Fatal("c should start a call")
	}
	if !strings.Contains(m.View(), "CALL WITH ANN LEE") {
		t.Error("Call view should name the client")
	}

	// one tick arrives through the command
	if _, ok := cmd().(callTickMsg); !ok {
		t.Fatal("Expected a tick message")
	}

	m = press(t, m, "enter")
	if !m.callEnded {
		t.Fatal("Enter should end the call")
	}
	m = press(t, m, "G", "o", "o", "d", "enter")

	if m.viewMode != ViewDetail {
		t.Fatalf("Saving should return to detail, err: %v", m.err)
	}
	items := f.app.Interactions.ByClient(f.annID)
	if len(items) != 1 {
		t.Fatalf("Expected 1 interaction, got %d", len(items))
	}
	if items[0].Type != models.InteractionCall || items[0].Notes != "Good" {
		t.Errorf("Unexpected interaction %+v", items[0])
	}
	if !strings.Contains(m.status, "Call logged") {
		t.Errorf("Unexpected status %q", m.status)
	}
}

func TestCallCancel(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)
	m.viewMode = ViewDetail
	m.selectedID = f.annID

	m = press(t, m, "c", "esc")
	if m.viewMode != ViewDetail || m.call != nil {
		t.Fatal("Escape should cancel the call")
	}
	if f.app.Interactions.Len() != 0 {
		t.Error("Cancelled call should not be saved")
	}
}

func TestStoreChangesTriggerRedraw(t *testing.T) {
	f := seed(t)
	changes := make(chan struct{}, 1)
	stop := watchStores(f.app, changes)
	defer stop()

	m := NewModel(context.Background(), f.app)
	m.changes = changes
	m.selectedRow = 1

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init should wait for store changes")
	}

	if err := f.app.Clients.Delete(context.Background(), f.bobID); err != nil {
		t.Fatal(err)
	}

	msg := cmd()
	if _, ok := msg.(storeChangedMsg); !ok {
		t.Fatalf("Expected storeChangedMsg, got %T", msg)
	}
	updated, next := m.Update(msg)
	m = updated.(Model)
	if m.selectedRow != 0 {
		t.Errorf("Selection should clamp to the remaining row, got %d", m.selectedRow)
	}
	if next == nil {
		t.Error("Model should keep waiting for changes")
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(context.Background(), setupTestApp(t))
	if m.Init() != nil {
		t.Error("Without a change feed Init has nothing to wait for")
	}
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestPipelineGraph(t *testing.T) {
	f := seed(t)
	m := NewModel(context.Background(), f.app)

	m = press(t, m, "tab", "g")
	if m.viewMode != ViewGraph {
		t.Fatalf("Expected graph view, got %v", m.viewMode)
	}
	if !strings.Contains(m.View(), "GRAPH: PIPELINE") {
		t.Error("Graph view should name the pipeline")
	}

	m = press(t, m, "j", "j", "k")
	if m.graphOffset != 1 {
		t.Errorf("Expected offset 1 after scrolling, got %d", m.graphOffset)
	}

	m = press(t, m, "esc")
	if m.viewMode != ViewList || m.entityType != EntityPipeline {
		t.Error("Escape should return to the pipeline tab")
	}
}
