package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/charm"
	"github.com/harperreed/clientbook/models"
	"github.com/harperreed/clientbook/store"
)

var now = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T) (*app.App, string) {
	t.Helper()
	ctx := context.Background()
	a := app.NewLocal(charm.NewTestClient(t), nil, store.Options{Now: func() time.Time { return now }})
	require.NoError(t, a.Load(ctx))

	ann, err := a.Clients.Add(ctx, models.ClientInput{FirstName: "Ann", LastName: "Lee", Company: "Acme", Status: models.StatusCustomer})
	require.NoError(t, err)
	_, err = a.Clients.Add(ctx, models.ClientInput{FirstName: "Bob"})
	require.NoError(t, err)

	oppID, err := a.Opportunities.Add(ctx, models.OpportunityInput{Title: "Website", ClientID: ann, Value: 5000, Stage: models.StageProposal})
	require.NoError(t, err)
	_, err = a.Opportunities.Add(ctx, models.OpportunityInput{Title: "Audit", ClientID: ann, Value: 1000, Stage: models.StageLost})
	require.NoError(t, err)

	_, err = a.Interactions.Add(ctx, models.InteractionInput{
		ClientID: ann, OpportunityID: oppID, Type: models.InteractionCall,
		Date: now.Add(-2 * time.Hour).UnixMilli(), Duration: models.Int(12),
	})
	require.NoError(t, err)

	_, err = a.Tasks.Add(ctx, models.TaskInput{Title: "Send proposal", ClientID: ann, DueDate: now.Add(-24 * time.Hour).UnixMilli()})
	require.NoError(t, err)
	_, err = a.Tasks.Add(ctx, models.TaskInput{Title: "Check in", ClientID: ann, DueDate: now.Add(48 * time.Hour).UnixMilli()})
	require.NoError(t, err)
	return a, ann
}

func TestDashboardStats(t *testing.T) {
	a, _ := seeded(t)
	stats := GenerateDashboardStats(a, now)

	assert.Equal(t, 2, stats.TotalClients)
	assert.Equal(t, 2, stats.TotalOpportunities)
	assert.Equal(t, int64(5000), stats.PipelineValue)
	assert.Equal(t, int64(3000), stats.WeightedValue)
	assert.Equal(t, 1, stats.PipelineByStage[models.StageProposal].Count)
	assert.Len(t, stats.OverdueTasks, 1)
	assert.Len(t, stats.UpcomingTasks, 1)
	require.Len(t, stats.RecentActivity, 1)
	assert.Equal(t, "Call with Ann Lee (12 min)", stats.RecentActivity[0].Description)

	// Bob was never contacted
	require.Len(t, stats.StaleClients, 1)
	assert.Equal(t, StaleItem{Name: "Bob", DaysSince: -1}, stats.StaleClients[0])
	assert.Empty(t, stats.StaleOpportunities)
}

func TestRenderDashboard(t *testing.T) {
	a, _ := seeded(t)
	out := RenderDashboard(GenerateDashboardStats(a, now), now)

	assert.Contains(t, out, "CLIENTBOOK DASHBOARD")
	assert.Contains(t, out, "Proposal")
	assert.Contains(t, out, "$5,000")
	assert.Contains(t, out, "1 overdue")
	assert.Contains(t, out, "Send proposal")
	assert.Contains(t, out, "1 clients - no contact")
	// every stage gets a row even when empty
	for _, st := range models.Stages() {
		assert.Contains(t, out, st.Label())
	}
}

func TestPipelineGraph(t *testing.T) {
	a, _ := seeded(t)
	dot, err := NewGraphGenerator(a).GeneratePipelineGraph(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(strings.TrimSpace(dot), "digraph"))
	assert.Contains(t, dot, "Website")
	assert.Contains(t, dot, "Closed Lost")
	assert.Contains(t, dot, models.StageProposal.Color())
}

func TestClientGraph(t *testing.T) {
	a, ann := seeded(t)
	g := NewGraphGenerator(a)

	dot, err := g.GenerateClientGraph(context.Background(), ann)
	require.NoError(t, err)
	assert.Contains(t, dot, "Send proposal")
	assert.Contains(t, dot, "Website")

	_, err = g.GenerateClientGraph(context.Background(), "missing")
	assert.Error(t, err)
}
