package remote

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/clientbook/db"
	"github.com/harperreed/clientbook/docstore"
	"github.com/harperreed/clientbook/models"
	"github.com/harperreed/clientbook/store"
)

type user string

func (u user) UserID() (string, bool) { return string(u), u != "" }

func openDocs(t *testing.T) *db.DocumentStore {
	t.Helper()
	s, err := db.Open(filepath.Join(t.TempDir(), "remote.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUnauthenticatedFailsBeforeDatabase(t *testing.T) {
	ctx := context.Background()
	// a nil service panics if any call reaches it
	c := NewClients(nil, user(""), nil)

	_, err := c.Load(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.EqualError(t, err, "user not authenticated")
	assert.ErrorIs(t, c.Create(ctx, models.Client{ID: "c1"}), ErrUnauthenticated)
	assert.ErrorIs(t, c.Update(ctx, models.Client{ID: "c1"}, models.ClientPatch{}), ErrUnauthenticated)
	assert.ErrorIs(t, c.Delete(ctx, "c1"), ErrUnauthenticated)
	_, _, err = c.Feed(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = NewTasks(nil, nil, nil).Overdue(ctx, time.Now())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestDateFieldsRoundTripAtMillisecond(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()

	ms := int64(1718000000987)
	follow := ms + 7*models.Day
	closeDate := ms + 30*models.Day

	in := NewInteractions(docs, user("u1"), nil)
	require.NoError(t, in.Create(ctx, models.Interaction{
		ID: "i1", ClientID: "c1", Type: models.InteractionCall, Date: ms,
		Duration: models.Int(3), FollowUpDate: &follow,
	}))
	got, err := in.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ms, got[0].Date)
	require.NotNil(t, got[0].FollowUpDate)
	assert.Equal(t, follow, *got[0].FollowUpDate)
	assert.Equal(t, 3, *got[0].Duration)

	opps := NewOpportunities(docs, user("u1"), nil)
	require.NoError(t, opps.Create(ctx, models.Opportunity{
		ID: "o1", Title: "Renewal", ClientID: "c1", Value: 5000, Stage: models.StageProposal,
		ExpectedCloseDate: &closeDate, CreatedAt: ms, UpdatedAt: ms + 1,
	}))
	o, err := opps.Load(ctx)
	require.NoError(t, err)
	require.Len(t, o, 1)
	assert.Equal(t, closeDate, *o[0].ExpectedCloseDate)
	assert.Equal(t, ms, o[0].CreatedAt)
	assert.Equal(t, ms+1, o[0].UpdatedAt)
	assert.Nil(t, o[0].Probability)
}

func TestStoredDatesAreTimestamps(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()

	tasks := NewTasks(docs, user("u1"), nil)
	require.NoError(t, tasks.Create(ctx, models.Task{ID: "t1", Title: "Send quote", DueDate: 0, Priority: models.PriorityHigh}))

	raw, err := docs.Get(ctx, docstore.Ref{Namespace: "u1", Collection: TasksCollection, ID: "t1"})
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "1970-01-01T00:00:00.000Z", stored["dueDate"])
}

func TestUpdateWritesOnlyPatchedFields(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()
	clients := NewClients(docs, user("u1"), nil)

	require.NoError(t, clients.Create(ctx, models.Client{ID: "c1", FirstName: "Ann", Company: "Acme", Status: models.StatusLead, CreatedAt: 10, UpdatedAt: 10}))

	// another device changes the company
	ref := docstore.Ref{Namespace: "u1", Collection: ClientsCollection, ID: "c1"}
	require.NoError(t, docs.Update(ctx, ref, map[string]any{"company": "Acme Corp"}))

	// this device only changes the status, from a stale copy
	stale := models.Client{ID: "c1", FirstName: "Ann", Company: "Acme", Status: models.StatusCustomer, CreatedAt: 10, UpdatedAt: 20}
	status := models.StatusCustomer
	require.NoError(t, clients.Update(ctx, stale, models.ClientPatch{Status: &status}))

	got, err := clients.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme Corp", got[0].Company)
	assert.Equal(t, models.StatusCustomer, got[0].Status)
	assert.Equal(t, int64(20), got[0].UpdatedAt)
}

func TestUpdateClearsOmittedField(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()
	in := NewInteractions(docs, user("u1"), nil)

	require.NoError(t, in.Create(ctx, models.Interaction{ID: "i1", ClientID: "c1", Type: models.InteractionNote, Notes: "draft", Date: 5}))
	require.NoError(t, in.Update(ctx, models.Interaction{ID: "i1", ClientID: "c1", Type: models.InteractionNote, Date: 5}, models.InteractionPatch{Notes: models.String("")}))

	raw, err := docs.Get(ctx, docstore.Ref{Namespace: "u1", Collection: InteractionsCollection, ID: "i1"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "notes")
}

func TestMissingDocumentIsNotFound(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()
	tasks := NewTasks(docs, user("u1"), nil)

	err := tasks.Update(ctx, models.Task{ID: "nope", Title: "x"}, models.TaskPatch{Completed: models.Bool(true)})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, tasks.Delete(ctx, "nope"), store.ErrNotFound)
}

func TestNamespacesAreIsolated(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()

	require.NoError(t, NewClients(docs, user("u1"), nil).Create(ctx, models.Client{ID: "c1", FirstName: "Ann"}))
	got, err := NewClients(docs, user("u2"), nil).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServerSideQueries(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()
	now := time.UnixMilli(1718000000000)
	ms := models.Millis(now)

	tasks := NewTasks(docs, user("u1"), nil)
	for _, tk := range []models.Task{
		{ID: "late", Title: "late", ClientID: "c1", DueDate: ms - models.Day, Priority: models.PriorityLow},
		{ID: "soon", Title: "soon", ClientID: "c1", DueDate: ms + models.Day, Priority: models.PriorityLow},
		{ID: "edge", Title: "edge", ClientID: "c2", DueDate: ms + 7*models.Day, Priority: models.PriorityLow},
		{ID: "far", Title: "far", ClientID: "c2", DueDate: ms + 8*models.Day, Priority: models.PriorityLow},
		{ID: "done", Title: "done", ClientID: "c1", DueDate: ms - 2*models.Day, Completed: true, Priority: models.PriorityLow},
	} {
		require.NoError(t, tasks.Create(ctx, tk))
	}

	ids := func(items []models.Task, err error) []string {
		require.NoError(t, err)
		out := []string{}
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}
	assert.Equal(t, []string{"late"}, ids(tasks.Overdue(ctx, now)))
	assert.Equal(t, []string{"soon", "edge"}, ids(tasks.Upcoming(ctx, now, 0)))
	assert.Equal(t, []string{"done", "late", "soon"}, ids(tasks.ByClient(ctx, "c1")))

	in := NewInteractions(docs, user("u1"), nil)
	for i, d := range []int64{300, 100, 200} {
		require.NoError(t, in.Create(ctx, models.Interaction{
			ID: string(rune('a' + i)), ClientID: "c1", OpportunityID: "o1", Type: models.InteractionEmail, Date: d,
		}))
	}
	recent, err := in.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(300), recent[0].Date)
	assert.Equal(t, int64(200), recent[1].Date)

	byOpp, err := in.ByOpportunity(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, byOpp, 3)

	opps := NewOpportunities(docs, user("u1"), nil)
	require.NoError(t, opps.Create(ctx, models.Opportunity{ID: "o1", Title: "A", ClientID: "c1", Stage: models.StageLead}))
	require.NoError(t, opps.Create(ctx, models.Opportunity{ID: "o2", Title: "B", ClientID: "c2", Stage: models.StageLost}))
	mine, err := opps.ByClient(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "o2", mine[0].ID)
	lost, err := opps.ByStage(ctx, models.StageLost)
	require.NoError(t, err)
	require.Len(t, lost, 1)

	// unlinked records never match an empty id
	require.NoError(t, tasks.Create(ctx, models.Task{ID: "loose", Title: "loose", DueDate: ms, Priority: models.PriorityLow}))
	assert.Equal(t, []string{}, ids(tasks.ByClient(ctx, "")))
	assert.Equal(t, []string{}, ids(tasks.ByOpportunity(ctx, "")))
	none, err := opps.ByClient(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
	unlinked, err := in.ByOpportunity(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, unlinked)
}

func TestFeedDeliversOrderedSnapshots(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()
	tasks := NewTasks(docs, user("u1"), nil)

	snaps, stop, err := tasks.Feed(ctx)
	require.NoError(t, err)
	defer stop()

	first := <-snaps
	assert.Empty(t, first)

	require.NoError(t, tasks.Create(ctx, models.Task{ID: "b", Title: "b", DueDate: 20, Priority: models.PriorityLow}))
	require.NoError(t, tasks.Create(ctx, models.Task{ID: "a", Title: "a", DueDate: 10, Priority: models.PriorityLow}))

	require.Eventually(t, func() bool {
		select {
		case s := <-snaps:
			return len(s) == 2 && s[0].ID == "a" && s[1].ID == "b"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	stop()
	stop()
	for range snaps {
	}
	_, open := <-snaps
	assert.False(t, open)
}
