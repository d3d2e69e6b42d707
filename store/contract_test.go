package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/clientbook/charm"
	"github.com/harperreed/clientbook/db"
	"github.com/harperreed/clientbook/docstore"
	"github.com/harperreed/clientbook/local"
	"github.com/harperreed/clientbook/models"
	"github.com/harperreed/clientbook/remote"
	"github.com/harperreed/clientbook/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type user string

func (u user) UserID() (string, bool) { return string(u), u != "" }

type adapters struct {
	clients       store.ClientAdapter
	opportunities store.OpportunityAdapter
	interactions  store.InteractionAdapter
	tasks         store.TaskAdapter
}

type stores struct {
	clock         *clock
	clients       *store.ClientStore
	opportunities *store.OpportunityStore
	interactions  *store.InteractionStore
	tasks         *store.TaskStore
}

func newStores(a adapters) *stores {
	clk := &clock{now: time.UnixMilli(1718000000000)}
	seq := 0
	var mu sync.Mutex
	opts := store.Options{
		Now: clk.Now,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	}
	return &stores{
		clock:         clk,
		clients:       store.NewClientStore(a.clients, opts),
		opportunities: store.NewOpportunityStore(a.opportunities, opts),
		interactions:  store.NewInteractionStore(a.interactions, opts),
		tasks:         store.NewTaskStore(a.tasks, opts),
	}
}

func localAdapters(t *testing.T) adapters {
	kv := charm.NewTestClient(t)
	return adapters{
		clients:       local.Clients(kv),
		opportunities: local.Opportunities(kv),
		interactions:  local.Interactions(kv),
		tasks:         local.Tasks(kv),
	}
}

func openDocs(t *testing.T) *db.DocumentStore {
	t.Helper()
	docs, err := db.Open(filepath.Join(t.TempDir(), "docs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })
	return docs
}

func remoteAdapters(svc docstore.Service, ident remote.Identity) adapters {
	return adapters{
		clients:       remote.NewClients(svc, ident, nil),
		opportunities: remote.NewOpportunities(svc, ident, nil),
		interactions:  remote.NewInteractions(svc, ident, nil),
		tasks:         remote.NewTasks(svc, ident, nil),
	}
}

var backends = []struct {
	name string
	open func(t *testing.T) adapters
}{
	{"local", localAdapters},
	{"remote", func(t *testing.T) adapters { return remoteAdapters(openDocs(t), user("u1")) }},
}

// eachBackend runs fn against fresh stores for every persistence mode.
func eachBackend(t *testing.T, fn func(t *testing.T, s *stores, a adapters)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			a := b.open(t)
			fn(t, newStores(a), a)
		})
	}
}

func annLee() models.ClientInput {
	return models.ClientInput{
		FirstName: "Ann", LastName: "Lee", Company: "Acme",
		Email: "a@acme.com", Phone: "555-0100", Status: models.StatusLead,
	}
}

func TestAddThenGet(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		before := s.clients.Len()

		id, err := s.clients.Add(ctx, annLee())
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, before+1, s.clients.Len())

		c, ok := s.clients.Get(id)
		require.True(t, ok)
		assert.Equal(t, id, c.ID)
		assert.Equal(t, "Ann", c.FirstName)
		assert.Equal(t, "Lee", c.LastName)
		assert.Equal(t, "Acme", c.Company)
		assert.Equal(t, "a@acme.com", c.Email)
		assert.Equal(t, "555-0100", c.Phone)
		assert.Equal(t, models.StatusLead, c.Status)
		assert.LessOrEqual(t, c.CreatedAt, models.Millis(s.clock.Now()))
		assert.Equal(t, c.CreatedAt, c.UpdatedAt)
		assert.Empty(t, s.clients.Status().Err)
		assert.False(t, s.clients.Status().Loading)
	})
}

func TestAddAppliesDefaults(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()

		cid, err := s.clients.Add(ctx, models.ClientInput{FirstName: "Bob"})
		require.NoError(t, err)
		c, _ := s.clients.Get(cid)
		assert.Equal(t, models.StatusLead, c.Status)

		oid, err := s.opportunities.Add(ctx, models.OpportunityInput{Title: "Deal", ClientID: cid, Value: 100})
		require.NoError(t, err)
		o, _ := s.opportunities.Get(oid)
		assert.Equal(t, models.StageLead, o.Stage)

		iid, err := s.interactions.Add(ctx, models.InteractionInput{ClientID: cid, Type: models.InteractionNote})
		require.NoError(t, err)
		i, _ := s.interactions.Get(iid)
		assert.Equal(t, models.Millis(s.clock.Now()), i.Date)

		tid, err := s.tasks.Add(ctx, models.TaskInput{Title: "Call back"})
		require.NoError(t, err)
		tk, _ := s.tasks.Get(tid)
		assert.Equal(t, models.PriorityMedium, tk.Priority)
		assert.False(t, tk.Completed)
	})
}

func TestAddRejectsInvalidInput(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		_, err := s.opportunities.Add(ctx, models.OpportunityInput{Title: "Deal", ClientID: "c1", Value: -1})
		assert.ErrorIs(t, err, models.ErrInvalid)
		_, err = s.opportunities.Add(ctx, models.OpportunityInput{Title: "Deal", ClientID: "c1", Stage: "won"})
		assert.ErrorIs(t, err, models.ErrInvalid)
		assert.Zero(t, s.opportunities.Len())
	})
}

func TestOutOfRangeDateNeverReachesStorage(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, a adapters) {
		ctx := context.Background()
		farFuture := models.MaxDate + 1

		_, err := s.tasks.Add(ctx, models.TaskInput{Title: "Renew", Priority: models.PriorityLow, DueDate: farFuture})
		assert.ErrorIs(t, err, models.ErrInvalid)

		id, err := s.tasks.Add(ctx, models.TaskInput{Title: "Call back", Priority: models.PriorityLow, DueDate: 1718000000000})
		require.NoError(t, err)
		assert.ErrorIs(t, s.tasks.Update(ctx, id, models.TaskPatch{DueDate: &farFuture}), models.ErrInvalid)

		// the collection still loads
		reloaded := newStores(a)
		require.NoError(t, reloaded.tasks.Fetch(ctx))
		assert.Equal(t, 1, reloaded.tasks.Len())
	})
}

func TestEmptyIDMatchesNothing(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		_, err := s.tasks.Add(ctx, models.TaskInput{Title: "Unlinked", Priority: models.PriorityLow})
		require.NoError(t, err)
		_, err = s.interactions.Add(ctx, models.InteractionInput{ClientID: "c1", Type: models.InteractionNote})
		require.NoError(t, err)

		assert.Empty(t, s.tasks.ByClient(""))
		assert.NotNil(t, s.tasks.ByClient(""))
		assert.Empty(t, s.tasks.ByOpportunity(""))
		assert.Empty(t, s.interactions.ByOpportunity(""))
		assert.Empty(t, s.opportunities.ByClient(""))
		assert.Len(t, s.interactions.ByClient("c1"), 1)
	})
}

func TestUpdateReflectsFieldAndKeepsUpdatedAtMonotonic(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		id, err := s.clients.Add(ctx, annLee())
		require.NoError(t, err)
		prev, _ := s.clients.Get(id)

		s.clock.Advance(time.Minute)
		require.NoError(t, s.clients.Update(ctx, id, models.ClientPatch{Company: models.String("Acme Corp")}))
		got, _ := s.clients.Get(id)
		assert.Equal(t, "Acme Corp", got.Company)
		assert.Equal(t, prev.CreatedAt, got.CreatedAt)
		assert.GreaterOrEqual(t, got.UpdatedAt, prev.UpdatedAt)
		assert.Equal(t, prev.UpdatedAt+time.Minute.Milliseconds(), got.UpdatedAt)

		// clock moved backwards
		s.clock.Advance(-time.Hour)
		require.NoError(t, s.clients.Update(ctx, id, models.ClientPatch{Position: models.String("CTO")}))
		again, _ := s.clients.Get(id)
		assert.Equal(t, got.UpdatedAt, again.UpdatedAt)
	})
}

func TestUpdateIsIdempotent(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		id, err := s.opportunities.Add(ctx, models.OpportunityInput{Title: "Deal", ClientID: "c1", Value: 1000})
		require.NoError(t, err)

		stage := models.StageProposal
		patch := models.OpportunityPatch{Stage: &stage, Value: models.Int64(1500), Probability: models.Int(60)}

		require.NoError(t, s.opportunities.Update(ctx, id, patch))
		once, _ := s.opportunities.Get(id)
		s.clock.Advance(time.Second)
		require.NoError(t, s.opportunities.Update(ctx, id, patch))
		twice, _ := s.opportunities.Get(id)

		once.UpdatedAt, twice.UpdatedAt = 0, 0
		assert.Equal(t, once, twice)
	})
}

func TestUpdatePersists(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, a adapters) {
		ctx := context.Background()
		id, err := s.tasks.Add(ctx, models.TaskInput{Title: "Send quote", DueDate: 42})
		require.NoError(t, err)
		require.NoError(t, s.tasks.Update(ctx, id, models.TaskPatch{Title: models.String("Send revised quote")}))

		fresh := newStores(a)
		require.NoError(t, fresh.tasks.Fetch(ctx))
		got, ok := fresh.tasks.Get(id)
		require.True(t, ok)
		assert.Equal(t, "Send revised quote", got.Title)
		assert.Equal(t, int64(42), got.DueDate)
	})
}

func TestDeleteRemovesFromEveryQuery(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, a adapters) {
		ctx := context.Background()
		id, err := s.clients.Add(ctx, annLee())
		require.NoError(t, err)
		keep, err := s.clients.Add(ctx, models.ClientInput{FirstName: "Bob", LastName: "Chen", Company: "Beta"})
		require.NoError(t, err)

		require.NoError(t, s.clients.Delete(ctx, id))
		_, ok := s.clients.Get(id)
		assert.False(t, ok)
		for _, list := range [][]models.Client{s.clients.All(), s.clients.Search(""), s.clients.Search("ann"), s.clients.FilterByStatus(models.StatusLead)} {
			for _, c := range list {
				assert.NotEqual(t, id, c.ID)
			}
		}

		fresh := newStores(a)
		require.NoError(t, fresh.clients.Fetch(ctx))
		require.Equal(t, 1, fresh.clients.Len())
		assert.Equal(t, keep, fresh.clients.All()[0].ID)
	})
}

func TestMissingIDIsNotFound(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		assert.ErrorIs(t, s.clients.Update(ctx, "nope", models.ClientPatch{Notes: models.String("x")}), store.ErrNotFound)
		assert.ErrorIs(t, s.opportunities.Delete(ctx, "nope"), store.ErrNotFound)
		assert.ErrorIs(t, s.tasks.ToggleCompletion(ctx, "nope"), store.ErrNotFound)
		assert.Empty(t, s.clients.Status().Err)
	})
}

func TestOverdueAndUpcomingAreExactAndDisjoint(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		now := models.Millis(s.clock.Now())

		for _, in := range []models.TaskInput{
			{Title: "past", DueDate: now - models.Day},
			{Title: "just past", DueDate: now - 1},
			{Title: "now", DueDate: now},
			{Title: "edge", DueDate: now + 7*models.Day},
			{Title: "beyond", DueDate: now + 7*models.Day + 1},
			{Title: "done past", DueDate: now - models.Day, Completed: true},
			{Title: "done soon", DueDate: now + models.Day, Completed: true},
		} {
			_, err := s.tasks.Add(ctx, in)
			require.NoError(t, err)
		}

		titles := func(ts []models.Task) []string {
			out := []string{}
			for _, tk := range ts {
				out = append(out, tk.Title)
			}
			return out
		}

		overdue := s.tasks.Overdue()
		upcoming := s.tasks.Upcoming(7)
		assert.Equal(t, []string{"past", "just past"}, titles(overdue))
		assert.Equal(t, []string{"now", "edge"}, titles(upcoming))
		assert.Equal(t, titles(upcoming), titles(s.tasks.Upcoming(0)))

		seen := map[string]bool{}
		for _, tk := range overdue {
			seen[tk.ID] = true
		}
		for _, tk := range upcoming {
			assert.False(t, seen[tk.ID], "task %s is both overdue and upcoming", tk.Title)
		}

		for _, tk := range s.tasks.All() {
			assert.Equal(t, !tk.Completed && tk.DueDate < now, containsTask(overdue, tk.ID), tk.Title)
			assert.Equal(t, !tk.Completed && tk.DueDate >= now && tk.DueDate <= now+7*models.Day, containsTask(upcoming, tk.ID), tk.Title)
		}
	})
}

func containsTask(ts []models.Task, id string) bool {
	for _, tk := range ts {
		if tk.ID == id {
			return true
		}
	}
	return false
}

func TestTotalValueExcludesLost(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()

		_, err := s.opportunities.Add(ctx, models.OpportunityInput{Title: "A", ClientID: "c1", Value: 1000, Stage: models.StageLead})
		require.NoError(t, err)
		_, err = s.opportunities.Add(ctx, models.OpportunityInput{Title: "B", ClientID: "c1", Value: 2000, Stage: models.StageLost})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), s.opportunities.TotalValue())

		_, err = s.opportunities.Add(ctx, models.OpportunityInput{Title: "C", ClientID: "c2", Value: 700, Stage: models.StageLost})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), s.opportunities.TotalValue())

		won, err := s.opportunities.Add(ctx, models.OpportunityInput{Title: "D", ClientID: "c2", Value: 300, Stage: models.StageNegotiation})
		require.NoError(t, err)
		assert.Equal(t, int64(1300), s.opportunities.TotalValue())

		lost := models.StageLost
		require.NoError(t, s.opportunities.Update(ctx, won, models.OpportunityPatch{Stage: &lost}))
		assert.Equal(t, int64(1000), s.opportunities.TotalValue())

		counts := s.opportunities.CountByStage()
		assert.Len(t, counts, len(models.Stages()))
		assert.Equal(t, 1, counts[models.StageLead])
		assert.Equal(t, 3, counts[models.StageLost])
		assert.Equal(t, 0, counts[models.StageProposal])

		assert.Len(t, s.opportunities.ByStage(models.StageLost), 3)
		assert.Len(t, s.opportunities.ByStage("all"), 4)
		assert.Len(t, s.opportunities.ByClient("c2"), 2)
	})
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		ann, err := s.clients.Add(ctx, annLee())
		require.NoError(t, err)
		_, err = s.clients.Add(ctx, models.ClientInput{FirstName: "Bob", LastName: "Chen", Company: "Beta", Status: models.StatusCustomer})
		require.NoError(t, err)

		found := s.clients.Search("acme")
		require.Len(t, found, 1)
		assert.Equal(t, ann, found[0].ID)

		assert.Len(t, s.clients.Search("ANN LEE"), 1)
		assert.Len(t, s.clients.Search("555-0100"), 1)
		assert.Len(t, s.clients.Search("  "), 2)
		assert.Empty(t, s.clients.Search("gamma"))
		assert.Len(t, s.clients.FilterByStatus(models.StatusCustomer), 1)
		assert.Len(t, s.clients.FilterByStatus("all"), 2)
	})
}

func TestToggleTwiceRestoresCompletion(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		id, err := s.tasks.Add(ctx, models.TaskInput{Title: "Call back", Completed: false})
		require.NoError(t, err)

		require.NoError(t, s.tasks.ToggleCompletion(ctx, id))
		tk, _ := s.tasks.Get(id)
		assert.True(t, tk.Completed)

		require.NoError(t, s.tasks.ToggleCompletion(ctx, id))
		tk, _ = s.tasks.Get(id)
		assert.False(t, tk.Completed)
	})
}

func TestInteractionOrdering(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		for i, d := range []int64{200, 500, 100, 400, 300} {
			typ := models.InteractionEmail
			if i%2 == 0 {
				typ = models.InteractionCall
			}
			_, err := s.interactions.Add(ctx, models.InteractionInput{ClientID: "c1", OpportunityID: "o1", Type: typ, Date: d})
			require.NoError(t, err)
		}

		recent := s.interactions.Recent(3)
		require.Len(t, recent, 3)
		assert.Equal(t, []int64{500, 400, 300}, []int64{recent[0].Date, recent[1].Date, recent[2].Date})
		assert.Len(t, s.interactions.Recent(0), 5)

		calls := s.interactions.ByType(models.InteractionCall)
		require.Len(t, calls, 3)
		assert.Equal(t, int64(300), calls[0].Date)
		assert.Len(t, s.interactions.ByClient("c1"), 5)
		assert.Empty(t, s.interactions.ByOpportunity("o2"))
	})
}

func TestWatchSeesEveryChange(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *stores, _ adapters) {
		ctx := context.Background()
		var sizes []int
		cancel := s.tasks.Watch(func(ts []models.Task) { sizes = append(sizes, len(ts)) })

		id, err := s.tasks.Add(ctx, models.TaskInput{Title: "a"})
		require.NoError(t, err)
		_, err = s.tasks.Add(ctx, models.TaskInput{Title: "b"})
		require.NoError(t, err)
		require.NoError(t, s.tasks.ToggleCompletion(ctx, id))
		require.NoError(t, s.tasks.Delete(ctx, id))
		cancel()
		_, err = s.tasks.Add(ctx, models.TaskInput{Title: "c"})
		require.NoError(t, err)

		assert.Equal(t, []int{1, 2, 2, 1}, sizes)
	})
}

func TestRemoteSubscribeReplacesFromOtherWriters(t *testing.T) {
	docs := openDocs(t)
	ctx := context.Background()

	watcher := newStores(remoteAdapters(docs, user("u1")))
	writer := newStores(remoteAdapters(docs, user("u1")))

	unsubscribe := watcher.clients.Subscribe(ctx)
	defer unsubscribe()

	id, err := writer.clients.Add(ctx, annLee())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := watcher.clients.Get(id)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, writer.clients.Delete(ctx, id))
	require.Eventually(t, func() bool { return watcher.clients.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	unsubscribe()
	unsubscribe()
	_, err = writer.clients.Add(ctx, annLee())
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, watcher.clients.Len())
}

func TestSubscribeWithoutUserIsNoop(t *testing.T) {
	docs := openDocs(t)
	s := newStores(remoteAdapters(docs, user("")))

	unsubscribe := s.tasks.Subscribe(context.Background())
	require.NotNil(t, unsubscribe)
	unsubscribe()
	assert.Empty(t, s.tasks.Status().Err)
	assert.Zero(t, docs.Hub().Subscribers())

	_, err := s.tasks.Add(context.Background(), models.TaskInput{Title: "x"})
	assert.ErrorIs(t, err, remote.ErrUnauthenticated)
	assert.Contains(t, s.tasks.Status().Err, "user not authenticated")
	assert.Zero(t, s.tasks.Len())
}

func TestLocalSubscribeIsNoop(t *testing.T) {
	s := newStores(localAdapters(t))
	unsubscribe := s.clients.Subscribe(context.Background())
	unsubscribe()
	assert.Empty(t, s.clients.Status().Err)
}
