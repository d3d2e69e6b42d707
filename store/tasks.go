package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/harperreed/clientbook/models"
)

type TaskAdapter = Adapter[models.Task, models.TaskPatch]

// TaskStore holds follow-up tasks.
type TaskStore struct {
	*Collection[models.Task, models.TaskPatch]
}

// UpcomingDefault is the window Upcoming uses for days <= 0.
const UpcomingDefault = 7

func NewTaskStore(a TaskAdapter, opts Options) *TaskStore {
	return &TaskStore{newCollection("tasks", a, behavior[models.Task, models.TaskPatch]{
		id:       func(t models.Task) string { return t.ID },
		apply:    func(t *models.Task, p models.TaskPatch) { p.Apply(t) },
		validate: func(p models.TaskPatch) error { return p.Validate() },
	}, opts)}
}

// Add creates a task. An empty priority defaults to medium.
func (s *TaskStore) Add(ctx context.Context, in models.TaskInput) (string, error) {
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if err := in.Validate(); err != nil {
		return "", err
	}
	return s.insert(ctx, in.Build(s.opts.NewID(), s.now()))
}

func soonestFirst(items []models.Task) []models.Task {
	sort.SliceStable(items, func(a, b int) bool { return items[a].DueDate < items[b].DueDate })
	return items
}

// ByClient returns the client's tasks, soonest due first. An empty id
// matches nothing.
func (s *TaskStore) ByClient(clientID string) []models.Task {
	if clientID == "" {
		return []models.Task{}
	}
	return soonestFirst(s.filter(func(t models.Task) bool { return t.ClientID == clientID }))
}

// ByOpportunity returns the opportunity's tasks, soonest due first.
func (s *TaskStore) ByOpportunity(opportunityID string) []models.Task {
	if opportunityID == "" {
		return []models.Task{}
	}
	return soonestFirst(s.filter(func(t models.Task) bool { return t.OpportunityID == opportunityID }))
}

// Upcoming returns incomplete tasks due between now and days from now,
// inclusive, soonest first. days <= 0 means UpcomingDefault.
func (s *TaskStore) Upcoming(days int) []models.Task {
	if days <= 0 {
		days = UpcomingDefault
	}
	now := s.now()
	window := int64(days) * models.Day
	return soonestFirst(s.filter(func(t models.Task) bool { return t.IsDueWithin(now, window) }))
}

// Overdue returns incomplete tasks past due, soonest first.
func (s *TaskStore) Overdue() []models.Task {
	now := s.now()
	return soonestFirst(s.filter(func(t models.Task) bool { return t.IsOverdue(now) }))
}

// ToggleCompletion flips the completed flag of the task with id.
func (s *TaskStore) ToggleCompletion(ctx context.Context, id string) error {
	t, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("toggle %s: %w", id, ErrNotFound)
	}
	return s.Update(ctx, id, models.TaskPatch{Completed: models.Bool(!t.Completed)})
}
