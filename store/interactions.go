package store

import (
	"context"
	"sort"

	"github.com/harperreed/clientbook/models"
)

type InteractionAdapter = Adapter[models.Interaction, models.InteractionPatch]

// InteractionStore holds logged calls, messages, meetings, emails, and notes.
type InteractionStore struct {
	*Collection[models.Interaction, models.InteractionPatch]
}

// RecentDefault is the count Recent uses for n <= 0.
const RecentDefault = 10

func NewInteractionStore(a InteractionAdapter, opts Options) *InteractionStore {
	return &InteractionStore{newCollection("interactions", a, behavior[models.Interaction, models.InteractionPatch]{
		id:       func(i models.Interaction) string { return i.ID },
		apply:    func(i *models.Interaction, p models.InteractionPatch) { p.Apply(i) },
		validate: func(p models.InteractionPatch) error { return p.Validate() },
	}, opts)}
}

// Add logs an interaction. A zero date means now.
func (s *InteractionStore) Add(ctx context.Context, in models.InteractionInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	if in.Date == 0 {
		in.Date = s.now()
	}
	return s.insert(ctx, in.Build(s.opts.NewID()))
}

func newestFirst(items []models.Interaction) []models.Interaction {
	sort.SliceStable(items, func(a, b int) bool { return items[a].Date > items[b].Date })
	return items
}

// ByClient returns the client's interactions, newest first.
func (s *InteractionStore) ByClient(clientID string) []models.Interaction {
	if clientID == "" {
		return []models.Interaction{}
	}
	return newestFirst(s.filter(func(i models.Interaction) bool { return i.ClientID == clientID }))
}

// ByOpportunity returns the opportunity's interactions, newest first.
func (s *InteractionStore) ByOpportunity(opportunityID string) []models.Interaction {
	if opportunityID == "" {
		return []models.Interaction{}
	}
	return newestFirst(s.filter(func(i models.Interaction) bool { return i.OpportunityID == opportunityID }))
}

// ByType returns interactions of one kind, newest first.
func (s *InteractionStore) ByType(t models.InteractionType) []models.Interaction {
	return newestFirst(s.filter(func(i models.Interaction) bool { return i.Type == t }))
}

// Recent returns the n most recent interactions; n <= 0 means RecentDefault.
func (s *InteractionStore) Recent(n int) []models.Interaction {
	if n <= 0 {
		n = RecentDefault
	}
	all := newestFirst(s.All())
	if len(all) > n {
		all = all[:n]
	}
	return all
}
