package store

import (
	"context"

	"github.com/harperreed/clientbook/models"
)

type OpportunityAdapter = Adapter[models.Opportunity, models.OpportunityPatch]

// OpportunityStore holds the sales pipeline.
type OpportunityStore struct {
	*Collection[models.Opportunity, models.OpportunityPatch]
}

func NewOpportunityStore(a OpportunityAdapter, opts Options) *OpportunityStore {
	return &OpportunityStore{newCollection("opportunities", a, behavior[models.Opportunity, models.OpportunityPatch]{
		id:       func(o models.Opportunity) string { return o.ID },
		apply:    func(o *models.Opportunity, p models.OpportunityPatch) { p.Apply(o) },
		validate: func(p models.OpportunityPatch) error { return p.Validate() },
		touch: func(prev models.Opportunity, next *models.Opportunity, now int64) {
			next.UpdatedAt = max(now, prev.UpdatedAt)
		},
	}, opts)}
}

// Add creates an opportunity. An empty stage defaults to lead.
func (s *OpportunityStore) Add(ctx context.Context, in models.OpportunityInput) (string, error) {
	if in.Stage == "" {
		in.Stage = models.StageLead
	}
	if err := in.Validate(); err != nil {
		return "", err
	}
	return s.insert(ctx, in.Build(s.opts.NewID(), s.now()))
}

// ByClient returns the client's opportunities. An empty id matches nothing.
func (s *OpportunityStore) ByClient(clientID string) []models.Opportunity {
	if clientID == "" {
		return []models.Opportunity{}
	}
	return s.filter(func(o models.Opportunity) bool { return o.ClientID == clientID })
}

// ByStage returns opportunities in stage; "" or "all" returns every one.
func (s *OpportunityStore) ByStage(stage models.Stage) []models.Opportunity {
	if stage == "" || stage == "all" {
		return s.All()
	}
	return s.filter(func(o models.Opportunity) bool { return o.Stage == stage })
}

// TotalValue sums value over every opportunity not lost.
func (s *OpportunityStore) TotalValue() int64 {
	var total int64
	for _, o := range s.All() {
		if o.Stage != models.StageLost {
			total += o.Value
		}
	}
	return total
}

// WeightedValue sums value times win probability over open opportunities.
// A missing probability falls back to the stage default.
func (s *OpportunityStore) WeightedValue() int64 {
	var total int64
	for _, o := range s.All() {
		if !o.IsOpen() {
			continue
		}
		p := models.DefaultProbability(o.Stage)
		if o.Probability != nil {
			p = *o.Probability
		}
		total += o.Value * int64(p) / 100
	}
	return total
}

// CountByStage counts opportunities per stage; every stage is present.
func (s *OpportunityStore) CountByStage() map[models.Stage]int {
	counts := make(map[models.Stage]int, len(models.Stages()))
	for _, st := range models.Stages() {
		counts[st] = 0
	}
	for _, o := range s.All() {
		counts[o.Stage]++
	}
	return counts
}
