package remote

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/clientbook/docstore"
	"github.com/harperreed/clientbook/models"
)

type Clients struct {
	*Adapter[models.Client, models.ClientPatch]
}

func NewClients(svc docstore.Service, ident Identity, logger *log.Logger) *Clients {
	return &Clients{newAdapter(svc, ident, clientCodec, logger)}
}

// ByStatus queries clients with the status.
func (c *Clients) ByStatus(ctx context.Context, status models.ClientStatus) ([]models.Client, error) {
	return c.list(ctx, docstore.Where("status", docstore.Eq, status))
}

type Opportunities struct {
	*Adapter[models.Opportunity, models.OpportunityPatch]
}

func NewOpportunities(svc docstore.Service, ident Identity, logger *log.Logger) *Opportunities {
	return &Opportunities{newAdapter(svc, ident, opportunityCodec, logger)}
}

// ByClient queries the client's opportunities.
func (o *Opportunities) ByClient(ctx context.Context, clientID string) ([]models.Opportunity, error) {
	if clientID == "" {
		return []models.Opportunity{}, nil
	}
	return o.list(ctx, docstore.Where("clientId", docstore.Eq, clientID))
}

// ByStage queries the opportunities in one stage.
func (o *Opportunities) ByStage(ctx context.Context, stage models.Stage) ([]models.Opportunity, error) {
	return o.list(ctx, docstore.Where("stage", docstore.Eq, stage))
}

type Interactions struct {
	*Adapter[models.Interaction, models.InteractionPatch]
}

func NewInteractions(svc docstore.Service, ident Identity, logger *log.Logger) *Interactions {
	return &Interactions{newAdapter(svc, ident, interactionCodec, logger)}
}

// ByClient queries the client's interactions, newest first.
func (i *Interactions) ByClient(ctx context.Context, clientID string) ([]models.Interaction, error) {
	if clientID == "" {
		return []models.Interaction{}, nil
	}
	return i.list(ctx, docstore.Where("clientId", docstore.Eq, clientID))
}

// ByOpportunity queries the opportunity's interactions, newest first.
func (i *Interactions) ByOpportunity(ctx context.Context, opportunityID string) ([]models.Interaction, error) {
	if opportunityID == "" {
		return []models.Interaction{}, nil
	}
	return i.list(ctx, docstore.Where("opportunityId", docstore.Eq, opportunityID))
}

// Recent queries the n newest interactions.
func (i *Interactions) Recent(ctx context.Context, n int) ([]models.Interaction, error) {
	if n <= 0 {
		n = 10
	}
	ns, err := i.namespace()
	if err != nil {
		return nil, err
	}
	q := i.query(ns)
	q.Limit = n
	return i.run(ctx, q)
}

type Tasks struct {
	*Adapter[models.Task, models.TaskPatch]
}

func NewTasks(svc docstore.Service, ident Identity, logger *log.Logger) *Tasks {
	return &Tasks{newAdapter(svc, ident, taskCodec, logger)}
}

// ByClient queries the client's tasks, soonest due first.
func (t *Tasks) ByClient(ctx context.Context, clientID string) ([]models.Task, error) {
	if clientID == "" {
		return []models.Task{}, nil
	}
	return t.list(ctx, docstore.Where("clientId", docstore.Eq, clientID))
}

// ByOpportunity queries the opportunity's tasks, soonest due first.
func (t *Tasks) ByOpportunity(ctx context.Context, opportunityID string) ([]models.Task, error) {
	if opportunityID == "" {
		return []models.Task{}, nil
	}
	return t.list(ctx, docstore.Where("opportunityId", docstore.Eq, opportunityID))
}

// Upcoming queries incomplete tasks due in [now, now+days]; days <= 0 means 7.
func (t *Tasks) Upcoming(ctx context.Context, now time.Time, days int) ([]models.Task, error) {
	if days <= 0 {
		days = 7
	}
	from := models.Millis(now)
	to := from + int64(days)*models.Day
	return t.list(ctx,
		docstore.Where("completed", docstore.Eq, false),
		docstore.Where("dueDate", docstore.Gte, docstore.FromMillis(from)),
		docstore.Where("dueDate", docstore.Lte, docstore.FromMillis(to)),
	)
}

// Overdue queries incomplete tasks due before now.
func (t *Tasks) Overdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	return t.list(ctx,
		docstore.Where("completed", docstore.Eq, false),
		docstore.Where("dueDate", docstore.Lt, docstore.FromMillis(models.Millis(now))),
	)
}
