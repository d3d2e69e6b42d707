package remote

import (
	"encoding/json"
	"fmt"

	"github.com/harperreed/clientbook/docstore"
	"github.com/harperreed/clientbook/models"
)

// Stored document shapes. Date-like fields use the store's native
// Timestamp; everything else matches the model's JSON.

type clientDoc struct {
	ID        string              `json:"id"`
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	Company   string              `json:"company"`
	Position  string              `json:"position"`
	Email     string              `json:"email"`
	Phone     string              `json:"phone"`
	Address   string              `json:"address,omitempty"`
	Status    models.ClientStatus `json:"status"`
	Notes     string              `json:"notes,omitempty"`
	CreatedAt docstore.Timestamp  `json:"createdAt"`
	UpdatedAt docstore.Timestamp  `json:"updatedAt"`
	Avatar    string              `json:"avatar,omitempty"`
}

type opportunityDoc struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	ClientID          string              `json:"clientId"`
	Value             int64               `json:"value"`
	Stage             models.Stage        `json:"stage"`
	Probability       *int                `json:"probability,omitempty"`
	ExpectedCloseDate *docstore.Timestamp `json:"expectedCloseDate,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	CreatedAt         docstore.Timestamp  `json:"createdAt"`
	UpdatedAt         docstore.Timestamp  `json:"updatedAt"`
}

type interactionDoc struct {
	ID            string                 `json:"id"`
	ClientID      string                 `json:"clientId"`
	OpportunityID string                 `json:"opportunityId,omitempty"`
	Type          models.InteractionType `json:"type"`
	Date          docstore.Timestamp     `json:"date"`
	Duration      *int                   `json:"duration,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	Outcome       string                 `json:"outcome,omitempty"`
	FollowUpDate  *docstore.Timestamp    `json:"followUpDate,omitempty"`
}

type taskDoc struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	ClientID      string             `json:"clientId,omitempty"`
	OpportunityID string             `json:"opportunityId,omitempty"`
	DueDate       docstore.Timestamp `json:"dueDate"`
	Completed     bool               `json:"completed"`
	Priority      models.Priority    `json:"priority"`
	CreatedAt     docstore.Timestamp `json:"createdAt"`
}

func decodeDoc[D any, T any](raw json.RawMessage, conv func(D) T) (T, error) {
	var d D
	if err := json.Unmarshal(raw, &d); err != nil {
		var zero T
		return zero, fmt.Errorf("decode document: %w", err)
	}
	return conv(d), nil
}

// field names written when a patch sets a value; updatedAt rides along on
// every update of an entity that has it.
type fieldSet []string

func (f *fieldSet) add(set bool, name string) {
	if set {
		*f = append(*f, name)
	}
}

var clientCodec = codec[models.Client, models.ClientPatch]{
	collection: ClientsCollection,
	id:         func(c models.Client) string { return c.ID },
	encode: func(c models.Client) any {
		return clientDoc{
			ID: c.ID, FirstName: c.FirstName, LastName: c.LastName, Company: c.Company,
			Position: c.Position, Email: c.Email, Phone: c.Phone, Address: c.Address,
			Status: c.Status, Notes: c.Notes, Avatar: c.Avatar,
			CreatedAt: docstore.FromMillis(c.CreatedAt),
			UpdatedAt: docstore.FromMillis(c.UpdatedAt),
		}
	},
	decode: func(raw json.RawMessage) (models.Client, error) {
		return decodeDoc(raw, func(d clientDoc) models.Client {
			return models.Client{
				ID: d.ID, FirstName: d.FirstName, LastName: d.LastName, Company: d.Company,
				Position: d.Position, Email: d.Email, Phone: d.Phone, Address: d.Address,
				Status: d.Status, Notes: d.Notes, Avatar: d.Avatar,
				CreatedAt: d.CreatedAt.Millis(),
				UpdatedAt: d.UpdatedAt.Millis(),
			}
		})
	},
	fields: func(p models.ClientPatch) []string {
		var f fieldSet
		f.add(p.FirstName != nil, "firstName")
		f.add(p.LastName != nil, "lastName")
		f.add(p.Company != nil, "company")
		f.add(p.Position != nil, "position")
		f.add(p.Email != nil, "email")
		f.add(p.Phone != nil, "phone")
		f.add(p.Address != nil, "address")
		f.add(p.Status != nil, "status")
		f.add(p.Notes != nil, "notes")
		f.add(p.Avatar != nil, "avatar")
		f.add(true, "updatedAt")
		return f
	},
	orderBy: "createdAt",
}

var opportunityCodec = codec[models.Opportunity, models.OpportunityPatch]{
	collection: OpportunitiesCollection,
	id:         func(o models.Opportunity) string { return o.ID },
	encode: func(o models.Opportunity) any {
		return opportunityDoc{
			ID: o.ID, Title: o.Title, ClientID: o.ClientID, Value: o.Value, Stage: o.Stage,
			Probability: o.Probability, ExpectedCloseDate: docstore.FromMillisPtr(o.ExpectedCloseDate),
			Notes: o.Notes, CreatedAt: docstore.FromMillis(o.CreatedAt), UpdatedAt: docstore.FromMillis(o.UpdatedAt),
		}
	},
	decode: func(raw json.RawMessage) (models.Opportunity, error) {
		return decodeDoc(raw, func(d opportunityDoc) models.Opportunity {
			return models.Opportunity{
				ID: d.ID, Title: d.Title, ClientID: d.ClientID, Value: d.Value, Stage: d.Stage,
				Probability: d.Probability, ExpectedCloseDate: docstore.MillisPtr(d.ExpectedCloseDate),
				Notes: d.Notes, CreatedAt: d.CreatedAt.Millis(), UpdatedAt: d.UpdatedAt.Millis(),
			}
		})
	},
	fields: func(p models.OpportunityPatch) []string {
		var f fieldSet
		f.add(p.Title != nil, "title")
		f.add(p.ClientID != nil, "clientId")
		f.add(p.Value != nil, "value")
		f.add(p.Stage != nil, "stage")
		f.add(p.Probability != nil, "probability")
		f.add(p.ExpectedCloseDate != nil, "expectedCloseDate")
		f.add(p.Notes != nil, "notes")
		f.add(true, "updatedAt")
		return f
	},
	orderBy: "createdAt",
}

var interactionCodec = codec[models.Interaction, models.InteractionPatch]{
	collection: InteractionsCollection,
	id:         func(i models.Interaction) string { return i.ID },
	encode: func(i models.Interaction) any {
		return interactionDoc{
			ID: i.ID, ClientID: i.ClientID, OpportunityID: i.OpportunityID, Type: i.Type,
			Date: docstore.FromMillis(i.Date), Duration: i.Duration, Notes: i.Notes,
			Outcome: i.Outcome, FollowUpDate: docstore.FromMillisPtr(i.FollowUpDate),
		}
	},
	decode: func(raw json.RawMessage) (models.Interaction, error) {
		return decodeDoc(raw, func(d interactionDoc) models.Interaction {
			return models.Interaction{
				ID: d.ID, ClientID: d.ClientID, OpportunityID: d.OpportunityID, Type: d.Type,
				Date: d.Date.Millis(), Duration: d.Duration, Notes: d.Notes,
				Outcome: d.Outcome, FollowUpDate: docstore.MillisPtr(d.FollowUpDate),
			}
		})
	},
	fields: func(p models.InteractionPatch) []string {
		var f fieldSet
		f.add(p.ClientID != nil, "clientId")
		f.add(p.OpportunityID != nil, "opportunityId")
		f.add(p.Type != nil, "type")
		f.add(p.Date != nil, "date")
		f.add(p.Duration != nil, "duration")
		f.add(p.Notes != nil, "notes")
		f.add(p.Outcome != nil, "outcome")
		f.add(p.FollowUpDate != nil, "followUpDate")
		return f
	},
	orderBy: "date",
	desc:    true,
}

var taskCodec = codec[models.Task, models.TaskPatch]{
	collection: TasksCollection,
	id:         func(t models.Task) string { return t.ID },
	encode: func(t models.Task) any {
		return taskDoc{
			ID: t.ID, Title: t.Title, Description: t.Description, ClientID: t.ClientID,
			OpportunityID: t.OpportunityID, DueDate: docstore.FromMillis(t.DueDate),
			Completed: t.Completed, Priority: t.Priority, CreatedAt: docstore.FromMillis(t.CreatedAt),
		}
	},
	decode: func(raw json.RawMessage) (models.Task, error) {
		return decodeDoc(raw, func(d taskDoc) models.Task {
			return models.Task{
				ID: d.ID, Title: d.Title, Description: d.Description, ClientID: d.ClientID,
				OpportunityID: d.OpportunityID, DueDate: d.DueDate.Millis(),
				Completed: d.Completed, Priority: d.Priority, CreatedAt: d.CreatedAt.Millis(),
			}
		})
	},
	fields: func(p models.TaskPatch) []string {
		var f fieldSet
		f.add(p.Title != nil, "title")
		f.add(p.Description != nil, "description")
		f.add(p.ClientID != nil, "clientId")
		f.add(p.OpportunityID != nil, "opportunityId")
		f.add(p.DueDate != nil, "dueDate")
		f.add(p.Completed != nil, "completed")
		f.add(p.Priority != nil, "priority")
		return f
	},
	orderBy: "dueDate",
}
