// ABOUTME: Creation inputs and typed partial updates for CRM entities
// ABOUTME: Patches list only the fields that may change after creation
package models

// ClientInput is a Client without its generated id and timestamps.
type ClientInput struct {
	FirstName string
	LastName  string
	Company   string
	Position  string
	Email     string
	Phone     string
	Address   string
	Status    ClientStatus
	Notes     string
	Avatar    string
}

// Build stamps the input into a new Client.
func (in ClientInput) Build(id string, now int64) Client {
	return Client{
		ID:        id,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Company:   in.Company,
		Position:  in.Position,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		Status:    in.Status,
		Notes:     in.Notes,
		Avatar:    in.Avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type ClientPatch struct {
	FirstName *string
	LastName  *string
	Company   *string
	Position  *string
	Email     *string
	Phone     *string
	Address   *string
	Status    *ClientStatus
	Notes     *string
	Avatar    *string
}

// Apply merges the set fields of p into c.
func (p ClientPatch) Apply(c *Client) {
	setString(&c.FirstName, p.FirstName)
	setString(&c.LastName, p.LastName)
	setString(&c.Company, p.Company)
	setString(&c.Position, p.Position)
	setString(&c.Email, p.Email)
	setString(&c.Phone, p.Phone)
	setString(&c.Address, p.Address)
	setString(&c.Notes, p.Notes)
	setString(&c.Avatar, p.Avatar)
	if p.Status != nil {
		c.Status = *p.Status
	}
}

// OpportunityInput is an Opportunity without its generated id and timestamps.
type OpportunityInput struct {
	Title             string
	ClientID          string
	Value             int64
	Stage             Stage
	Probability       *int
	ExpectedCloseDate *int64
	Notes             string
}

// Build stamps the input into a new Opportunity.
func (in OpportunityInput) Build(id string, now int64) Opportunity {
	return Opportunity{
		ID:                id,
		Title:             in.Title,
		ClientID:          in.ClientID,
		Value:             in.Value,
		Stage:             in.Stage,
		Probability:       copyInt(in.Probability),
		ExpectedCloseDate: copyInt64(in.ExpectedCloseDate),
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

type OpportunityPatch struct {
	Title             *string
	ClientID          *string
	Value             *int64
	Stage             *Stage
	Probability       *int
	ExpectedCloseDate *int64
	Notes             *string
}

// Apply merges the set fields of p into o.
func (p OpportunityPatch) Apply(o *Opportunity) {
	setString(&o.Title, p.Title)
	setString(&o.ClientID, p.ClientID)
	setString(&o.Notes, p.Notes)
	if p.Value != nil {
		o.Value = *p.Value
	}
	if p.Stage != nil {
		o.Stage = *p.Stage
	}
	if p.Probability != nil {
		o.Probability = copyInt(p.Probability)
	}
	if p.ExpectedCloseDate != nil {
		o.ExpectedCloseDate = copyInt64(p.ExpectedCloseDate)
	}
}

// InteractionInput is an Interaction without its generated id.
type InteractionInput struct {
	ClientID      string
	OpportunityID string
	Type          InteractionType
	Date          int64
	Duration      *int
	Notes         string
	Outcome       string
	FollowUpDate  *int64
}

// Build stamps the input into a new Interaction.
func (in InteractionInput) Build(id string) Interaction {
	return Interaction{
		ID:            id,
		ClientID:      in.ClientID,
		OpportunityID: in.OpportunityID,
		Type:          in.Type,
		Date:          in.Date,
		Duration:      copyInt(in.Duration),
		Notes:         in.Notes,
		Outcome:       in.Outcome,
		FollowUpDate:  copyInt64(in.FollowUpDate),
	}
}

type InteractionPatch struct {
	ClientID      *string
	OpportunityID *string
	Type          *InteractionType
	Date          *int64
	Duration      *int
	Notes         *string
	Outcome       *string
	FollowUpDate  *int64
}

// Apply merges the set fields of p into i.
func (p InteractionPatch) Apply(i *Interaction) {
	setString(&i.ClientID, p.ClientID)
	setString(&i.OpportunityID, p.OpportunityID)
	setString(&i.Notes, p.Notes)
	setString(&i.Outcome, p.Outcome)
	if p.Type != nil {
		i.Type = *p.Type
	}
	if p.Date != nil {
		i.Date = *p.Date
	}
	if p.Duration != nil {
		i.Duration = copyInt(p.Duration)
	}
	if p.FollowUpDate != nil {
		i.FollowUpDate = copyInt64(p.FollowUpDate)
	}
}

// TaskInput is a Task without its generated id and creation time.
type TaskInput struct {
	Title         string
	Description   string
	ClientID      string
	OpportunityID string
	DueDate       int64
	Completed     bool
	Priority      Priority
}

// Build stamps the input into a new Task.
func (in TaskInput) Build(id string, now int64) Task {
	return Task{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		ClientID:      in.ClientID,
		OpportunityID: in.OpportunityID,
		DueDate:       in.DueDate,
		Completed:     in.Completed,
		Priority:      in.Priority,
		CreatedAt:     now,
	}
}

type TaskPatch struct {
	Title         *string
	Description   *string
	ClientID      *string
	OpportunityID *string
	DueDate       *int64
	Completed     *bool
	Priority      *Priority
}

// Apply merges the set fields of p into t.
func (p TaskPatch) Apply(t *Task) {
	setString(&t.Title, p.Title)
	setString(&t.Description, p.Description)
	setString(&t.ClientID, p.ClientID)
	setString(&t.OpportunityID, p.OpportunityID)
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
