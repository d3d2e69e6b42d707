// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Client, Opportunity, Interaction, and Task records with their enums
package models

import "strings"

// ClientStatus is the relationship status of a client.
type ClientStatus string

const (
	StatusLead     ClientStatus = "lead"
	StatusProspect ClientStatus = "prospect"
	StatusCustomer ClientStatus = "customer"
	StatusInactive ClientStatus = "inactive"
)

// Stage is the pipeline position of an opportunity.
type Stage string

const (
	StageLead        Stage = "lead"
	StageProspect    Stage = "prospect"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosed      Stage = "closed"
	StageLost        Stage = "lost"
)

// InteractionType is the kind of a logged contact event.
type InteractionType string

const (
	InteractionCall    InteractionType = "call"
	InteractionMessage InteractionType = "message"
	InteractionMeeting InteractionType = "meeting"
	InteractionEmail   InteractionType = "email"
	InteractionNote    InteractionType = "note"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// All timestamps are epoch milliseconds.

type Client struct {
	ID        string       `json:"id"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Company   string       `json:"company"`
	Position  string       `json:"position"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Address   string       `json:"address,omitempty"`
	Status    ClientStatus `json:"status"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt int64        `json:"createdAt"`
	UpdatedAt int64        `json:"updatedAt"`
	Avatar    string       `json:"avatar,omitempty"`
}

// FullName returns "First Last".
func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Initials returns the upper-cased first letters of the first and last name.
func (c Client) Initials() string {
	var b strings.Builder
	for _, part := range []string{c.FirstName, c.LastName} {
		for _, r := range part {
			b.WriteRune(r)
			break
		}
	}
	return strings.ToUpper(b.String())
}

type Opportunity struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	ClientID          string `json:"clientId"`
	Value             int64  `json:"value"`
	Stage             Stage  `json:"stage"`
	Probability       *int   `json:"probability,omitempty"`
	ExpectedCloseDate *int64 `json:"expectedCloseDate,omitempty"`
	Notes             string `json:"notes,omitempty"`
	CreatedAt         int64  `json:"createdAt"`
	UpdatedAt         int64  `json:"updatedAt"`
}

// IsOpen reports whether the opportunity is still in the active pipeline.
func (o Opportunity) IsOpen() bool {
	return o.Stage != StageClosed && o.Stage != StageLost
}

type Interaction struct {
	ID            string          `json:"id"`
	ClientID      string          `json:"clientId"`
	OpportunityID string          `json:"opportunityId,omitempty"`
	Type          InteractionType `json:"type"`
	Date          int64           `json:"date"`
	Duration      *int            `json:"duration,omitempty"` // minutes, calls and meetings
	Notes         string          `json:"notes,omitempty"`
	Outcome       string          `json:"outcome,omitempty"`
	FollowUpDate  *int64          `json:"followUpDate,omitempty"`
}

type Task struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	ClientID      string   `json:"clientId,omitempty"`
	OpportunityID string   `json:"opportunityId,omitempty"`
	DueDate       int64    `json:"dueDate"`
	Completed     bool     `json:"completed"`
	Priority      Priority `json:"priority"`
	CreatedAt     int64    `json:"createdAt"`
}

// IsOverdue reports whether the task is incomplete and past due at now.
func (t Task) IsOverdue(now int64) bool {
	return !t.Completed && t.DueDate < now
}

// IsDueWithin reports whether the task is incomplete and due in [now, now+window].
func (t Task) IsDueWithin(now, window int64) bool {
	return !t.Completed && t.DueDate >= now && t.DueDate <= now+window
}
