// ABOUTME: Interaction MCP tool handlers
// ABOUTME: Implements log_interaction and recent_interactions tools
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/models"
)

type InteractionHandlers struct {
	app *app.App
}

func NewInteractionHandlers(a *app.App) *InteractionHandlers {
	return &InteractionHandlers{app: a}
}

type LogInteractionInput struct {
	ClientID      string `json:"client_id" jsonschema:"Client ID (required)"`
	OpportunityID string `json:"opportunity_id,omitempty" jsonschema:"Related opportunity ID"`
	Type          string `json:"type" jsonschema:"call, message, meeting, email, or note (required)"`
	Date          string `json:"date,omitempty" jsonschema:"When it happened (RFC3339, default now)"`
	Duration      *int   `json:"duration,omitempty" jsonschema:"Length in minutes, for calls and meetings"`
	Notes         string `json:"notes,omitempty" jsonschema:"Notes"`
	Outcome       string `json:"outcome,omitempty" jsonschema:"Outcome"`
	FollowUpDate  string `json:"follow_up_date,omitempty" jsonschema:"Follow-up date (RFC3339 or YYYY-MM-DD)"`
}

type InteractionOutput struct {
	ID            string  `json:"id"`
	ClientID      string  `json:"client_id"`
	ClientName    string  `json:"client_name,omitempty"`
	OpportunityID string  `json:"opportunity_id,omitempty"`
	Type          string  `json:"type"`
	Date          string  `json:"date"`
	Duration      *int    `json:"duration,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	Outcome       string  `json:"outcome,omitempty"`
	FollowUpDate  *string `json:"follow_up_date,omitempty"`
}

func (h *InteractionHandlers) LogInteraction(ctx context.Context, _ *mcp.CallToolRequest, input LogInteractionInput) (*mcp.CallToolResult, InteractionOutput, error) {
	if input.ClientID == "" {
		return nil, InteractionOutput{}, fmt.Errorf("client_id is required")
	}
	if _, ok := h.app.Clients.Get(input.ClientID); !ok {
		return nil, InteractionOutput{}, fmt.Errorf("client not found: %s", input.ClientID)
	}
	t, err := models.ParseInteractionType(input.Type)
	if err != nil {
		return nil, InteractionOutput{}, err
	}

	in := models.InteractionInput{
		ClientID:      input.ClientID,
		OpportunityID: input.OpportunityID,
		Type:          t,
		Duration:      input.Duration,
		Notes:         input.Notes,
		Outcome:       input.Outcome,
	}
	if input.Date != "" {
		if in.Date, err = parseTime(input.Date); err != nil {
			return nil, InteractionOutput{}, err
		}
	}
	if input.FollowUpDate != "" {
		ms, err := parseTime(input.FollowUpDate)
		if err != nil {
			return nil, InteractionOutput{}, err
		}
		in.FollowUpDate = &ms
	}

	id, err := h.app.Interactions.Add(ctx, in)
	if err != nil {
		return nil, InteractionOutput{}, fmt.Errorf("failed to log interaction: %w", err)
	}

	it, _ := h.app.Interactions.Get(id)
	return nil, h.toOutput(it), nil
}

type RecentInteractionsInput struct {
	ClientID      string `json:"client_id,omitempty" jsonschema:"Only this client's interactions"`
	OpportunityID string `json:"opportunity_id,omitempty" jsonschema:"Only this opportunity's interactions"`
	Type          string `json:"type,omitempty" jsonschema:"Only this type"`
	Limit         int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type RecentInteractionsOutput struct {
	Interactions []InteractionOutput `json:"interactions"`
}

// RecentInteractions lists interactions newest first.
func (h *InteractionHandlers) RecentInteractions(_ context.Context, _ *mcp.CallToolRequest, input RecentInteractionsInput) (*mcp.CallToolResult, RecentInteractionsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	var items []models.Interaction
	switch {
	case input.ClientID != "":
		items = h.app.Interactions.ByClient(input.ClientID)
	case input.OpportunityID != "":
		items = h.app.Interactions.ByOpportunity(input.OpportunityID)
	default:
		items = h.app.Interactions.Recent(h.app.Interactions.Len())
	}

	var kind models.InteractionType
	if input.Type != "" {
		t, err := models.ParseInteractionType(input.Type)
		if err != nil {
			return nil, RecentInteractionsOutput{}, err
		}
		kind = t
	}

	result := []InteractionOutput{}
	for _, it := range items {
		if kind != "" && it.Type != kind {
			continue
		}
		result = append(result, h.toOutput(it))
		if len(result) == limit {
			break
		}
	}
	return nil, RecentInteractionsOutput{Interactions: result}, nil
}

func (h *InteractionHandlers) toOutput(it models.Interaction) InteractionOutput {
	out := InteractionOutput{
		ID:            it.ID,
		ClientID:      it.ClientID,
		OpportunityID: it.OpportunityID,
		Type:          string(it.Type),
		Date:          isoTime(it.Date),
		Duration:      it.Duration,
		Notes:         it.Notes,
		Outcome:       it.Outcome,
		FollowUpDate:  optionalISO(it.FollowUpDate),
	}
	if c, ok := h.app.Clients.Get(it.ClientID); ok {
		out.ClientName = c.FullName()
	}
	return out
}
