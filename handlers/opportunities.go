// ABOUTME: Opportunity MCP tool handlers
// ABOUTME: Implements create_opportunity, update_opportunity, find_opportunities, and pipeline_summary
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/models"
)

type OpportunityHandlers struct {
	app *app.App
}

func NewOpportunityHandlers(a *app.App) *OpportunityHandlers {
	return &OpportunityHandlers{app: a}
}

type CreateOpportunityInput struct {
	Title             string `json:"title" jsonschema:"Opportunity title (required)"`
	ClientID          string `json:"client_id" jsonschema:"Client ID (required)"`
	Value             int64  `json:"value,omitempty" jsonschema:"Deal value in whole dollars"`
	Stage             string `json:"stage,omitempty" jsonschema:"lead, prospect, qualified, proposal, negotiation, closed, or lost (default lead)"`
	Probability       *int   `json:"probability,omitempty" jsonschema:"Win probability 0-100"`
	ExpectedCloseDate string `json:"expected_close_date,omitempty" jsonschema:"Expected close date (RFC3339 or YYYY-MM-DD)"`
	Notes             string `json:"notes,omitempty" jsonschema:"Notes"`
}

type OpportunityOutput struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	ClientID          string  `json:"client_id"`
	ClientName        string  `json:"client_name,omitempty"`
	Value             int64   `json:"value"`
	Stage             string  `json:"stage"`
	Probability       *int    `json:"probability,omitempty"`
	ExpectedCloseDate *string `json:"expected_close_date,omitempty"`
	Notes             string  `json:"notes,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func (h *OpportunityHandlers) CreateOpportunity(ctx context.Context, _ *mcp.CallToolRequest, input CreateOpportunityInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	if input.Title == "" {
		return nil, OpportunityOutput{}, fmt.Errorf("title is required")
	}
	if input.ClientID == "" {
		return nil, OpportunityOutput{}, fmt.Errorf("client_id is required")
	}
	if _, ok := h.app.Clients.Get(input.ClientID); !ok {
		return nil, OpportunityOutput{}, fmt.Errorf("client not found: %s", input.ClientID)
	}

	in := models.OpportunityInput{
		Title:       input.Title,
		ClientID:    input.ClientID,
		Value:       input.Value,
		Probability: input.Probability,
		Notes:       input.Notes,
	}
	if input.Stage != "" {
		st, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, OpportunityOutput{}, err
		}
		in.Stage = st
	}
	if input.ExpectedCloseDate != "" {
		ms, err := parseTime(input.ExpectedCloseDate)
		if err != nil {
			return nil, OpportunityOutput{}, err
		}
		in.ExpectedCloseDate = &ms
	}

	id, err := h.app.Opportunities.Add(ctx, in)
	if err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("failed to create opportunity: %w", err)
	}

	o, _ := h.app.Opportunities.Get(id)
	return nil, h.toOutput(o), nil
}

type UpdateOpportunityInput struct {
	ID                string  `json:"id" jsonschema:"Opportunity ID (required)"`
	Title             *string `json:"title,omitempty" jsonschema:"New title"`
	Value             *int64  `json:"value,omitempty" jsonschema:"New value in whole dollars"`
	Stage             *string `json:"stage,omitempty" jsonschema:"New stage"`
	Probability       *int    `json:"probability,omitempty" jsonschema:"New win probability 0-100"`
	ExpectedCloseDate *string `json:"expected_close_date,omitempty" jsonschema:"New expected close date"`
	Notes             *string `json:"notes,omitempty" jsonschema:"New notes"`
}

func (h *OpportunityHandlers) UpdateOpportunity(ctx context.Context, _ *mcp.CallToolRequest, input UpdateOpportunityInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	if input.ID == "" {
		return nil, OpportunityOutput{}, fmt.Errorf("id is required")
	}

	patch := models.OpportunityPatch{
		Title:       input.Title,
		Value:       input.Value,
		Probability: input.Probability,
		Notes:       input.Notes,
	}
	if input.Stage != nil {
		st, err := models.ParseStage(*input.Stage)
		if err != nil {
			return nil, OpportunityOutput{}, err
		}
		patch.Stage = &st
	}
	if input.ExpectedCloseDate != nil {
		ms, err := parseTime(*input.ExpectedCloseDate)
		if err != nil {
			return nil, OpportunityOutput{}, err
		}
		patch.ExpectedCloseDate = &ms
	}

	if err := h.app.Opportunities.Update(ctx, input.ID, patch); err != nil {
		return nil, OpportunityOutput{}, fmt.Errorf("failed to update opportunity: %w", err)
	}

	o, _ := h.app.Opportunities.Get(input.ID)
	return nil, h.toOutput(o), nil
}

type FindOpportunitiesInput struct {
	ClientID string `json:"client_id,omitempty" jsonschema:"Filter by client ID"`
	Stage    string `json:"stage,omitempty" jsonschema:"Filter by stage"`
	OpenOnly bool   `json:"open_only,omitempty" jsonschema:"Exclude closed and lost opportunities"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindOpportunitiesOutput struct {
	Opportunities []OpportunityOutput `json:"opportunities"`
}

func (h *OpportunityHandlers) FindOpportunities(_ context.Context, _ *mcp.CallToolRequest, input FindOpportunitiesInput) (*mcp.CallToolResult, FindOpportunitiesOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	var stage models.Stage
	if input.Stage != "" {
		st, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, FindOpportunitiesOutput{}, err
		}
		stage = st
	}

	source := h.app.Opportunities.ByStage(stage)
	result := []OpportunityOutput{}
	for _, o := range source {
		if input.ClientID != "" && o.ClientID != input.ClientID {
			continue
		}
		if input.OpenOnly && !o.IsOpen() {
			continue
		}
		result = append(result, h.toOutput(o))
		if len(result) == limit {
			break
		}
	}

	return nil, FindOpportunitiesOutput{Opportunities: result}, nil
}

type PipelineSummaryInput struct{}

type StageSummary struct {
	Stage string `json:"stage"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Value int64  `json:"value"`
}

type PipelineSummaryOutput struct {
	Stages        []StageSummary `json:"stages"`
	TotalValue    int64          `json:"total_value"`
	WeightedValue int64          `json:"weighted_value"`
}

// PipelineSummary reports counts and value per stage. Total value excludes
// lost opportunities.
func (h *OpportunityHandlers) PipelineSummary(_ context.Context, _ *mcp.CallToolRequest, _ PipelineSummaryInput) (*mcp.CallToolResult, PipelineSummaryOutput, error) {
	counts := h.app.Opportunities.CountByStage()
	summary := PipelineSummaryOutput{
		TotalValue:    h.app.Opportunities.TotalValue(),
		WeightedValue: h.app.Opportunities.WeightedValue(),
	}
	for _, st := range models.Stages() {
		var value int64
		for _, o := range h.app.Opportunities.ByStage(st) {
			value += o.Value
		}
		summary.Stages = append(summary.Stages, StageSummary{
			Stage: string(st),
			Label: st.Label(),
			Count: counts[st],
			Value: value,
		})
	}
	return nil, summary, nil
}

func (h *OpportunityHandlers) toOutput(o models.Opportunity) OpportunityOutput {
	out := OpportunityOutput{
		ID:                o.ID,
		Title:             o.Title,
		ClientID:          o.ClientID,
		Value:             o.Value,
		Stage:             string(o.Stage),
		Probability:       o.Probability,
		ExpectedCloseDate: optionalISO(o.ExpectedCloseDate),
		Notes:             o.Notes,
		CreatedAt:         isoTime(o.CreatedAt),
		UpdatedAt:         isoTime(o.UpdatedAt),
	}
	if c, ok := h.app.Clients.Get(o.ClientID); ok {
		out.ClientName = c.FullName()
	}
	return out
}
