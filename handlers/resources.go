// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to clients, opportunities, tasks, and the pipeline via crm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/models"
)

type ResourceHandlers struct {
	app *app.App
}

func NewResourceHandlers(a *app.App) *ResourceHandlers {
	return &ResourceHandlers{app: a}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(_ context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")

	switch parts[0] {
	case "clients":
		if len(parts) == 1 {
			return jsonResource(uri, h.app.Clients.All())
		}
		return h.readClient(uri, parts[1])

	case "opportunities":
		if len(parts) == 1 {
			return jsonResource(uri, h.app.Opportunities.All())
		}
		o, ok := h.app.Opportunities.Get(parts[1])
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return jsonResource(uri, struct {
			models.Opportunity
			Interactions []models.Interaction `json:"interactions"`
			Tasks        []models.Task        `json:"tasks"`
		}{o, h.app.Interactions.ByOpportunity(o.ID), h.app.Tasks.ByOpportunity(o.ID)})

	case "tasks":
		if len(parts) == 2 && parts[1] == "overdue" {
			return jsonResource(uri, h.app.Tasks.Overdue())
		}
		if len(parts) == 2 && parts[1] == "upcoming" {
			return jsonResource(uri, h.app.Tasks.Upcoming(0))
		}
		return jsonResource(uri, h.app.Tasks.All())

	case "pipeline":
		return h.readPipeline(uri)

	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func (h *ResourceHandlers) readClient(uri, id string) (*mcp.ReadResourceResult, error) {
	c, ok := h.app.Clients.Get(id)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	return jsonResource(uri, struct {
		models.Client
		Opportunities []models.Opportunity `json:"opportunities"`
		Interactions  []models.Interaction `json:"interactions"`
		Tasks         []models.Task        `json:"tasks"`
	}{
		Client:        c,
		Opportunities: h.app.Opportunities.ByClient(id),
		Interactions:  h.app.Interactions.ByClient(id),
		Tasks:         h.app.Tasks.ByClient(id),
	})
}

func (h *ResourceHandlers) readPipeline(uri string) (*mcp.ReadResourceResult, error) {
	type stage struct {
		Count int   `json:"count"`
		Value int64 `json:"total_value"`
	}
	pipeline := make(map[models.Stage]stage)
	for _, o := range h.app.Opportunities.All() {
		p := pipeline[o.Stage]
		p.Count++
		p.Value += o.Value
		pipeline[o.Stage] = p
	}

	return jsonResource(uri, struct {
		Stages        map[models.Stage]stage `json:"stages"`
		TotalValue    int64                  `json:"total_value"`
		WeightedValue int64                  `json:"weighted_value"`
	}{pipeline, h.app.Opportunities.TotalValue(), h.app.Opportunities.WeightedValue()})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
