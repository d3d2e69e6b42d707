// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Client briefings, pipeline reviews, and follow-up suggestions built from live store data
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

type PromptHandlers struct {
	app *app.App
	now func() time.Time
}

func NewPromptHandlers(a *app.App) *PromptHandlers {
	return &PromptHandlers{app: a, now: time.Now}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(_ context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	switch request.Params.Name {
	case "client-briefing":
		return h.clientBriefing(args)
	case "pipeline-review":
		return h.pipelineReview()
	case "follow-up-suggestions":
		return h.followUpSuggestions(args)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func (h *PromptHandlers) clientBriefing(args map[string]string) (*mcp.GetPromptResult, error) {
	id, ok := args["client_id"]
	if !ok {
		return nil, fmt.Errorf("client_id is required")
	}
	c, ok := h.app.Clients.Get(id)
	if !ok {
		return nil, fmt.Errorf("client not found: %s", id)
	}
	now := h.now()

	var b strings.Builder
	b.WriteString("Prepare me for my next conversation with this client:\n\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", c.FullName()))
	if c.Company != "" {
		b.WriteString(fmt.Sprintf("Company: %s", c.Company))
		if c.Position != "" {
			b.WriteString(fmt.Sprintf(" (%s)", c.Position))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Status: %s\n", c.Status))
	if c.Notes != "" {
		b.WriteString(fmt.Sprintf("Notes: %s\n", c.Notes))
	}

	if opps := h.app.Opportunities.ByClient(id); len(opps) > 0 {
		b.WriteString("\nOpportunities:\n")
		for _, o := range opps {
			b.WriteString(fmt.Sprintf("- %s: %s, %s, %s likely\n", o.Title, format.Currency(o.Value), o.Stage.Label(), format.Probability(o)))
		}
	}

	if ints := h.app.Interactions.ByClient(id); len(ints) > 0 {
		b.WriteString("\nRecent interactions:\n")
		for i, it := range ints {
			if i == 10 {
				break
			}
			b.WriteString(fmt.Sprintf("- %s, %s", format.Relative(it.Date, now), it.Type))
			if it.Notes != "" {
				b.WriteString(": " + it.Notes)
			}
			if it.Outcome != "" {
				b.WriteString(" (outcome: " + it.Outcome + ")")
			}
			b.WriteString("\n")
		}
	}

	if tasks := h.app.Tasks.ByClient(id); len(tasks) > 0 {
		b.WriteString("\nTasks:\n")
		for _, t := range tasks {
			if t.Completed {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s (due %s, %s priority)\n", t.Title, format.Date(t.DueDate), t.Priority))
		}
	}

	b.WriteString("\nPlease:")
	b.WriteString("\n1. Summarize where the relationship stands")
	b.WriteString("\n2. Suggest talking points for the next conversation")
	b.WriteString("\n3. Flag anything overdue or at risk")

	return userPrompt(fmt.Sprintf("Briefing for %s", c.FullName()), b.String()), nil
}

func (h *PromptHandlers) pipelineReview() (*mcp.GetPromptResult, error) {
	var b strings.Builder
	b.WriteString("Review my sales pipeline:\n\n")

	for _, st := range models.Stages() {
		opps := h.app.Opportunities.ByStage(st)
		if len(opps) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("%s (%d):\n", st.Label(), len(opps)))
		for _, o := range opps {
			client := "unknown client"
			if c, ok := h.app.Clients.Get(o.ClientID); ok {
				client = c.FullName()
			}
			b.WriteString(fmt.Sprintf("- %s with %s, %s, close %s\n", o.Title, client, format.Currency(o.Value), format.OptionalDate(o.ExpectedCloseDate)))
		}
	}

	b.WriteString(fmt.Sprintf("\nTotal pipeline: %s (weighted %s)\n",
		format.Currency(h.app.Opportunities.TotalValue()), format.Currency(h.app.Opportunities.WeightedValue())))

	b.WriteString("\nPlease:")
	b.WriteString("\n1. Identify the deals most likely to close soon")
	b.WriteString("\n2. Point out deals that look stuck")
	b.WriteString("\n3. Suggest next steps for the top opportunities")

	return userPrompt("Pipeline review", b.String()), nil
}

func (h *PromptHandlers) followUpSuggestions(args map[string]string) (*mcp.GetPromptResult, error) {
	days := 30
	if d, ok := args["days_since_contact"]; ok {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid days_since_contact: %q", d)
		}
		days = n
	}
	now := h.now()
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Clients that may need follow-up (no contact in %d+ days):\n\n", days))

	count := 0
	for _, c := range h.app.Clients.All() {
		if c.Status == models.StatusInactive {
			continue
		}
		ints := h.app.Interactions.ByClient(c.ID)
		switch {
		case len(ints) == 0:
			b.WriteString(fmt.Sprintf("- %s (never contacted)\n", c.FullName()))
		case ints[0].Date < cutoff:
			b.WriteString(fmt.Sprintf("- %s (last %s %s)\n", c.FullName(), ints[0].Type, format.Relative(ints[0].Date, now)))
		default:
			continue
		}
		count++
	}

	if count == 0 {
		b.WriteString("All clients have been contacted recently.\n")
	}

	if overdue := h.app.Tasks.Overdue(); len(overdue) > 0 {
		b.WriteString("\nOverdue tasks:\n")
		for _, t := range overdue {
			b.WriteString(fmt.Sprintf("- %s (due %s)\n", t.Title, format.Date(t.DueDate)))
		}
	}

	b.WriteString("\nPlease:")
	b.WriteString("\n1. Prioritize which clients to reach out to first")
	b.WriteString("\n2. Suggest personalized outreach approaches for each")
	b.WriteString("\n3. Identify any patterns in follow-up gaps")

	return userPrompt("Follow-up suggestions for clients", b.String()), nil
}
