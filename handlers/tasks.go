// ABOUTME: Task MCP tool handlers
// ABOUTME: Implements add_task, toggle_task, and find_tasks tools
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/models"
)

type TaskHandlers struct {
	app *app.App
}

func NewTaskHandlers(a *app.App) *TaskHandlers {
	return &TaskHandlers{app: a}
}

type AddTaskInput struct {
	Title         string `json:"title" jsonschema:"Task title (required)"`
	Description   string `json:"description,omitempty" jsonschema:"Description"`
	ClientID      string `json:"client_id,omitempty" jsonschema:"Related client ID"`
	OpportunityID string `json:"opportunity_id,omitempty" jsonschema:"Related opportunity ID"`
	DueDate       string `json:"due_date" jsonschema:"Due date (RFC3339 or YYYY-MM-DD, required)"`
	Priority      string `json:"priority,omitempty" jsonschema:"low, medium, or high (default medium)"`
}

type TaskOutput struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	ClientID      string `json:"client_id,omitempty"`
	OpportunityID string `json:"opportunity_id,omitempty"`
	DueDate       string `json:"due_date"`
	Completed     bool   `json:"completed"`
	Overdue       bool   `json:"overdue"`
	Priority      string `json:"priority"`
	CreatedAt     string `json:"created_at"`
}

func (h *TaskHandlers) AddTask(ctx context.Context, _ *mcp.CallToolRequest, input AddTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	if input.Title == "" {
		return nil, TaskOutput{}, fmt.Errorf("title is required")
	}
	if input.DueDate == "" {
		return nil, TaskOutput{}, fmt.Errorf("due_date is required")
	}
	due, err := parseTime(input.DueDate)
	if err != nil {
		return nil, TaskOutput{}, err
	}

	in := models.TaskInput{
		Title:         input.Title,
		Description:   input.Description,
		ClientID:      input.ClientID,
		OpportunityID: input.OpportunityID,
		DueDate:       due,
	}
	if input.Priority != "" {
		if in.Priority, err = models.ParsePriority(input.Priority); err != nil {
			return nil, TaskOutput{}, err
		}
	}

	id, err := h.app.Tasks.Add(ctx, in)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to create task: %w", err)
	}

	t, _ := h.app.Tasks.Get(id)
	return nil, h.toOutput(t), nil
}

type ToggleTaskInput struct {
	ID string `json:"id" jsonschema:"Task ID (required)"`
}

func (h *TaskHandlers) ToggleTask(ctx context.Context, _ *mcp.CallToolRequest, input ToggleTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	if input.ID == "" {
		return nil, TaskOutput{}, fmt.Errorf("id is required")
	}
	if err := h.app.Tasks.ToggleCompletion(ctx, input.ID); err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to toggle task: %w", err)
	}

	t, _ := h.app.Tasks.Get(input.ID)
	return nil, h.toOutput(t), nil
}

type FindTasksInput struct {
	Filter        string `json:"filter,omitempty" jsonschema:"overdue, upcoming, or all (default all)"`
	Days          int    `json:"days,omitempty" jsonschema:"Window for upcoming, in days (default 7)"`
	ClientID      string `json:"client_id,omitempty" jsonschema:"Only this client's tasks"`
	OpportunityID string `json:"opportunity_id,omitempty" jsonschema:"Only this opportunity's tasks"`
}

type FindTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
}

func (h *TaskHandlers) FindTasks(_ context.Context, _ *mcp.CallToolRequest, input FindTasksInput) (*mcp.CallToolResult, FindTasksOutput, error) {
	var tasks []models.Task
	switch input.Filter {
	case "overdue":
		tasks = h.app.Tasks.Overdue()
	case "upcoming":
		tasks = h.app.Tasks.Upcoming(input.Days)
	case "", "all":
		tasks = h.app.Tasks.All()
	default:
		return nil, FindTasksOutput{}, fmt.Errorf("unknown filter: %s (valid: overdue, upcoming, all)", input.Filter)
	}

	result := []TaskOutput{}
	for _, t := range tasks {
		if input.ClientID != "" && t.ClientID != input.ClientID {
			continue
		}
		if input.OpportunityID != "" && t.OpportunityID != input.OpportunityID {
			continue
		}
		result = append(result, h.toOutput(t))
	}
	return nil, FindTasksOutput{Tasks: result}, nil
}

func (h *TaskHandlers) toOutput(t models.Task) TaskOutput {
	overdue := false
	for _, o := range h.app.Tasks.Overdue() {
		if o.ID == t.ID {
			overdue = true
			break
		}
	}
	return TaskOutput{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		ClientID:      t.ClientID,
		OpportunityID: t.OpportunityID,
		DueDate:       isoTime(t.DueDate),
		Completed:     t.Completed,
		Overdue:       overdue,
		Priority:      string(t.Priority),
		CreatedAt:     isoTime(t.CreatedAt),
	}
}
