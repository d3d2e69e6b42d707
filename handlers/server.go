// ABOUTME: MCP server construction
// ABOUTME: Registers every CRM tool, resource, and prompt against one app
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/clientbook/app"
)

// NewServer builds the MCP server over a's stores.
func NewServer(a *app.App, version string) *mcp.Server {
	clients := NewClientHandlers(a)
	opportunities := NewOpportunityHandlers(a)
	interactions := NewInteractionHandlers(a)
	tasks := NewTaskHandlers(a)
	vizHandlers := NewVizHandlers(a)
	resources := NewResourceHandlers(a)
	prompts := NewPromptHandlers(a)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "clientbook",
		Version: version,
	}, nil)

	// Clients
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_client",
		Description: "Add a new client to the CRM",
	}, clients.AddClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_clients",
		Description: "Search clients by name, company, email, or phone, optionally filtered by status",
	}, clients.FindClients)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_client",
		Description: "Update an existing client's information; omitted fields are unchanged",
	}, clients.UpdateClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_client",
		Description: "Delete a client",
	}, clients.DeleteClient)

	// Opportunities
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_opportunity",
		Description: "Create a new sales opportunity for a client",
	}, opportunities.CreateOpportunity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_opportunity",
		Description: "Update an opportunity, including moving it to another pipeline stage",
	}, opportunities.UpdateOpportunity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_opportunities",
		Description: "List opportunities filtered by client, stage, or open status",
	}, opportunities.FindOpportunities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_summary",
		Description: "Count and value of opportunities per stage, with total and weighted pipeline value",
	}, opportunities.PipelineSummary)

	// Interactions
	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_interaction",
		Description: "Log a call, message, meeting, email, or note with a client",
	}, interactions.LogInteraction)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recent_interactions",
		Description: "List the most recent interactions, optionally for one client or opportunity",
	}, interactions.RecentInteractions)

	// Tasks
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_task",
		Description: "Add a follow-up task with a due date",
	}, tasks.AddTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_task",
		Description: "Mark a task done, or not done if it already was",
	}, tasks.ToggleTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_tasks",
		Description: "List tasks: overdue, upcoming within N days, or all",
	}, tasks.FindTasks)

	// Visualization
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate a GraphViz graph of the pipeline or of one client",
	}, vizHandlers.GenerateGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Text dashboard with pipeline, tasks, recent activity, and clients needing attention",
	}, vizHandlers.Dashboard)

	// Resources
	for _, r := range []*mcp.Resource{
		{URI: "crm://clients", Name: "clients", Description: "Every client", MIMEType: "application/json"},
		{URI: "crm://opportunities", Name: "opportunities", Description: "Every opportunity", MIMEType: "application/json"},
		{URI: "crm://tasks", Name: "tasks", Description: "Every task", MIMEType: "application/json"},
		{URI: "crm://tasks/overdue", Name: "overdue-tasks", Description: "Incomplete tasks past due", MIMEType: "application/json"},
		{URI: "crm://tasks/upcoming", Name: "upcoming-tasks", Description: "Incomplete tasks due this week", MIMEType: "application/json"},
		{URI: "crm://pipeline", Name: "pipeline", Description: "Pipeline totals by stage", MIMEType: "application/json"},
	} {
		server.AddResource(r, resources.ReadResource)
	}
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://clients/{id}",
		Name:        "client",
		Description: "One client with opportunities, interactions, and tasks",
		MIMEType:    "application/json",
	}, resources.ReadResource)
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://opportunities/{id}",
		Name:        "opportunity",
		Description: "One opportunity with its interactions and tasks",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	// Prompts
	server.AddPrompt(&mcp.Prompt{
		Name:        "client-briefing",
		Description: "Briefing before a conversation with a client",
		Arguments:   []*mcp.PromptArgument{{Name: "client_id", Description: "Client ID", Required: true}},
	}, prompts.GetPrompt)
	server.AddPrompt(&mcp.Prompt{
		Name:        "pipeline-review",
		Description: "Review of every open deal by stage",
	}, prompts.GetPrompt)
	server.AddPrompt(&mcp.Prompt{
		Name:        "follow-up-suggestions",
		Description: "Clients not contacted recently and overdue tasks",
		Arguments:   []*mcp.PromptArgument{{Name: "days_since_contact", Description: "Days without contact (default 30)"}},
	}, prompts.GetPrompt)

	return server
}
