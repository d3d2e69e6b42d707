// ABOUTME: Entry point for the clientbook CLI, TUI, and MCP server
// ABOUTME: Loads config, opens the selected backend, and routes to a command
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/cli"
	"github.com/harperreed/clientbook/config"
	"github.com/harperreed/clientbook/tui"
)

const version = "0.2.0"

type command func(ctx context.Context, a *app.App, args []string) error

var crmCommands = map[string]command{
	// Clients
	"add-client":    cli.AddClientCommand,
	"list-clients":  cli.ListClientsCommand,
	"show-client":   cli.ShowClientCommand,
	"update-client": cli.UpdateClientCommand,
	"delete-client": cli.DeleteClientCommand,

	// Opportunities
	"add-opportunity":    cli.AddOpportunityCommand,
	"list-opportunities": cli.ListOpportunitiesCommand,
	"update-opportunity": cli.UpdateOpportunityCommand,
	"delete-opportunity": cli.DeleteOpportunityCommand,
	"pipeline":           cli.PipelineCommand,

	// Interactions
	"log-interaction":    cli.LogInteractionCommand,
	"list-interactions":  cli.ListInteractionsCommand,
	"delete-interaction": cli.DeleteInteractionCommand,
	"log-call":           cli.LogCallCommand,

	// Tasks
	"add-task":    cli.AddTaskCommand,
	"list-tasks":  cli.ListTasksCommand,
	"toggle-task": cli.ToggleTaskCommand,
	"update-task": cli.UpdateTaskCommand,
	"delete-task": cli.DeleteTaskCommand,

	"dashboard": cli.DashboardCommand,
}

var accountCommands = map[string]command{
	"register":       cli.RegisterCommand,
	"login":          cli.LoginCommand,
	"logout":         cli.LogoutCommand,
	"whoami":         cli.WhoamiCommand,
	"reset-password": cli.ResetPasswordCommand,
	"confirm-reset":  cli.ConfirmResetCommand,
}

var syncCommands = map[string]command{
	"link":   cli.SyncLinkCommand,
	"status": cli.SyncStatusCommand,
	"now":    cli.SyncNowCommand,
	"wipe":   cli.SyncWipeCommand,
}

var graphCommands = map[string]command{
	"pipeline": cli.VizGraphPipelineCommand,
	"client":   cli.VizGraphClientCommand,
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: ~/.config/clientbook/config.json)")
	backend := flag.String("backend", "", "Storage backend: local or remote (overrides config)")
	initOnly := flag.Bool("init", false, "Open the backend and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("clientbook version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 && !*initOnly {
		printUsage()
		os.Exit(0)
	}

	if err := run(args, *configPath, *backend, *initOnly); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			printUsage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, configPath, backend string, initOnly bool) error {
	if configPath == "" {
		configPath = config.Path()
	}
	if backend != "" {
		if err := os.Setenv("CLIENTBOOK_BACKEND", backend); err != nil {
			return err
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
	}()

	if err := a.Load(ctx); err != nil {
		// Stores keep their error state; commands still run against what loaded.
		logger.Warn("initial load failed", "err", err)
	}
	logger.Debug("storage ready", "backend", cfg.Backend)

	if initOnly {
		fmt.Printf("Storage initialized (%s backend)\n", cfg.Backend)
		return nil
	}

	cmd, rest, err := route(args)
	if err != nil {
		return err
	}
	return cmd(ctx, a, rest)
}

// route resolves the command words at the front of args.
func route(args []string) (command, []string, error) {
	name, rest := args[0], args[1:]

	switch name {
	case "mcp":
		return func(ctx context.Context, a *app.App, _ []string) error {
			return cli.MCPCommand(ctx, a, version)
		}, rest, nil

	case "tui":
		return func(ctx context.Context, a *app.App, _ []string) error {
			return tui.Run(ctx, a)
		}, rest, nil

	case "crm":
		return lookup("crm", crmCommands, rest)

	case "account":
		return lookup("account", accountCommands, rest)

	case "sync":
		return lookup("sync", syncCommands, rest)

	case "viz":
		if len(rest) == 0 || rest[0] != "graph" {
			return nil, nil, fmt.Errorf("%w: viz requires a subcommand (graph)", cli.ErrUsage)
		}
		return lookup("viz graph", graphCommands, rest[1:])
	}

	return nil, nil, fmt.Errorf("%w: unknown command %q", cli.ErrUsage, name)
}

func lookup(group string, table map[string]command, args []string) (command, []string, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("%w: %s requires a subcommand", cli.ErrUsage, group)
	}
	cmd, ok := table[args[0]]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown %s command %q", cli.ErrUsage, group, args[0])
	}
	return cmd, args[1:], nil
}

func printUsage() {
	fmt.Printf(`clientbook v%s - Client relationship manager

USAGE:
  clientbook [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/clientbook/config.json)
  --backend <name>       Storage backend: local or remote
  --init                 Open the backend and exit

COMMANDS:
  tui                    Full-screen interface
  mcp                    Start MCP server for Claude Desktop
  crm                    Client, opportunity, interaction, and task commands
  account                Accounts (remote backend)
  sync                   Charm sync (local backend)
  viz                    Visualization commands

CRM COMMANDS:
  clientbook crm add-client          Add a new client
    --first <name>                     First name (required)
    --last <name>                      Last name
    --company <company>                Company name
    --position <title>                 Job title
    --email <email>                    Email address
    --phone <phone>                    Phone number
    --address <address>                Postal address
    --status <status>                  lead, prospect, customer, inactive (default: lead)
    --notes <notes>                    Notes about the client

  clientbook crm list-clients        List clients
    --query <text>                     Search name, company, email, or phone
    --status <status>                  Filter by status
    --limit <n>                        Max results (default: 50)

  clientbook crm show-client <id>    Show a client with deals, interactions, and tasks
  clientbook crm update-client [flags] <id>
  clientbook crm delete-client <id>
    Note: flags must come before the ID

  clientbook crm add-opportunity     Add a new opportunity
    --title <title>                    Title (required)
    --client <id>                      Client ID (required)
    --value <dollars>                  Deal value
    --stage <stage>                    lead, prospect, qualified, proposal,
                                       negotiation, closed, lost (default: lead)
    --probability <0-100>              Win probability (default: stage default)
    --close-date <YYYY-MM-DD>          Expected close date
    --notes <notes>                    Notes

  clientbook crm list-opportunities  List opportunities
    --client <id>                      Filter by client
    --stage <stage>                    Filter by stage

  clientbook crm update-opportunity [flags] <id>
  clientbook crm delete-opportunity <id>
  clientbook crm pipeline            Pipeline summary by stage

  clientbook crm log-interaction     Record a call, message, meeting, email, or note
    --client <id>                      Client ID (required)
    --type <type>                      Interaction type (default: note)
    --date <YYYY-MM-DD [HH:MM]>        When it happened (default: now)
    --duration <minutes>               Length for calls and meetings
    --notes, --outcome, --follow-up    Details

  clientbook crm log-call            Time a call, then record it
    --client <id>                      Client ID (required)
    --follow-up                        Schedule a follow-up task

  clientbook crm list-interactions   List interactions, newest first
  clientbook crm delete-interaction <id>

  clientbook crm add-task            Add a task
    --title <title>                    Title (required)
    --client <id>                      Client ID
    --due <YYYY-MM-DD [HH:MM]>         Due date (default: tomorrow)
    --priority <priority>              low, medium, high (default: medium)

  clientbook crm list-tasks          Open tasks due soon
    --overdue                          Only overdue tasks
    --days <n>                         Upcoming window (default: 7)
    --all                              Every task, including completed

  clientbook crm toggle-task <id>    Mark complete or reopen
  clientbook crm update-task [flags] <id>
  clientbook crm delete-task <id>
  clientbook crm dashboard           Overview of clients, pipeline, and tasks

ACCOUNT COMMANDS:
  clientbook account register --email <email> --name <name>
  clientbook account login --email <email>
  clientbook account logout
  clientbook account whoami
  clientbook account reset-password --email <email>
  clientbook account confirm-reset --token <token>

SYNC COMMANDS:
  clientbook sync link               Link this device to Charm Cloud
  clientbook sync status             Show sync state
  clientbook sync now                Sync with Charm Cloud
  clientbook sync wipe --confirm     Delete all local data

VIZ COMMANDS:
  clientbook viz graph pipeline      Generate deal pipeline graph
  clientbook viz graph client <id>   Generate a client's relationship graph
    --output <file>                    Output file (default: stdout)

EXAMPLES:
  # Add a client
  clientbook crm add-client --first Jane --last Doe --company "Acme Corp" --status prospect

  # Add a deal for that client
  clientbook crm add-opportunity --title "Website" --client <id> --value 5000 --stage proposal

  # Time a call and schedule a follow-up
  clientbook crm log-call --client <id> --follow-up

  # Use the shared remote database
  CLIENTBOOK_BACKEND=remote clientbook account login --email jane@example.com

`, version)
}
