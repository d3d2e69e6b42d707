// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server for Claude Desktop integration
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/handlers"
)

// MCPCommand starts the MCP server on stdio. With the remote backend the
// stores stay live for the whole session.
func MCPCommand(ctx context.Context, a *app.App, version string) error {
	a.Logger.Info("starting MCP server", "backend", a.Backend)

	stop := a.Live(ctx)
	defer stop()

	server := handlers.NewServer(a, version)
	return server.Run(ctx, &mcp.StdioTransport{})
}
