// ABOUTME: Visualization CLI commands
// ABOUTME: Handles dashboard and graph generation commands
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/viz"
)

func writeGraph(output, dot string) error {
	if output != "" {
		return os.WriteFile(output, []byte(dot), 0644)
	}
	_, _ = fmt.Fprintln(out, dot)
	return nil
}

// VizGraphPipelineCommand generates the pipeline graph.
func VizGraphPipelineCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("viz graph pipeline", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	dot, err := viz.NewGraphGenerator(a).GeneratePipelineGraph(ctx)
	if err != nil {
		return err
	}
	return writeGraph(*output, dot)
}

// VizGraphClientCommand generates the graph around one client.
func VizGraphClientCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("viz graph client", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := requireID(fs, "client")
	if err != nil {
		return err
	}

	dot, err := viz.NewGraphGenerator(a).GenerateClientGraph(ctx, id)
	if err != nil {
		return err
	}
	return writeGraph(*output, dot)
}

func DashboardCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	_ = fs.Parse(args)

	now := time.Now()
	_, _ = fmt.Fprint(out, viz.RenderDashboard(viz.GenerateDashboardStats(a, now), now))
	return nil
}
