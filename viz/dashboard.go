// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides an ASCII overview of the pipeline, tasks, and recent activity
package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

// Attention thresholds.
const (
	StaleClientDays      = 30
	StaleOpportunityDays = 14
)

type DashboardStats struct {
	// Pipeline overview
	PipelineByStage map[models.Stage]PipelineStageStats
	PipelineValue   int64
	WeightedValue   int64

	// Overall stats
	TotalClients       int
	TotalOpportunities int
	TotalInteractions  int
	ClientsByStatus    map[models.ClientStatus]int

	// Tasks
	OverdueTasks  []models.Task
	UpcomingTasks []models.Task

	// Recent activity (newest first)
	RecentActivity []ActivityItem

	// Needs attention
	StaleClients       []StaleItem
	StaleOpportunities []StaleItem
}

type PipelineStageStats struct {
	Stage models.Stage
	Count int
	Value int64
}

type ActivityItem struct {
	Date        int64
	Description string
}

type StaleItem struct {
	Name string
	// DaysSince is -1 when there was never any contact.
	DaysSince int
}

func GenerateDashboardStats(a *app.App, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		PipelineByStage: make(map[models.Stage]PipelineStageStats),
		ClientsByStatus: make(map[models.ClientStatus]int),
		PipelineValue:   a.Opportunities.TotalValue(),
		WeightedValue:   a.Opportunities.WeightedValue(),
		OverdueTasks:    a.Tasks.Overdue(),
		UpcomingTasks:   a.Tasks.Upcoming(0),
	}

	opps := a.Opportunities.All()
	stats.TotalOpportunities = len(opps)
	for _, o := range opps {
		ps := stats.PipelineByStage[o.Stage]
		ps.Stage = o.Stage
		ps.Count++
		ps.Value += o.Value
		stats.PipelineByStage[o.Stage] = ps

		days := daysBetween(o.UpdatedAt, now)
		if o.IsOpen() && days >= StaleOpportunityDays {
			stats.StaleOpportunities = append(stats.StaleOpportunities, StaleItem{Name: o.Title, DaysSince: days})
		}
	}

	clients := a.Clients.All()
	stats.TotalClients = len(clients)
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.FullName()
		stats.ClientsByStatus[c.Status]++
		if c.Status == models.StatusInactive {
			continue
		}

		ints := a.Interactions.ByClient(c.ID)
		if len(ints) == 0 {
			stats.StaleClients = append(stats.StaleClients, StaleItem{Name: c.FullName(), DaysSince: -1})
			continue
		}
		if days := daysBetween(ints[0].Date, now); days >= StaleClientDays {
			stats.StaleClients = append(stats.StaleClients, StaleItem{Name: c.FullName(), DaysSince: days})
		}
	}
	sort.SliceStable(stats.StaleClients, func(i, j int) bool {
		return stats.StaleClients[i].DaysSince > stats.StaleClients[j].DaysSince
	})

	stats.TotalInteractions = a.Interactions.Len()
	for _, it := range a.Interactions.Recent(5) {
		who := names[it.ClientID]
		if who == "" {
			who = "unknown client"
		}
		desc := fmt.Sprintf("%s with %s", strings.ToUpper(string(it.Type[:1]))+string(it.Type[1:]), who)
		if it.Duration != nil {
			desc += " (" + format.Minutes(it.Duration) + ")"
		}
		stats.RecentActivity = append(stats.RecentActivity, ActivityItem{Date: it.Date, Description: desc})
	}

	return stats
}

func daysBetween(ms int64, now time.Time) int {
	return int(now.Sub(time.UnixMilli(ms)).Hours() / 24)
}

func RenderDashboard(stats *DashboardStats, now time.Time) string {
	var out strings.Builder

	// Header
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  CLIENTBOOK DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	// Pipeline overview
	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, stats.PipelineByStage)
	out.WriteString(fmt.Sprintf("  Total %s  ·  Weighted %s\n\n",
		format.Currency(stats.PipelineValue), format.Currency(stats.WeightedValue)))

	// Stats
	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  👥 %d clients  💼 %d opportunities  💬 %d interactions\n",
		stats.TotalClients, stats.TotalOpportunities, stats.TotalInteractions))
	out.WriteString(fmt.Sprintf("  %d leads · %d prospects · %d customers · %d inactive\n\n",
		stats.ClientsByStatus[models.StatusLead], stats.ClientsByStatus[models.StatusProspect],
		stats.ClientsByStatus[models.StatusCustomer], stats.ClientsByStatus[models.StatusInactive]))

	// Tasks
	out.WriteString("TASKS\n")
	out.WriteString(fmt.Sprintf("  🔴 %d overdue  🟡 %d due this week\n", len(stats.OverdueTasks), len(stats.UpcomingTasks)))
	for _, t := range stats.OverdueTasks {
		out.WriteString(fmt.Sprintf("    ! %s (due %s)\n", t.Title, format.Relative(t.DueDate, now)))
	}
	out.WriteString("\n")

	if len(stats.RecentActivity) > 0 {
		out.WriteString("RECENT ACTIVITY\n")
		for _, item := range stats.RecentActivity {
			out.WriteString(fmt.Sprintf("  %-14s %s\n", format.Relative(item.Date, now), item.Description))
		}
		out.WriteString("\n")
	}

	// Needs attention
	if len(stats.StaleClients) > 0 || len(stats.StaleOpportunities) > 0 {
		out.WriteString("NEEDS ATTENTION\n")

		if len(stats.StaleClients) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d clients - no contact in %d+ days\n", len(stats.StaleClients), StaleClientDays))
		}

		if len(stats.StaleOpportunities) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d opportunities - stale (no update in %d+ days)\n", len(stats.StaleOpportunities), StaleOpportunityDays))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, pipeline map[models.Stage]PipelineStageStats) {
	// Find max count for scaling
	maxCount := 0
	for _, pstats := range pipeline {
		if pstats.Count > maxCount {
			maxCount = pstats.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, stage := range models.Stages() {
		pstats := pipeline[stage]

		// Calculate bar length (0-10 blocks)
		barLength := (pstats.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-13s %s  %2d (%s)\n",
			stage.Label(), bar, pstats.Count, format.Currency(pstats.Value)))
	}
}
