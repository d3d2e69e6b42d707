// ABOUTME: Interaction CLI commands
// ABOUTME: Logs, lists, and deletes calls, messages, meetings, emails, and notes
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

// LogInteractionCommand records an interaction with a client
func LogInteractionCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("log-interaction", flag.ExitOnError)
	clientID := fs.String("client", "", "Client ID (required)")
	oppID := fs.String("opportunity", "", "Opportunity ID")
	kind := fs.String("type", "note", "Type (call, message, meeting, email, note)")
	date := fs.String("date", "", "When it happened (default: now)")
	duration := fs.Int("duration", -1, "Length in minutes, for calls and meetings")
	notes := fs.String("notes", "", "Notes")
	outcome := fs.String("outcome", "", "Outcome")
	followUp := fs.String("follow-up", "", "Follow-up date (YYYY-MM-DD)")
	_ = fs.Parse(args)

	if *clientID == "" {
		return fmt.Errorf("--client is required")
	}
	if _, ok := a.Clients.Get(*clientID); !ok {
		return fmt.Errorf("client not found: %s", *clientID)
	}
	t, err := models.ParseInteractionType(*kind)
	if err != nil {
		return err
	}

	in := models.InteractionInput{
		ClientID:      *clientID,
		OpportunityID: *oppID,
		Type:          t,
		Notes:         *notes,
		Outcome:       *outcome,
	}
	if *date != "" {
		if in.Date, err = parseDate(*date); err != nil {
			return err
		}
	}
	if *duration >= 0 {
		in.Duration = duration
	}
	if in.FollowUpDate, err = optionalDate(*followUp); err != nil {
		return err
	}

	id, err := a.Interactions.Add(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to log interaction: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Logged %s (ID: %s)\n", t, id)
	return nil
}

// ListInteractionsCommand lists interactions, newest first
func ListInteractionsCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list-interactions", flag.ExitOnError)
	clientID := fs.String("client", "", "Filter by client ID")
	oppID := fs.String("opportunity", "", "Filter by opportunity ID")
	kind := fs.String("type", "", "Filter by type")
	limit := fs.Int("limit", 10, "Maximum number of results")
	_ = fs.Parse(args)

	var items []models.Interaction
	switch {
	case *clientID != "":
		items = a.Interactions.ByClient(*clientID)
	case *oppID != "":
		items = a.Interactions.ByOpportunity(*oppID)
	case *kind != "":
		t, err := models.ParseInteractionType(*kind)
		if err != nil {
			return err
		}
		items = a.Interactions.ByType(t)
	default:
		items = a.Interactions.Recent(*limit)
	}
	if *limit > 0 && len(items) > *limit {
		items = items[:*limit]
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "No interactions found")
		return nil
	}

	w := newTable("ID", "DATE", "TYPE", "CLIENT", "DURATION", "NOTES")
	for _, it := range items {
		clientName := it.ClientID
		if c, ok := a.Clients.Get(it.ClientID); ok {
			clientName = c.FullName()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, format.DateTime(it.Date), it.Type, clientName,
			format.Minutes(it.Duration), format.Truncate(it.Notes, 40))
	}
	_ = w.Flush()
	return nil
}

// DeleteInteractionCommand deletes an interaction
func DeleteInteractionCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-interaction", flag.ExitOnError)
	_ = fs.Parse(args)

	id, err := requireID(fs, "interaction")
	if err != nil {
		return err
	}

	if err := a.Interactions.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete interaction: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Interaction deleted: %s\n", id)
	return nil
}
