// ABOUTME: log-call command with a live call timer
// ABOUTME: Enter ends the call and records it; interrupting cancels without saving
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/calllog"
	"github.com/harperreed/clientbook/format"
)

var callInterval = time.Second

// LogCallCommand times a call with a client and logs it as an interaction.
func LogCallCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("log-call", flag.ExitOnError)
	clientID := fs.String("client", "", "Client ID (required)")
	oppID := fs.String("opportunity", "", "Opportunity ID")
	notes := fs.String("notes", "", "Call notes (prompted when empty)")
	outcome := fs.String("outcome", "", "Call outcome (prompted when empty)")
	followUp := fs.Bool("follow-up", false, "Schedule a follow-up")
	followUpDate := fs.String("follow-up-date", "", "Follow-up date (default: a week after the call)")
	_ = fs.Parse(args)

	if *clientID == "" {
		return fmt.Errorf("--client is required")
	}
	c, ok := a.Clients.Get(*clientID)
	if !ok {
		return fmt.Errorf("client not found: %s", *clientID)
	}
	fuDate, err := optionalDate(*followUpDate)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "📞 Calling %s", c.FullName())
	if c.Phone != "" {
		_, _ = fmt.Fprintf(out, " (%s)", c.Phone)
	}
	_, _ = fmt.Fprintln(out, "\nPress Enter to end the call, Ctrl+C to cancel.")

	call := calllog.Start(ctx, c.ID, func(elapsed time.Duration) {
		_, _ = fmt.Fprintf(out, "\r  %s ", format.Duration(elapsed))
	}, calllog.WithInterval(callInterval))

	reader := bufio.NewReader(in)
	ended := make(chan error, 1)
	go func() {
		_, err := reader.ReadString('\n')
		ended <- err
	}()

	select {
	case <-ctx.Done():
		call.Cancel()
		_, _ = fmt.Fprintln(out, "\nCall cancelled, nothing saved")
		return nil
	case <-ended:
	}

	length := call.End()
	_, _ = fmt.Fprintf(out, "\nCall ended after %s\n", format.Duration(length))

	summary := calllog.Summary{
		OpportunityID: *oppID,
		Notes:         *notes,
		Outcome:       *outcome,
		FollowUp:      *followUp || fuDate != nil,
		FollowUpDate:  fuDate,
	}
	if summary.Notes == "" {
		if summary.Notes, err = prompt(reader, "Notes: "); err != nil {
			return err
		}
	}
	if summary.Outcome == "" {
		if summary.Outcome, err = prompt(reader, "Outcome: "); err != nil {
			return err
		}
	}

	record := call.Interaction(summary)
	id, err := a.Interactions.Add(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to log call: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Call logged (ID: %s), %s\n", id, format.Minutes(record.Duration))
	if record.FollowUpDate != nil {
		_, _ = fmt.Fprintf(out, "  Follow up on %s\n", format.Date(*record.FollowUpDate))
	}
	return nil
}
