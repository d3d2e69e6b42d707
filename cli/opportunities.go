// ABOUTME: Opportunity CLI commands
// ABOUTME: Handles add, list, update, delete, and pipeline summary for opportunities
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

// AddOpportunityCommand adds a new opportunity for a client
func AddOpportunityCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-opportunity", flag.ExitOnError)
	title := fs.String("title", "", "Opportunity title (required)")
	clientID := fs.String("client", "", "Client ID (required)")
	value := fs.Int64("value", 0, "Deal value in whole dollars")
	stage := fs.String("stage", "lead", "Stage (lead, prospect, qualified, proposal, negotiation, closed, lost)")
	probability := fs.Int("probability", -1, "Win probability 0-100 (default: unset)")
	closeDate := fs.String("close-date", "", "Expected close date (YYYY-MM-DD)")
	notes := fs.String("notes", "", "Notes")
	_ = fs.Parse(args)

	if *title == "" || *clientID == "" {
		return fmt.Errorf("--title and --client are required")
	}
	if _, ok := a.Clients.Get(*clientID); !ok {
		return fmt.Errorf("client not found: %s", *clientID)
	}
	st, err := models.ParseStage(*stage)
	if err != nil {
		return err
	}
	closeAt, err := optionalDate(*closeDate)
	if err != nil {
		return err
	}

	in := models.OpportunityInput{
		Title:             *title,
		ClientID:          *clientID,
		Value:             *value,
		Stage:             st,
		ExpectedCloseDate: closeAt,
		Notes:             *notes,
	}
	if *probability >= 0 {
		in.Probability = probability
	}

	id, err := a.Opportunities.Add(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create opportunity: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Opportunity created: %s (ID: %s)\n", *title, id)
	_, _ = fmt.Fprintf(out, "  Value: %s\n", format.Currency(*value))
	_, _ = fmt.Fprintf(out, "  Stage: %s\n", st.Label())
	return nil
}

// ListOpportunitiesCommand lists opportunities with optional filters
func ListOpportunitiesCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list-opportunities", flag.ExitOnError)
	clientID := fs.String("client", "", "Filter by client ID")
	stage := fs.String("stage", "all", "Filter by stage")
	_ = fs.Parse(args)

	var opps []models.Opportunity
	if *clientID != "" {
		opps = a.Opportunities.ByClient(*clientID)
	} else {
		opps = a.Opportunities.All()
	}
	if *stage != "all" {
		st, err := models.ParseStage(*stage)
		if err != nil {
			return err
		}
		filtered := opps[:0]
		for _, o := range opps {
			if o.Stage == st {
				filtered = append(filtered, o)
			}
		}
		opps = filtered
	}

	if len(opps) == 0 {
		_, _ = fmt.Fprintln(out, "No opportunities found")
		return nil
	}

	w := newTable("ID", "TITLE", "CLIENT", "STAGE", "VALUE", "PROB", "CLOSE")
	for _, o := range opps {
		clientName := o.ClientID
		if c, ok := a.Clients.Get(o.ClientID); ok {
			clientName = c.FullName()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.Title, clientName, o.Stage.Label(), format.Currency(o.Value),
			format.Probability(o), format.OptionalDate(o.ExpectedCloseDate))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nTotal: %d opportunit(ies)\n", len(opps))
	return nil
}

// UpdateOpportunityCommand updates an opportunity. Only flags given change.
func UpdateOpportunityCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("update-opportunity", flag.ExitOnError)
	title := fs.String("title", "", "Opportunity title")
	clientID := fs.String("client", "", "Client ID")
	value := fs.Int64("value", 0, "Deal value in whole dollars")
	stage := fs.String("stage", "", "Stage")
	probability := fs.Int("probability", 0, "Win probability 0-100")
	closeDate := fs.String("close-date", "", "Expected close date (YYYY-MM-DD)")
	notes := fs.String("notes", "", "Notes")
	_ = fs.Parse(args)

	id, err := requireID(fs, "opportunity")
	if err != nil {
		return err
	}

	set := setFlags(fs)
	var patch models.OpportunityPatch
	if set["title"] {
		patch.Title = title
	}
	if set["client"] {
		if _, ok := a.Clients.Get(*clientID); !ok {
			return fmt.Errorf("client not found: %s", *clientID)
		}
		patch.ClientID = clientID
	}
	if set["value"] {
		patch.Value = value
	}
	if set["stage"] {
		st, err := models.ParseStage(*stage)
		if err != nil {
			return err
		}
		patch.Stage = &st
	}
	if set["probability"] {
		patch.Probability = probability
	}
	if set["close-date"] {
		ms, err := parseDate(*closeDate)
		if err != nil {
			return err
		}
		patch.ExpectedCloseDate = &ms
	}
	if set["notes"] {
		patch.Notes = notes
	}

	if err := a.Opportunities.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to update opportunity: %w", err)
	}

	o, _ := a.Opportunities.Get(id)
	_, _ = fmt.Fprintf(out, "✓ Opportunity updated: %s [%s] %s\n", o.Title, o.Stage.Label(), format.Currency(o.Value))
	return nil
}

// DeleteOpportunityCommand deletes an opportunity
func DeleteOpportunityCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-opportunity", flag.ExitOnError)
	_ = fs.Parse(args)

	id, err := requireID(fs, "opportunity")
	if err != nil {
		return err
	}

	if err := a.Opportunities.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Opportunity deleted: %s\n", id)
	return nil
}

// PipelineCommand prints deal counts and value per stage
func PipelineCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("pipeline", flag.ExitOnError)
	_ = fs.Parse(args)

	counts := a.Opportunities.CountByStage()
	w := newTable("STAGE", "DEALS", "VALUE")
	for _, st := range models.Stages() {
		var value int64
		for _, o := range a.Opportunities.ByStage(st) {
			value += o.Value
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", st.Label(), counts[st], format.Currency(value))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nPipeline value: %s\n", format.Currency(a.Opportunities.TotalValue()))
	_, _ = fmt.Fprintf(out, "Weighted value: %s\n", format.Currency(a.Opportunities.WeightedValue()))
	return nil
}
