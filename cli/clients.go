// ABOUTME: Client CLI commands
// ABOUTME: Handles add, list, show, update, and delete operations for clients
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

// AddClientCommand adds a new client
func AddClientCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-client", flag.ExitOnError)
	first := fs.String("first", "", "First name (required)")
	last := fs.String("last", "", "Last name")
	company := fs.String("company", "", "Company name")
	position := fs.String("position", "", "Job title")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	address := fs.String("address", "", "Postal address")
	status := fs.String("status", "lead", "Status (lead, prospect, customer, inactive)")
	notes := fs.String("notes", "", "Notes about the client")
	_ = fs.Parse(args)

	if *first == "" {
		return fmt.Errorf("--first is required")
	}
	st, err := models.ParseClientStatus(*status)
	if err != nil {
		return err
	}

	id, err := a.Clients.Add(ctx, models.ClientInput{
		FirstName: *first,
		LastName:  *last,
		Company:   *company,
		Position:  *position,
		Email:     *email,
		Phone:     *phone,
		Address:   *address,
		Status:    st,
		Notes:     *notes,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	c, _ := a.Clients.Get(id)
	_, _ = fmt.Fprintf(out, "✓ Client created: %s (ID: %s)\n", c.FullName(), id)
	return nil
}

// ListClientsCommand lists clients with optional search and status filter
func ListClientsCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list-clients", flag.ExitOnError)
	query := fs.String("query", "", "Search by name, company, email, or phone")
	status := fs.String("status", "all", "Filter by status")
	limit := fs.Int("limit", 50, "Maximum number of results")
	_ = fs.Parse(args)

	var st models.ClientStatus
	if *status != "all" {
		parsed, err := models.ParseClientStatus(*status)
		if err != nil {
			return err
		}
		st = parsed
	}

	var clients []models.Client
	for _, c := range a.Clients.Search(*query) {
		if st != "" && c.Status != st {
			continue
		}
		clients = append(clients, c)
		if len(clients) == *limit {
			break
		}
	}

	if len(clients) == 0 {
		_, _ = fmt.Fprintln(out, "No clients found")
		return nil
	}

	w := newTable("ID", "NAME", "COMPANY", "STATUS", "EMAIL", "PHONE")
	for _, c := range clients {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.FullName(), c.Company, c.Status, c.Email, c.Phone)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nTotal: %d client(s)\n", len(clients))
	return nil
}

// ShowClientCommand prints a client with its opportunities, recent
// interactions, and open tasks.
func ShowClientCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("show-client", flag.ExitOnError)
	_ = fs.Parse(args)

	id, err := requireID(fs, "client")
	if err != nil {
		return err
	}
	c, ok := a.Clients.Get(id)
	if !ok {
		return fmt.Errorf("client not found: %s", id)
	}

	_, _ = fmt.Fprintf(out, "%s  [%s]\n", c.FullName(), c.Status)
	for _, line := range [][2]string{
		{"Company", c.Company}, {"Position", c.Position}, {"Email", c.Email},
		{"Phone", c.Phone}, {"Address", c.Address}, {"Notes", c.Notes},
	} {
		if line[1] != "" {
			_, _ = fmt.Fprintf(out, "  %-9s %s\n", line[0]+":", line[1])
		}
	}
	_, _ = fmt.Fprintf(out, "  %-9s %s\n", "Added:", format.Date(c.CreatedAt))

	if opps := a.Opportunities.ByClient(id); len(opps) > 0 {
		_, _ = fmt.Fprintln(out, "\nOpportunities:")
		for _, o := range opps {
			_, _ = fmt.Fprintf(out, "  %s  %s  %s (%s)\n", o.ID, o.Title, format.Currency(o.Value), o.Stage.Label())
		}
	}
	if ints := a.Interactions.ByClient(id); len(ints) > 0 {
		_, _ = fmt.Fprintln(out, "\nRecent interactions:")
		for i, it := range ints {
			if i == 5 {
				break
			}
			_, _ = fmt.Fprintf(out, "  %s  %-7s %s\n", format.Date(it.Date), it.Type, format.Truncate(it.Notes, 50))
		}
	}
	if tasks := a.Tasks.ByClient(id); len(tasks) > 0 {
		_, _ = fmt.Fprintln(out, "\nTasks:")
		for _, t := range tasks {
			_, _ = fmt.Fprintf(out, "  %s %s  due %s\n", checkbox(t.Completed), t.Title, format.Date(t.DueDate))
		}
	}
	return nil
}

// UpdateClientCommand updates an existing client. Only flags given change.
func UpdateClientCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("update-client", flag.ExitOnError)
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	company := fs.String("company", "", "Company name")
	position := fs.String("position", "", "Job title")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	address := fs.String("address", "", "Postal address")
	status := fs.String("status", "", "Status (lead, prospect, customer, inactive)")
	notes := fs.String("notes", "", "Notes about the client")
	_ = fs.Parse(args)

	id, err := requireID(fs, "client")
	if err != nil {
		return err
	}

	set := setFlags(fs)
	var patch models.ClientPatch
	str := func(name string, v *string) *string {
		if set[name] {
			return v
		}
		return nil
	}
	patch.FirstName = str("first", first)
	patch.LastName = str("last", last)
	patch.Company = str("company", company)
	patch.Position = str("position", position)
	patch.Email = str("email", email)
	patch.Phone = str("phone", phone)
	patch.Address = str("address", address)
	patch.Notes = str("notes", notes)
	if set["status"] {
		st, err := models.ParseClientStatus(*status)
		if err != nil {
			return err
		}
		patch.Status = &st
	}

	if err := a.Clients.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	c, _ := a.Clients.Get(id)
	_, _ = fmt.Fprintf(out, "✓ Client updated: %s (ID: %s)\n", c.FullName(), id)
	return nil
}

// DeleteClientCommand deletes a client
func DeleteClientCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-client", flag.ExitOnError)
	_ = fs.Parse(args)

	id, err := requireID(fs, "client")
	if err != nil {
		return err
	}

	if err := a.Clients.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Client deleted: %s\n", id)
	return nil
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}
