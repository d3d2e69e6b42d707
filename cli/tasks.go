// ABOUTME: Task CLI commands
// ABOUTME: Adds, lists, toggles, updates, and deletes follow-up tasks
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

// AddTaskCommand adds a new task
func AddTaskCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-task", flag.ExitOnError)
	title := fs.String("title", "", "Task title (required)")
	description := fs.String("description", "", "Description")
	clientID := fs.String("client", "", "Client ID")
	oppID := fs.String("opportunity", "", "Opportunity ID")
	due := fs.String("due", "", "Due date (default: tomorrow)")
	priority := fs.String("priority", "medium", "Priority (low, medium, high)")
	_ = fs.Parse(args)

	if *title == "" {
		return fmt.Errorf("--title is required")
	}
	p, err := models.ParsePriority(*priority)
	if err != nil {
		return err
	}
	dueAt := time.Now().Add(24 * time.Hour).UnixMilli()
	if *due != "" {
		if dueAt, err = parseDate(*due); err != nil {
			return err
		}
	}

	id, err := a.Tasks.Add(ctx, models.TaskInput{
		Title:         *title,
		Description:   *description,
		ClientID:      *clientID,
		OpportunityID: *oppID,
		DueDate:       dueAt,
		Priority:      p,
	})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Task created: %s (ID: %s), due %s\n", *title, id, format.Date(dueAt))
	return nil
}

// ListTasksCommand lists tasks. By default it shows overdue tasks followed
// by those due within the next week.
func ListTasksCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list-tasks", flag.ExitOnError)
	clientID := fs.String("client", "", "Filter by client ID")
	oppID := fs.String("opportunity", "", "Filter by opportunity ID")
	overdue := fs.Bool("overdue", false, "Only overdue tasks")
	days := fs.Int("days", 7, "Upcoming window in days")
	all := fs.Bool("all", false, "Every task, including completed")
	_ = fs.Parse(args)

	var tasks []models.Task
	switch {
	case *clientID != "":
		tasks = a.Tasks.ByClient(*clientID)
	case *oppID != "":
		tasks = a.Tasks.ByOpportunity(*oppID)
	case *all:
		tasks = a.Tasks.All()
	case *overdue:
		tasks = a.Tasks.Overdue()
	default:
		tasks = append(a.Tasks.Overdue(), a.Tasks.Upcoming(*days)...)
	}

	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(out, "No tasks found")
		return nil
	}

	now := time.Now().UnixMilli()
	w := newTable("ID", "DONE", "TITLE", "DUE", "PRIORITY", "CLIENT")
	for _, t := range tasks {
		due := format.Date(t.DueDate)
		if t.IsOverdue(now) {
			due += " (overdue)"
		}
		clientName := ""
		if c, ok := a.Clients.Get(t.ClientID); ok {
			clientName = c.FullName()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, checkbox(t.Completed), t.Title, due, t.Priority, clientName)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nTotal: %d task(s)\n", len(tasks))
	return nil
}

// ToggleTaskCommand flips a task between done and not done
func ToggleTaskCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("toggle-task", flag.ExitOnError)
	_ = fs.Parse(args)

	id, err := requireID(fs, "task")
	if err != nil {
		return err
	}

	if err := a.Tasks.ToggleCompletion(ctx, id); err != nil {
		return fmt.Errorf("failed to toggle task: %w", err)
	}

	t, _ := a.Tasks.Get(id)
	_, _ = fmt.Fprintf(out, "✓ %s %s\n", checkbox(t.Completed), t.Title)
	return nil
}

// UpdateTaskCommand updates a task. Only flags given change.
func UpdateTaskCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("update-task", flag.ExitOnError)
	title := fs.String("title", "", "Task title")
	description := fs.String("description", "", "Description")
	clientID := fs.String("client", "", "Client ID")
	oppID := fs.String("opportunity", "", "Opportunity ID")
	due := fs.String("due", "", "Due date")
	priority := fs.String("priority", "", "Priority (low, medium, high)")
	_ = fs.Parse(args)

	id, err := requireID(fs, "task")
	if err != nil {
		return err
	}

	set := setFlags(fs)
	var patch models.TaskPatch
	if set["title"] {
		patch.Title = title
	}
	if set["description"] {
		patch.Description = description
	}
	if set["client"] {
		patch.ClientID = clientID
	}
	if set["opportunity"] {
		patch.OpportunityID = oppID
	}
	if set["due"] {
		ms, err := parseDate(*due)
		if err != nil {
			return err
		}
		patch.DueDate = &ms
	}
	if set["priority"] {
		p, err := models.ParsePriority(*priority)
		if err != nil {
			return err
		}
		patch.Priority = &p
	}

	if err := a.Tasks.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	t, _ := a.Tasks.Get(id)
	_, _ = fmt.Fprintf(out, "✓ Task updated: %s, due %s\n", t.Title, format.Date(t.DueDate))
	return nil
}

// DeleteTaskCommand deletes a task
func DeleteTaskCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-task", flag.ExitOnError)
	_ = fs.Parse(args)

	id, err := requireID(fs, "task")
	if err != nil {
		return err
	}

	if err := a.Tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Task deleted: %s\n", id)
	return nil
}
