// ABOUTME: Charm sync CLI commands for the local backend
// ABOUTME: Link, status, manual sync, and wipe; SSH key auth, so no login is needed
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/harperreed/clientbook/app"
)

func needCharm(a *app.App) error {
	switch {
	case a.Charm != nil:
		return nil
	case a.Auth != nil:
		return fmt.Errorf("charm sync is only available with the local backend; the remote backend syncs live")
	default:
		return fmt.Errorf("sync unavailable: this store is not backed by Charm")
	}
}

// SyncLinkCommand links this device to a Charm account. Charm uses SSH
// keys, so linking is a first sync.
func SyncLinkCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("sync link", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := needCharm(a); err != nil {
		return err
	}
	cfg := a.Charm.Config()
	_, _ = fmt.Fprintf(out, "Linking to Charm Cloud (%s)...\n\n", cfg.Host)
	_, _ = fmt.Fprintln(out, "Charm uses SSH key authentication.")

	if err := a.Charm.Sync(); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}

	if id, err := a.Charm.ID(); err != nil {
		_, _ = fmt.Fprintln(out, "✓ Device linked (ID unavailable)")
	} else {
		_, _ = fmt.Fprintf(out, "✓ Linked to account: %s\n", id)
	}
	_, _ = fmt.Fprintf(out, "✓ Auto-sync: %v\n", cfg.AutoSync)
	return nil
}

// SyncStatusCommand shows sync configuration and how fresh the local data is.
func SyncStatusCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("sync status", flag.ExitOnError)
	_ = fs.Parse(args)

	if a.Charm == nil {
		if a.Auth == nil {
			return needCharm(a)
		}
		_, _ = fmt.Fprintln(out, "Remote backend: changes sync live while signed in.")
		if a.Sync != nil && a.Sync.Active() {
			_, _ = fmt.Fprintln(out, "Live sync: active")
		}
		return nil
	}

	cfg := a.Charm.Config()
	_, _ = fmt.Fprintln(out, "Charm Sync Status")
	_, _ = fmt.Fprintln(out, "─────────────────")
	_, _ = fmt.Fprintf(out, "Server:    %s\n", cfg.Host)
	_, _ = fmt.Fprintf(out, "Auto-sync: %v\n", cfg.AutoSync)

	if last := a.Charm.LastSync(); last.IsZero() {
		_, _ = fmt.Fprintln(out, "Last sync: never this session")
	} else {
		_, _ = fmt.Fprintf(out, "Last sync: %s\n", humanize.Time(last))
	}
	if a.Charm.Stale(time.Now()) {
		_, _ = fmt.Fprintln(out, "Data may be stale. Run 'clientbook sync now'.")
	}

	if id, err := a.Charm.ID(); err != nil {
		_, _ = fmt.Fprintln(out, "\nStatus: Not connected")
	} else {
		_, _ = fmt.Fprintln(out, "\nStatus: Connected to Charm Cloud")
		_, _ = fmt.Fprintf(out, "ID:        %s\n", id)
	}

	if keys, err := a.Charm.Keys(); err == nil {
		_, _ = fmt.Fprintf(out, "Keys:      %d\n", len(keys))
	}
	_, _ = fmt.Fprintf(out, "Records:   %d client(s), %d opportunit(ies), %d interaction(s), %d task(s)\n",
		a.Clients.Len(), a.Opportunities.Len(), a.Interactions.Len(), a.Tasks.Len())
	return nil
}

// SyncNowCommand pulls and pushes changes, then reloads the stores.
func SyncNowCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("sync now", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := needCharm(a); err != nil {
		return err
	}
	if err := a.Charm.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if err := a.Load(ctx); err != nil {
		return fmt.Errorf("reload after sync: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Synced: %d client(s), %d opportunit(ies), %d interaction(s), %d task(s)\n",
		a.Clients.Len(), a.Opportunities.Len(), a.Interactions.Len(), a.Tasks.Len())
	return nil
}

// SyncWipeCommand deletes every local record.
func SyncWipeCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("sync wipe", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	_ = fs.Parse(args)

	if err := needCharm(a); err != nil {
		return err
	}
	if !*confirm {
		_, _ = fmt.Fprintln(out, "WARNING: This will delete ALL local data!")
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "To confirm, run:")
		_, _ = fmt.Fprintln(out, "  clientbook sync wipe --confirm")
		return nil
	}

	if err := a.Charm.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}

	_, _ = fmt.Fprintln(out, "✓ All data wiped")
	_, _ = fmt.Fprintln(out, "Your Charm account is still linked.")
	return nil
}
