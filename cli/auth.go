// ABOUTME: Account CLI commands for the remote backend
// ABOUTME: Register, login with a hidden password prompt, logout, whoami, and password reset
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/auth"
	"github.com/harperreed/clientbook/format"
)

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(r *bufio.Reader, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if in != os.Stdin || !term.IsTerminal(fd) {
		return prompt(r, label)
	}
	_, _ = fmt.Fprint(out, label)
	pw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func needAccounts(a *app.App) error {
	if a.Auth == nil {
		return fmt.Errorf("%w (set CLIENTBOOK_BACKEND=remote)", app.ErrLocalBackend)
	}
	return nil
}

// RegisterCommand creates an account and signs in
func RegisterCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name")
	_ = fs.Parse(args)

	if err := needAccounts(a); err != nil {
		return err
	}

	r := bufio.NewReader(in)
	var err error
	if *email == "" {
		if *email, err = prompt(r, "Email: "); err != nil {
			return err
		}
	}
	if *name == "" {
		if *name, err = prompt(r, "Name: "); err != nil {
			return err
		}
	}
	pw, err := readPassword(r, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword(r, "Confirm password: ")
	if err != nil {
		return err
	}
	if pw != confirm {
		return errors.New("passwords do not match")
	}

	u, err := a.Register(ctx, *email, pw, *name)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Registered and signed in as %s <%s>\n", u.DisplayName, u.Email)
	return nil
}

// LoginCommand signs in and saves the session
func LoginCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	_ = fs.Parse(args)

	if err := needAccounts(a); err != nil {
		return err
	}

	r := bufio.NewReader(in)
	var err error
	if *email == "" {
		if *email, err = prompt(r, "Email: "); err != nil {
			return err
		}
	}
	pw, err := readPassword(r, "Password: ")
	if err != nil {
		return err
	}

	u, err := a.Login(ctx, *email, pw)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Signed in as %s <%s>\n", u.DisplayName, u.Email)
	_, _ = fmt.Fprintf(out, "  %d client(s), %d opportunit(ies), %d task(s)\n",
		a.Clients.Len(), a.Opportunities.Len(), a.Tasks.Len())
	return nil
}

// LogoutCommand signs out and forgets the saved session
func LogoutCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := needAccounts(a); err != nil {
		return err
	}
	if err := a.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	_, _ = fmt.Fprintln(out, "✓ Signed out")
	return nil
}

// WhoamiCommand shows the signed-in user
func WhoamiCommand(_ context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	_ = fs.Parse(args)

	if a.Auth == nil {
		_, _ = fmt.Fprintln(out, "Local backend: no account needed")
		return nil
	}
	u, ok := a.Auth.CurrentUser()
	if !ok {
		_, _ = fmt.Fprintln(out, "Not signed in. Run 'clientbook login'.")
		return nil
	}

	_, _ = fmt.Fprintf(out, "%s <%s>\n", u.DisplayName, u.Email)
	_, _ = fmt.Fprintf(out, "ID:      %s\n", u.ID)
	_, _ = fmt.Fprintf(out, "Member:  since %s\n", format.Date(u.CreatedAt.UnixMilli()))
	return nil
}

// ResetPasswordCommand issues a reset token and prints it
func ResetPasswordCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	email := fs.String("email", "", "Account email (required)")
	_ = fs.Parse(args)

	if err := needAccounts(a); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	a.Auth.SetNotifier(auth.WriterNotifier{W: out})
	if err := a.Auth.ResetPassword(ctx, *email); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	_, _ = fmt.Fprintln(out, "\nRun 'clientbook confirm-reset --token <token>' to choose a new password.")
	return nil
}

// ConfirmResetCommand sets a new password with a reset token
func ConfirmResetCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("confirm-reset", flag.ExitOnError)
	token := fs.String("token", "", "Reset token (required)")
	_ = fs.Parse(args)

	if err := needAccounts(a); err != nil {
		return err
	}
	if *token == "" {
		return fmt.Errorf("--token is required")
	}

	pw, err := readPassword(bufio.NewReader(in), "New password: ")
	if err != nil {
		return err
	}
	if err := a.Auth.ConfirmReset(ctx, *token, pw); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	_, _ = fmt.Fprintln(out, "✓ Password changed. Sign in with 'clientbook login'.")
	return nil
}
