// ABOUTME: Shared helpers for CLI commands
// ABOUTME: Output writer, tables, set-flag detection, and date flag parsing
package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// out receives command output. Tests swap it for a buffer.
var out io.Writer = os.Stdout

// in supplies prompts and the log-call stop signal.
var in io.Reader = os.Stdin

// ErrUsage marks a command invoked with missing arguments.
var ErrUsage = errors.New("usage")

func newTable(headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	_, _ = fmt.Fprintln(w, strings.Join(dashes, "\t"))
	return w
}

// setFlags returns the names of flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// requireID returns the single positional id argument.
func requireID(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() < 1 {
		return "", fmt.Errorf("%w: %s ID required", ErrUsage, what)
	}
	return fs.Arg(0), nil
}

const dateLayout = "2006-01-02"

// parseDate accepts "2006-01-02" or "2006-01-02 15:04" in local time.
func parseDate(s string) (int64, error) {
	for _, layout := range []string{dateLayout + " 15:04", dateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("invalid date %q (use YYYY-MM-DD or \"YYYY-MM-DD HH:MM\")", s)
}

func optionalDate(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	ms, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &ms, nil
}

func prompt(r *bufio.Reader, label string) (string, error) {
	_, _ = fmt.Fprint(out, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}
