// ABOUTME: Display formatting for amounts, dates, relative times, and call durations
// ABOUTME: Shared by the CLI, TUI, and MCP output so every surface renders values the same way
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/harperreed/clientbook/models"
)

const (
	DateLayout = "Jan 2, 2006"
	TimeLayout = "03:04 PM"
)

// RelativeCutoff is how far back Relative describes a time before falling back to the date.
const RelativeCutoff = 30 * 24 * time.Hour

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency renders whole dollars with grouping, e.g. "$12,500".
func Currency(amount int64) string {
	if amount < 0 {
		return printer.Sprintf("-$%d", -amount)
	}
	return printer.Sprintf("$%d", amount)
}

// Date renders epoch milliseconds as "Jan 2, 2006" in local time.
func Date(ms int64) string {
	return time.UnixMilli(ms).Format(DateLayout)
}

// Time renders epoch milliseconds as "03:04 PM" in local time.
func Time(ms int64) string {
	return time.UnixMilli(ms).Format(TimeLayout)
}

func DateTime(ms int64) string {
	return Date(ms) + " at " + Time(ms)
}

// OptionalDate renders a nil date as "-".
func OptionalDate(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return Date(*ms)
}

// Relative describes ms relative to now ("3 days ago", "2 hours from now").
// Times more than RelativeCutoff in the past use Date.
func Relative(ms int64, now time.Time) string {
	t := time.UnixMilli(ms)
	diff := now.Sub(t)
	if diff > RelativeCutoff {
		return Date(ms)
	}
	if diff >= 0 && diff < time.Minute {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Duration renders a call length as "m:ss".
func Duration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Minutes renders an interaction duration, "-" when unset.
func Minutes(m *int) string {
	if m == nil {
		return "-"
	}
	return fmt.Sprintf("%d min", *m)
}

// Probability renders a win chance, falling back to the stage default.
func Probability(o models.Opportunity) string {
	p := models.DefaultProbability(o.Stage)
	if o.Probability != nil {
		p = *o.Probability
	}
	return fmt.Sprintf("%d%%", p)
}

// Truncate shortens s to max runes with a trailing ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
