// Package output provides terminal output utilities for rlztrack.
//
// This package includes:
//   - Table rendering for RLZ values, event ledgers and per-product ping status
//   - A spinner for pings in flight
//   - Human-readable formatting for ping times
//
// Tables use plain ASCII columns and ANSI colour only when stdout is a TTY.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RlzRow is one access point's stored value.
type RlzRow struct {
	Point string
	Label string
	Value string
}

// RenderRlzTable renders stored RLZ values sorted by access point code.
func RenderRlzTable(rows []RlzRow) string {
	if len(rows) == 0 {
		return "No RLZ values stored.\n"
	}

	sorted := make([]RlzRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Point < sorted[j].Point
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %-28s %s\n", "Point", "Access Point", "Value"))
	sb.WriteString(strings.Repeat("─", 56))
	sb.WriteString("\n")
	for _, r := range sorted {
		sb.WriteString(fmt.Sprintf("%-6s %-28s %s\n", r.Point, truncate(r.Label, 28), r.Value))
	}
	return sb.String()
}

// EventRow is one ledger entry.
type EventRow struct {
	Token    string
	Point    string
	Event    string
	Stateful bool
}

// RenderEventTable renders pending and stateful events. Pending events are
// listed first.
func RenderEventTable(rows []EventRow) string {
	if len(rows) == 0 {
		return "No events recorded.\n"
	}

	sorted := make([]EventRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Stateful != sorted[j].Stateful {
			return !sorted[i].Stateful
		}
		return sorted[i].Token < sorted[j].Token
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %-28s %-14s %s\n", "Token", "Access Point", "Event", "State"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")
	for _, r := range sorted {
		state := colorize(colorYellow, "pending")
		if r.Stateful {
			state = colorize(colorGray, "reported")
		}
		sb.WriteString(fmt.Sprintf("%-6s %-28s %-14s %s\n", r.Token, truncate(r.Point, 28), r.Event, state))
	}
	return sb.String()
}

// ProductStatus summarizes one product for the status command.
type ProductStatus struct {
	Product  string
	LastPing time.Time
	Pending  int
	Stateful int
	NextDue  time.Time
}

// RenderStatusTable renders per-product ping state relative to now.
func RenderStatusTable(rows []ProductStatus, now time.Time) string {
	if len(rows) == 0 {
		return "No products configured.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-18s %-16s %-8s %-9s %s\n", "Product", "Last Ping", "Pending", "Stateful", "Next Ping"))
	sb.WriteString(strings.Repeat("─", 70))
	sb.WriteString("\n")
	for _, r := range rows {
		next := formatNextPing(r.NextDue, now)
		sb.WriteString(fmt.Sprintf("%-18s %-16s %-8d %-9d %s\n",
			truncate(r.Product, 18),
			formatRelativeTime(r.LastPing, now),
			r.Pending,
			r.Stateful,
			next))
	}
	return sb.String()
}

func formatNextPing(due, now time.Time) string {
	if due.IsZero() || !due.After(now) {
		return colorize(colorGreen, "due now")
	}
	return humanize.RelTime(due, now, "ago", "from now")
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
