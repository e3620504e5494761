// Package output provides terminal output utilities for wpbatch:
// ASCII tables for batch results, active batches and the update log,
// plus progress bars and spinners for long-running operations.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/wpbatch/internal/batch"
	"github.com/blackwell-systems/wpbatch/internal/manifest"
	"github.com/blackwell-systems/wpbatch/internal/store"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
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

// statusColor maps a per-item status to its display color.
func statusColor(status batch.Status) string {
	switch status {
	case batch.StatusSuccess:
		return colorGreen
	case batch.StatusFailed:
		return colorRed
	case batch.StatusIncompatible:
		return colorYellow
	default:
		return colorGray
	}
}

// RenderResultTable renders per-item batch results in input order.
func RenderResultTable(results []batch.ProcessResult) string {
	if len(results) == 0 {
		return "No results.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %-8s %-10s %-10s %-13s %s\n",
		"Plugin", "Action", "From", "To", "Status", "Notes"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, r := range results {
		status := string(r.Status)
		if r.RolledBack {
			status += " ↩"
		}

		note := ""
		if len(r.Messages) > 0 {
			note = r.Messages[len(r.Messages)-1]
		}

		sb.WriteString(fmt.Sprintf("%-20s %-8s %-10s %-10s %-13s %s\n",
			truncate(r.Slug, 20),
			r.Action,
			orDash(r.FromVersion),
			orDash(r.ToVersion),
			colorize(statusColor(r.Status), fmt.Sprintf("%-13s", status)),
			truncate(note, 48)))
	}

	return sb.String()
}

// RenderBatchTable renders active (rollback-eligible) batches.
func RenderBatchTable(manifests []*store.BatchManifest) string {
	if len(manifests) == 0 {
		return "No active batches.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-38s %-10s %-9s %-8s %-8s %-8s %s\n",
		"Batch", "User", "Installed", "Updated", "Failed", "Age", "Expires"))
	sb.WriteString(strings.Repeat("─", 94))
	sb.WriteString("\n")

	for _, m := range manifests {
		sb.WriteString(fmt.Sprintf("%-38s %-10s %-9d %-8d %-8d %-8s %s\n",
			truncate(m.BatchID, 38),
			truncate(orDash(m.UserID), 10),
			m.Summary.Installed,
			m.Summary.Updated,
			m.Summary.Failed,
			formatRelativeTime(m.CreatedAt),
			formatRelativeTime(m.ExpiresAt)))
	}

	return sb.String()
}

// RenderRollbackTable renders the per-row outcome of a batch rollback.
func RenderRollbackTable(rows []manifest.RollbackRow) string {
	if len(rows) == 0 {
		return "No rows.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %-8s %-10s %s\n", "Plugin", "Action", "Status", "Notes"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%-20s %-8s %-10s %s\n",
			truncate(r.Slug, 20),
			r.Action,
			colorize(statusColor(batch.Status(r.Status)), fmt.Sprintf("%-10s", r.Status)),
			truncate(r.Message, 44)))
	}

	return sb.String()
}

// RenderLogTable renders update-log entries, newest first.
func RenderLogTable(entries []*store.LogEntry) string {
	if len(entries) == 0 {
		return "No log entries.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-14s %-16s %-10s %-13s %s\n",
		"Time", "Action", "Plugin", "User", "Status", "Message"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, e := range entries {
		action := e.Action
		if e.IsDryRun {
			action += " (dry)"
		}

		sb.WriteString(fmt.Sprintf("%-16s %-14s %-16s %-10s %-13s %s\n",
			e.Timestamp.Format("2006-01-02 15:04"),
			truncate(action, 14),
			truncate(orDash(e.Slug), 16),
			truncate(orDash(e.UserID), 10),
			colorize(statusColor(batch.Status(e.Status)), fmt.Sprintf("%-13s", e.Status)),
			truncate(e.Message, 40)))
	}

	return sb.String()
}

// truncate shortens s to max runes, ellipsizing when needed.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

// orDash substitutes a dash for empty values so columns stay aligned.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatRelativeTime renders a timestamp relative to now ("2h ago",
// "in 21h", "now").
func formatRelativeTime(t time.Time) string {
	d := time.Until(t)

	future := d > 0
	if !future {
		d = -d
	}

	var span string
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		span = fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		span = fmt.Sprintf("%dh", int(d.Hours()))
	default:
		span = fmt.Sprintf("%dd", int(d.Hours()/24))
	}

	if future {
		return "in " + span
	}
	return span + " ago"
}
