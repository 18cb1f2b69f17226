package summary

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/bnema/keepster-cli/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// Title overrides the heading, e.g. for the end-of-review screen.
	Title string
	// PendingFailures is the number of delete batches waiting in the dead letter store.
	PendingFailures int
}

const barWidth = 24

func renderView(summaries []domain.SessionSummary, opts RenderOptions, s styles) string {
	title := opts.Title
	if title == "" {
		title = "Review Sessions"
	}
	lines := []string{
		s.title.Render(title),
		s.header.Render(fmt.Sprintf("sessions: %d", len(summaries))),
	}

	if opts.PendingFailures > 0 {
		lines = append(lines, s.warning.Render(fmt.Sprintf(
			"%d delete %s failed; run `keepster deadletter retry`",
			opts.PendingFailures, plural(opts.PendingFailures, "batch", "batches"),
		)))
	}

	if len(summaries) == 0 {
		lines = append(lines, s.empty.Render("No sessions recorded yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, summary := range summaries {
		lines = append(lines, s.section.Render(renderSession(summary, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(summary domain.SessionSummary, opts RenderOptions, s styles) string {
	parts := []string{
		s.session.Render(sessionTitle(summary, opts.Now)),
		s.detail.Render(fmt.Sprintf("time: %s", domain.FormatDuration(summary.Duration()))),
		countsLine(summary, s),
	}

	if rate := reviewRate(summary); rate != "" {
		parts = append(parts, s.detail.Render(rate))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func sessionTitle(summary domain.SessionSummary, now time.Time) string {
	id := summary.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if summary.EndedAt.IsZero() {
		return fmt.Sprintf("Session %s", id)
	}
	if now.IsZero() {
		return fmt.Sprintf("Session %s (%s)", id, summary.EndedAt.Format("15:04 on 02 Jan"))
	}
	return fmt.Sprintf("Session %s (%s)", id, humanize.RelTime(summary.EndedAt, now, "ago", "from now"))
}

func countsLine(summary domain.SessionSummary, s styles) string {
	reviewed := summary.KeptCount + summary.DeletedCount
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.countKey.Render("reviewed:"),
		" ",
		renderSplitBar(summary.KeptCount, summary.DeletedCount, barWidth, s),
		" ",
		s.kept.Render(fmt.Sprintf("%s kept", humanize.Comma(int64(summary.KeptCount)))),
		s.detail.Render(" / "),
		s.deleted.Render(fmt.Sprintf("%s deleted", humanize.Comma(int64(summary.DeletedCount)))),
		s.detail.Render(fmt.Sprintf(" (%s total)", humanize.Comma(int64(reviewed)))),
	)
}

// renderSplitBar shows the kept share in green and the deleted share in red.
func renderSplitBar(kept, deleted, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	total := kept + deleted
	var keptCells, deletedCells int
	if total > 0 {
		keptCells = int(math.Round(float64(width) * float64(kept) / float64(total)))
		keptCells = min(max(keptCells, 0), width)
		deletedCells = width - keptCells
	}
	emptyCells := width - keptCells - deletedCells

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.kept.Render(strings.Repeat("=", keptCells)),
		s.deleted.Render(strings.Repeat("x", deletedCells)),
		s.barEmpty.Render(strings.Repeat("-", emptyCells)),
		s.barBracket.Render("]"),
	)
}

func reviewRate(summary domain.SessionSummary) string {
	reviewed := summary.KeptCount + summary.DeletedCount
	minutes := summary.Duration().Minutes()
	if reviewed == 0 || minutes < 1 {
		return ""
	}
	return fmt.Sprintf("pace: %.1f photos/min", float64(reviewed)/minutes)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
