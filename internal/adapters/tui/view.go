package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/bnema/keepster-cli/internal/domain"
)

func renderReview(m model) string {
	s := m.styles
	state := m.state

	lines := []string{
		s.title.Render("keepster review"),
		s.header.Render(fmt.Sprintf(
			"kept %d | deleted %d | queued %d | %s",
			state.KeptCount, state.DeletedCount, len(state.Queue),
			domain.FormatDuration(state.Elapsed(m.now)),
		)),
	}

	switch {
	case state.ScanningMembership:
		lines = append(lines, s.empty.Render(m.spinner.View()+" Scanning collections..."))
	case state.Error != "" && len(state.Queue) == 0:
		lines = append(lines, s.warning.Render(state.Error), s.hint.Render("r to retry, q to finish"))
	case len(state.Queue) == 0 && state.Loading:
		lines = append(lines, s.empty.Render(m.spinner.View()+" Loading photos..."))
	case len(state.Queue) == 0:
		lines = append(lines, s.empty.Render("All caught up. Press q to finish."))
	default:
		head, _ := state.Head()
		lines = append(lines, s.card.Render(renderItem(head, m.notes.duplicateCount(head.ID), s)))
		if state.Loading {
			lines = append(lines, s.hint.Render(m.spinner.View()+" fetching more"))
		}
		if state.Error != "" {
			lines = append(lines, s.warning.Render(state.Error+" (r to retry)"))
		}
	}

	if action := state.LastAction; action != nil {
		lines = append(lines, s.undo.Render(fmt.Sprintf(
			"Deleting %s in %ds, u to undo",
			itemLabel(action.Item), int(action.Remaining(m.now).Seconds()),
		)))
	}
	if pending := len(state.PendingCommits); pending > 0 {
		lines = append(lines, s.hint.Render(fmt.Sprintf("%d deletes waiting for the next batch", pending)))
	}
	if m.flash != "" {
		lines = append(lines, s.detail.Render(m.flash))
	}

	lines = append(lines, "", s.hint.Render(helpLine(m)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderItem(item domain.Item, duplicates int, s styles) string {
	parts := []string{s.item.Render(itemLabel(item))}

	details := make([]string, 0, 3)
	if !item.CreatedAt.IsZero() {
		details = append(details, item.CreatedAt.Local().Format("02 Jan 2006 15:04"))
	}
	if item.Width > 0 && item.Height > 0 {
		details = append(details, fmt.Sprintf("%dx%d", item.Width, item.Height))
	}
	if item.SizeBytes > 0 {
		details = append(details, humanize.Bytes(uint64(item.SizeBytes)))
	}
	if len(details) > 0 {
		parts = append(parts, s.detail.Render(strings.Join(details, "  ")))
	}
	if item.Path != "" {
		parts = append(parts, s.hint.Render(item.Path))
	}
	if duplicates > 1 {
		parts = append(parts, s.duplicate.Render(fmt.Sprintf("possible duplicate (%d similar in queue)", duplicates)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func itemLabel(item domain.Item) string {
	if item.Filename != "" {
		return item.Filename
	}
	return string(item.ID)
}

func helpLine(m model) string {
	bindings := m.keys.help(m.opts.Collection != "")
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		desc := help.Desc
		if binding.Keys()[0] == "c" && m.opts.CollectionTitle != "" {
			desc = "keep in " + m.opts.CollectionTitle
		}
		parts = append(parts, help.Key+" "+desc)
	}
	return strings.Join(parts, "  ")
}
