package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	item      lipgloss.Style
	detail    lipgloss.Style
	warning   lipgloss.Style
	undo      lipgloss.Style
	hint      lipgloss.Style
	card      lipgloss.Style
	empty     lipgloss.Style
	duplicate lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		item:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		undo:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		hint:      lipgloss.NewStyle().Faint(true),
		card:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1).MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true).MarginTop(1),
		duplicate: lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
	}
}
