package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/bnema/keepster-cli/internal/adapters/library/sqlite"
	"github.com/bnema/keepster-cli/internal/domain"
)

// progressInterval bounds how often importer totals reach the renderer.
const progressInterval = 100 * time.Millisecond

type dirImporter interface {
	ImportDir(ctx context.Context, root string, progress sqlite.ImportProgress) (sqlite.ImportResult, error)
}

type (
	importProgressMsg struct{ totals sqlite.ImportResult }
	importDoneMsg     struct {
		result sqlite.ImportResult
		err    error
	}
)

var (
	importLabelStyle  = lipgloss.NewStyle().Bold(true)
	importTotalsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// importModel renders running import totals on stderr.
type importModel struct {
	spinner spinner.Model
	root    string
	run     tea.Cmd
	now     func() time.Time
	started time.Time

	totals sqlite.ImportResult
	result sqlite.ImportResult
	err    error
	done   bool
}

func newImportModel(root string, run tea.Cmd, now func() time.Time) importModel {
	return importModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		root:    root,
		run:     run,
		now:     now,
		started: now(),
	}
}

func (m importModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m importModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case importProgressMsg:
		m.totals = msg.totals
	case importDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m importModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(importLabelStyle.Render("Importing photos from " + m.root))
	if m.totals.Scanned > 0 {
		b.WriteString("  ")
		b.WriteString(importTotalsStyle.Render(importTotals(m.totals, m.now().Sub(m.started))))
	}
	return b.String()
}

func importTotals(totals sqlite.ImportResult, elapsed time.Duration) string {
	parts := []string{
		humanize.Comma(int64(totals.Scanned)) + " scanned",
		humanize.Comma(int64(totals.Added)) + " new",
	}
	if totals.Invalid > 0 {
		parts = append(parts, humanize.Comma(int64(totals.Invalid))+" unreadable")
	}
	parts = append(parts, domain.FormatDuration(elapsed))
	return strings.Join(parts, " · ")
}

// runImport imports root while rendering progress to output. Progress
// updates are sampled so large trees do not flood the renderer.
func runImport(ctx context.Context, output io.Writer, root string, importer dirImporter) (sqlite.ImportResult, error) {
	var (
		program *tea.Program
		sample  = rate.Sometimes{First: 1, Interval: progressInterval}
	)
	run := func() tea.Msg {
		result, err := importer.ImportDir(ctx, root, func(totals sqlite.ImportResult) {
			sample.Do(func() { program.Send(importProgressMsg{totals: totals}) })
		})
		return importDoneMsg{result: result, err: err}
	}

	program = tea.NewProgram(
		newImportModel(root, run, time.Now),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)
	final, err := program.Run()
	if err != nil {
		return sqlite.ImportResult{}, err
	}

	model, ok := final.(importModel)
	if !ok {
		return sqlite.ImportResult{}, fmt.Errorf("unexpected import model type %T", final)
	}
	return model.result, model.err
}
