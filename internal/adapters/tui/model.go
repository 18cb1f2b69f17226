package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/keepster-cli/internal/application"
	"github.com/bnema/keepster-cli/internal/domain"
)

var ErrUnexpectedModel = errors.New("unexpected final review model type")

type Options struct {
	Input  io.Reader
	Output io.Writer
	// Target is the initial queue size; non-positive uses the engine default.
	Target int
	// Collection, when set, enables the keep-in-collection key.
	Collection      domain.CollectionID
	CollectionTitle string
	Analysis        *application.AnalysisService
	Now             func() time.Time
}

type (
	stateChangedMsg struct{}
	tickMsg         time.Time
	loadDoneMsg     struct{ err error }
	actionErrMsg    struct{ err error }
	finishedMsg     struct{ summary domain.SessionSummary }
)

// annotations is written by the analysis goroutine and read by View.
type annotations struct {
	mu         sync.Mutex
	duplicates map[domain.ItemID]int
}

func (a *annotations) set(result application.AnalysisResult) {
	dups := make(map[domain.ItemID]int)
	for _, group := range result.Duplicates {
		for _, item := range group.Items {
			dups[item.ID] = len(group.Items)
		}
	}
	a.mu.Lock()
	a.duplicates = dups
	a.mu.Unlock()
}

func (a *annotations) duplicateCount(id domain.ItemID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.duplicates[id]
}

type model struct {
	ctx     context.Context
	engine  Engine
	opts    Options
	keys    keyMap
	styles  styles
	spinner spinner.Model

	notify      chan struct{}
	unsubscribe func()
	notes       *annotations

	state     domain.SessionState
	now       time.Time
	flash     string
	summary   domain.SessionSummary
	finished  bool
	finishing bool
}

func newModel(ctx context.Context, engine Engine, opts Options) model {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	notify := make(chan struct{}, 1)
	unsubscribe := engine.Subscribe(func(domain.SessionState) {
		select {
		case notify <- struct{}{}:
		default:
		}
	})

	return model{
		ctx:    ctx,
		engine: engine,
		opts:   opts,
		keys:   newKeyMap(),
		styles: newStyles(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		notify:      notify,
		unsubscribe: unsubscribe,
		notes:       &annotations{},
		state:       engine.State(),
		now:         opts.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), m.waitForChange(), tick())
}

func (m model) load() tea.Cmd {
	return func() tea.Msg {
		return loadDoneMsg{err: m.engine.LoadInitial(m.ctx, m.opts.Target)}
	}
}

func (m model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.notify:
			return stateChangedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case stateChangedMsg:
		m.state = m.engine.State()
		m.analyze()
		return m, m.waitForChange()
	case tickMsg:
		m.now = m.opts.Now()
		return m, tick()
	case tea.ResumeMsg:
		m.engine.OnResume()
		m.state = m.engine.State()
		return m, nil
	case loadDoneMsg:
		m.state = m.engine.State()
		m.analyze()
		return m, nil
	case actionErrMsg:
		m.flash = msg.err.Error()
		m.state = m.engine.State()
		return m, nil
	case finishedMsg:
		m.finished = true
		m.summary = msg.summary
		m.unsubscribe()
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.finishing {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.finishing = true
		return m, func() tea.Msg {
			return finishedMsg{summary: m.engine.Finish(m.ctx)}
		}
	case key.Matches(msg, m.keys.Undo):
		if item, ok := m.engine.Undo(); ok {
			m.flash = fmt.Sprintf("Restored %s", itemLabel(item))
		} else {
			m.flash = "Nothing to undo"
		}
	case key.Matches(msg, m.keys.Retry):
		if m.state.Error == "" || m.state.Loading {
			return m, nil
		}
		m.flash = ""
		return m, m.load()
	case key.Matches(msg, m.keys.Keep):
		return m.decide(m.engine.MarkKept)
	case key.Matches(msg, m.keys.Delete):
		return m.decide(m.engine.MarkDeleted)
	case key.Matches(msg, m.keys.Skip):
		return m.decide(m.engine.Skip)
	case key.Matches(msg, m.keys.Collection):
		if m.opts.Collection == "" {
			return m, nil
		}
		item, ok := m.state.Head()
		if !ok {
			return m, nil
		}
		m.flash = ""
		return m, func() tea.Msg {
			if err := m.engine.KeepInCollection(m.ctx, item, m.opts.Collection); err != nil {
				return actionErrMsg{err: err}
			}
			return nil
		}
	default:
		return m, nil
	}

	m.state = m.engine.State()
	return m, nil
}

func (m model) decide(apply func(domain.Item) error) (tea.Model, tea.Cmd) {
	item, ok := m.state.Head()
	if !ok {
		return m, nil
	}
	m.flash = ""
	if err := apply(item); err != nil {
		m.flash = err.Error()
	}
	m.state = m.engine.State()
	return m, nil
}

func (m model) analyze() {
	if m.opts.Analysis == nil || len(m.state.Queue) == 0 {
		return
	}
	notes := m.notes
	notify := m.notify
	m.opts.Analysis.Start(m.state.Queue, func(result application.AnalysisResult) {
		notes.set(result)
		select {
		case notify <- struct{}{}:
		default:
		}
	})
}

func (m model) View() string {
	if m.finished {
		return ""
	}
	return renderReview(m)
}

// Run hosts an interactive review until the user finishes it and returns the
// session summary.
func Run(ctx context.Context, engine Engine, opts Options) (domain.SessionSummary, error) {
	programOpts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	p := tea.NewProgram(newModel(ctx, engine, opts), programOpts...)
	finalModel, err := p.Run()
	if err != nil {
		return domain.SessionSummary{}, err
	}

	result, ok := finalModel.(model)
	if !ok {
		return domain.SessionSummary{}, ErrUnexpectedModel
	}
	if !result.finished {
		result.unsubscribe()
		return engine.Finish(context.WithoutCancel(ctx)), nil
	}
	return result.summary, nil
}
