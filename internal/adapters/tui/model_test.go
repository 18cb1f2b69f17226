package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/keepster-cli/internal/domain"
)

type fakeEngine struct {
	mu          sync.Mutex
	state       domain.SessionState
	subscribers []func(domain.SessionState)
	calls       []string
	loadErr     error
	keepErr     error
	undoItem    *domain.Item
	resumed     int
}

func newFakeEngine(items ...domain.Item) *fakeEngine {
	return &fakeEngine{state: domain.SessionState{
		ID:        "s-1",
		Status:    domain.StatusRunning,
		Queue:     items,
		StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}}
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeEngine) popHead(id domain.ItemID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.state.Queue) > 0 && f.state.Queue[0].ID == id {
		f.state.Queue = f.state.Queue[1:]
	}
}

func (f *fakeEngine) State() domain.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

func (f *fakeEngine) Subscribe(fn func(domain.SessionState)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers = append(f.subscribers, fn)
	return func() { f.record("unsubscribe") }
}

func (f *fakeEngine) LoadInitial(context.Context, int) error {
	f.record("load")
	if f.loadErr != nil {
		f.mu.Lock()
		f.state.Error = "Unable to load photos. Please try again."
		f.mu.Unlock()
	}
	return f.loadErr
}

func (f *fakeEngine) MarkKept(item domain.Item) error {
	f.record("keep:" + string(item.ID))
	f.popHead(item.ID)
	return nil
}

func (f *fakeEngine) MarkDeleted(item domain.Item) error {
	f.record("delete:" + string(item.ID))
	f.popHead(item.ID)
	f.mu.Lock()
	f.state.LastAction = &domain.LastAction{Kind: domain.ActionDelete, Item: item, ExpiresAt: f.state.StartedAt.Add(time.Minute)}
	f.undoItem = &item
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Skip(item domain.Item) error {
	f.record("skip:" + string(item.ID))
	f.popHead(item.ID)
	return nil
}

func (f *fakeEngine) Undo() (domain.Item, bool) {
	f.record("undo")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.undoItem == nil {
		return domain.Item{}, false
	}
	item := *f.undoItem
	f.undoItem = nil
	f.state.LastAction = nil
	f.state.Queue = append([]domain.Item{item}, f.state.Queue...)
	return item, true
}

func (f *fakeEngine) KeepInCollection(_ context.Context, item domain.Item, collection domain.CollectionID) error {
	f.record("collect:" + string(item.ID) + ":" + string(collection))
	if f.keepErr != nil {
		return f.keepErr
	}
	f.popHead(item.ID)
	return nil
}

func (f *fakeEngine) OnResume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
}

func (f *fakeEngine) Finish(context.Context) domain.SessionSummary {
	f.record("finish")
	return domain.SessionSummary{ID: "s-1", KeptCount: 1}
}

func (f *fakeEngine) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyPress(k))
		var ok bool
		m, ok = next.(model)
		require.True(t, ok)
	}
	return m
}

func testModel(engine *fakeEngine, opts Options) model {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 30, 0, time.UTC) }
	}
	return newModel(context.Background(), engine, opts)
}

func TestReviewKeysDriveEngine(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine(
		domain.Item{ID: "a", Filename: "a.jpg"},
		domain.Item{ID: "b", Filename: "b.jpg"},
		domain.Item{ID: "c", Filename: "c.jpg"},
	)
	m := testModel(engine, Options{})

	m = press(t, m, "k", "d", "s")

	assert.Equal(t, []string{"keep:a", "delete:b", "skip:c"}, engine.callLog())
	assert.Empty(t, m.state.Queue)
	assert.Contains(t, m.View(), "All caught up")
	assert.Contains(t, m.View(), "Deleting b.jpg in 30s, u to undo")
}

func TestReviewUndoRestoresItem(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine(domain.Item{ID: "a", Filename: "a.jpg"})
	m := testModel(engine, Options{})

	m = press(t, m, "d", "u")

	require.Len(t, m.state.Queue, 1)
	assert.Contains(t, m.View(), "Restored a.jpg")
	assert.Contains(t, m.View(), "a.jpg")

	m = press(t, m, "u")
	assert.Contains(t, m.View(), "Nothing to undo")
}

func TestReviewCollectionKeyRequiresCollection(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine(domain.Item{ID: "a"})
	m := press(t, testModel(engine, Options{}), "c")
	assert.Empty(t, engine.callLog())
	assert.NotContains(t, m.View(), "keep in")

	withCollection := testModel(engine, Options{Collection: "trips", CollectionTitle: "Trips"})
	assert.Contains(t, withCollection.View(), "c keep in Trips")

	_, cmd := withCollection.Update(keyPress("c"))
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.Equal(t, []string{"collect:a:trips"}, engine.callLog())
}

func TestReviewCollectionErrorIsShown(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine(domain.Item{ID: "a"})
	engine.keepErr = errors.New("collection not found")
	m := testModel(engine, Options{Collection: "gone"})

	_, cmd := m.Update(keyPress("c"))
	msg := cmd()
	next, _ := m.Update(msg)

	assert.Contains(t, next.(model).View(), "collection not found")
}

func TestReviewQuitFinishesSession(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine(domain.Item{ID: "a"})
	m := testModel(engine, Options{})

	next, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	m = next.(model)
	assert.True(t, m.finishing)

	// Further keys are ignored while finishing.
	m = press(t, m, "k")

	next, quit := m.Update(cmd())
	m = next.(model)
	require.NotNil(t, quit)
	assert.True(t, m.finished)
	assert.Equal(t, 1, m.summary.KeptCount)
	assert.Equal(t, []string{"finish", "unsubscribe"}, engine.callLog())
	assert.Empty(t, m.View())
}

func TestReviewLoadErrorOffersRetry(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	engine.loadErr = errors.New("offline")
	m := testModel(engine, Options{})

	next, _ := m.Update(m.load()())
	m = next.(model)
	assert.Contains(t, m.View(), "Unable to load photos. Please try again.")
	assert.Contains(t, m.View(), "r to retry")

	_, cmd := m.Update(keyPress("r"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"load", "load"}, engine.callLog())
}

func TestReviewSubscriptionWakesModel(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine(domain.Item{ID: "a", Filename: "a.jpg", Width: 4032, Height: 3024, SizeBytes: 2_500_000})
	m := testModel(engine, Options{})

	require.Len(t, engine.subscribers, 1)
	engine.subscribers[0](domain.SessionState{})
	engine.subscribers[0](domain.SessionState{})

	msg := m.waitForChange()()
	assert.IsType(t, stateChangedMsg{}, msg)

	next, _ := m.Update(msg)
	view := next.(model).View()
	assert.Contains(t, view, "4032x3024")
	assert.Contains(t, view, "2.5 MB")
}

func TestReviewResumeReconcilesTimer(t *testing.T) {
	t.Parallel()

	engine := newFakeEngine()
	m := testModel(engine, Options{})

	m.Update(tea.ResumeMsg{})

	assert.Equal(t, 1, engine.resumed)
}
