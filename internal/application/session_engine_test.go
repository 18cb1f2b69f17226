package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/keepster-cli/internal/domain"
)

func newTestEngine(t *testing.T, library *fakeLibrary, clock *fakeClock, opts SessionEngineOptions) *SessionEngine {
	t.Helper()

	sessions := 0
	opts.Clock = clock
	opts.Timers = clock
	opts.NewID = func() string {
		sessions++
		return fmt.Sprintf("session-%d", sessions)
	}
	engine := NewSessionEngine(library, opts)
	t.Cleanup(engine.Wait)
	return engine
}

func startedEngine(t *testing.T, library *fakeLibrary, clock *fakeClock, opts SessionEngineOptions) *SessionEngine {
	t.Helper()

	engine := newTestEngine(t, library, clock, opts)
	engine.Start(context.Background())
	require.NoError(t, engine.LoadInitial(context.Background(), 0))
	return engine
}

func TestSessionEngineInitialLoadFetchesAgainWhenFilteredShort(t *testing.T) {
	t.Parallel()

	page := makeItems("p", 0, 80)
	classified := domain.ItemIDs(page[50:])
	library := newFakeLibrary(page).withCollection("album", classified...)
	library.endlessHasMore = true
	engine := newTestEngine(t, library, newFakeClock(), SessionEngineOptions{})
	engine.Start(context.Background())

	require.NoError(t, engine.LoadInitial(context.Background(), 70))

	state := engine.State()
	assert.Len(t, state.Queue, 50)
	assert.Equal(t, 2, library.fetchCount(), "second page is fetched to try to reach the target")
	assert.False(t, state.HasMore)
	assert.False(t, state.Loading)
	assert.False(t, state.ScanningMembership)
	for _, item := range state.Queue {
		assert.NotContains(t, classified, item.ID)
	}
}

func TestSessionEngineInitialLoadReachesTargetAcrossPages(t *testing.T) {
	t.Parallel()

	first := makeItems("a", 0, 80)
	library := newFakeLibrary(first, makeItems("b", 0, 80), makeItems("c", 0, 80)).
		withCollection("album", domain.ItemIDs(first[:30])...)
	engine := newTestEngine(t, library, newFakeClock(), SessionEngineOptions{})
	engine.Start(context.Background())

	require.NoError(t, engine.LoadInitial(context.Background(), 0))

	state := engine.State()
	assert.Len(t, state.Queue, 130)
	assert.True(t, state.HasMore)
	assert.Equal(t, 2, library.fetchCount())
}

func TestSessionEngineTwelveExpiredDeletesFlushOnce(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 20))
	clock := newFakeClock()
	engine := startedEngine(t, library, clock, SessionEngineOptions{BatchSize: 12, Grace: 60 * time.Second})

	var deleted []domain.ItemID
	for range 12 {
		head, ok := engine.State().Head()
		require.True(t, ok)
		require.NoError(t, engine.MarkDeleted(head))
		deleted = append(deleted, head.ID)
		clock.Advance(60 * time.Second)
	}
	engine.Wait()

	assert.Equal(t, [][]domain.ItemID{deleted}, library.deletes())
	state := engine.State()
	assert.Equal(t, 12, state.DeletedCount)
	assert.Empty(t, state.PendingCommits)
	assert.Nil(t, state.LastAction)
}

func TestSessionEngineBackToBackDeletesCommitPrevious(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{})
	items := engine.State().Queue

	require.NoError(t, engine.MarkDeleted(items[0]))
	require.NoError(t, engine.MarkDeleted(items[1]))

	state := engine.State()
	assert.Equal(t, []domain.ItemID{items[0].ID}, state.PendingCommits)
	require.NotNil(t, state.LastAction)
	assert.Equal(t, items[1].ID, state.LastAction.Item.ID)
	assert.Equal(t, 2, state.DeletedCount)
}

func TestSessionEngineUndoRestoresHead(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	clock := newFakeClock()
	engine := startedEngine(t, library, clock, SessionEngineOptions{})
	items := engine.State().Queue

	require.NoError(t, engine.MarkDeleted(items[0]))
	require.NoError(t, engine.MarkKept(items[1]))

	restored, ok := engine.Undo()
	require.True(t, ok)
	assert.Equal(t, items[0], restored)

	state := engine.State()
	assert.Equal(t, 0, state.DeletedCount)
	assert.Equal(t, 1, state.KeptCount)
	assert.Equal(t, items[0].ID, state.Queue[0].ID)
	assert.Nil(t, state.LastAction)

	_, ok = engine.Undo()
	assert.False(t, ok)

	clock.Advance(time.Hour)
	engine.Finish(context.Background())
	assert.Empty(t, library.deletes(), "undone delete never reaches the source")
}

func TestSessionEngineSkipLeavesCounters(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{})
	items := engine.State().Queue

	require.NoError(t, engine.Skip(items[0]))

	state := engine.State()
	assert.Len(t, state.Queue, 4)
	assert.Zero(t, state.Reviewed())
	assert.False(t, engine.Membership().Contains(items[0].ID))
}

func TestSessionEngineDecisionsRequireQueuedItemInRunningSession(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	engine := newTestEngine(t, library, newFakeClock(), SessionEngineOptions{})
	item := makeItems("a", 0, 1)[0]

	require.ErrorIs(t, engine.MarkKept(item), domain.ErrSessionNotRunning)

	engine.Start(context.Background())
	require.NoError(t, engine.LoadInitial(context.Background(), 0))

	require.NoError(t, engine.MarkKept(item))
	require.ErrorIs(t, engine.MarkKept(item), domain.ErrItemNotQueued)
	require.ErrorIs(t, engine.MarkDeleted(domain.Item{ID: "missing"}), domain.ErrItemNotQueued)
	require.ErrorIs(t, engine.Skip(domain.Item{ID: "missing"}), domain.ErrItemNotQueued)

	state := engine.State()
	assert.Equal(t, 1, state.KeptCount)
	assert.Zero(t, state.DeletedCount)
}

func TestSessionEngineKeptItemsAreNotResurfaced(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{})
	kept := engine.State().Queue[0]

	require.NoError(t, engine.MarkKept(kept))
	engine.Finish(context.Background())

	engine.Start(context.Background())
	require.NoError(t, engine.LoadInitial(context.Background(), 0))

	state := engine.State()
	assert.Len(t, state.Queue, 4)
	assert.NotContains(t, domain.ItemIDs(state.Queue), kept.ID)
}

func TestSessionEngineLoadInitialFailureIsVisibleAndRetryable(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	library.fetchErrAt[0] = errors.New("offline")
	engine := newTestEngine(t, library, newFakeClock(), SessionEngineOptions{})
	engine.Start(context.Background())

	err := engine.LoadInitial(context.Background(), 0)

	require.ErrorIs(t, err, domain.ErrFetch)
	state := engine.State()
	assert.Equal(t, LoadErrorMessage, state.Error)
	assert.Empty(t, state.Queue)
	assert.False(t, state.Loading)

	library.mu.Lock()
	delete(library.fetchErrAt, 0)
	library.mu.Unlock()

	require.NoError(t, engine.LoadInitial(context.Background(), 0))
	state = engine.State()
	assert.Empty(t, state.Error)
	assert.Len(t, state.Queue, 5)
}

func TestSessionEngineLoadInitialIgnoresReentry(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 80))
	library.fetchGate = make(chan struct{})
	engine := newTestEngine(t, library, newFakeClock(), SessionEngineOptions{})
	engine.Start(context.Background())

	done := make(chan error, 1)
	go func() { done <- engine.LoadInitial(context.Background(), 0) }()
	require.Eventually(t, func() bool { return engine.State().Loading }, testWait, testTick)

	require.NoError(t, engine.LoadInitial(context.Background(), 0))
	require.NoError(t, engine.LoadMore(context.Background()))

	close(library.fetchGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, library.fetchCount())
}

func TestSessionEngineRefillsBelowLowWater(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 8), makeItems("b", 0, 8), makeItems("c", 0, 8))
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{LowWater: 5, Buffer: 5})
	require.Len(t, engine.State().Queue, 16)

	for range 12 {
		head, ok := engine.State().Head()
		require.True(t, ok)
		require.NoError(t, engine.Skip(head))
		engine.Wait()
	}

	state := engine.State()
	assert.Equal(t, 3, library.fetchCount())
	assert.Len(t, state.Queue, 12)
	assert.False(t, state.HasMore)
	assert.False(t, state.Loading)
}

func TestSessionEngineStartDuringBackgroundRefillLoadsNewSession(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 8), makeItems("b", 0, 8), makeItems("c", 0, 8))
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{LowWater: 5, Buffer: 5})
	require.Len(t, engine.State().Queue, 16)

	library.fetchGate = make(chan struct{})
	for range 12 {
		head, ok := engine.State().Head()
		require.True(t, ok)
		require.NoError(t, engine.Skip(head))
	}
	require.Eventually(t, engine.queue.Loading, testWait, testTick)

	engine.Start(context.Background())
	loaded := make(chan error, 1)
	go func() {
		loaded <- engine.LoadInitial(context.Background(), 0)
	}()
	close(library.fetchGate)

	require.NoError(t, <-loaded)
	engine.Wait()

	state := engine.State()
	assert.Equal(t, "session-2", state.ID)
	assert.Len(t, state.Queue, 16)
	assert.Equal(t, domain.ItemID("a000"), state.Queue[0].ID)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
}

func TestSessionEngineRequiresTimersForCustomClock(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary()
	assert.PanicsWithValue(t, errClockWithoutTimers, func() {
		NewSessionEngine(library, SessionEngineOptions{Clock: fixedClock{now: time.Now()}})
	})
	assert.NotPanics(t, func() {
		NewSessionEngine(library, SessionEngineOptions{Clock: newFakeClock()})
	})
}

func TestSessionEngineLoadMoreSkipsWhenQueueIsFull(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 80), makeItems("b", 0, 80))
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{DisableAutoRefill: true})

	require.NoError(t, engine.LoadMore(context.Background()))
	assert.Equal(t, 1, library.fetchCount())
}

func TestSessionEngineFinishCommitsAndFlushes(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	clock := newFakeClock()
	history := &memoryHistory{}
	engine := startedEngine(t, library, clock, SessionEngineOptions{History: history})
	items := engine.State().Queue

	require.NoError(t, engine.MarkDeleted(items[0]))
	require.NoError(t, engine.MarkDeleted(items[1]))
	require.NoError(t, engine.MarkKept(items[2]))
	clock.Advance(95 * time.Second)

	summary := engine.Finish(context.Background())

	assert.Equal(t, [][]domain.ItemID{{items[0].ID, items[1].ID}}, library.deletes())
	assert.Equal(t, "session-1", summary.ID)
	assert.Equal(t, 2, summary.DeletedCount)
	assert.Equal(t, 1, summary.KeptCount)
	assert.Equal(t, "1m 35s", domain.FormatDuration(summary.Duration()))

	state := engine.State()
	assert.Equal(t, domain.StatusSummary, state.Status)
	assert.Empty(t, state.PendingCommits)
	assert.Nil(t, state.LastAction)
	assert.Equal(t, []domain.SessionSummary{summary}, history.sessions)

	again := engine.Finish(context.Background())
	assert.Equal(t, summary, again)
	assert.Len(t, library.deletes(), 1)
}

func TestSessionEngineStartFlushesPreviousSession(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{})
	item := engine.State().Queue[0]
	require.NoError(t, engine.MarkDeleted(item))

	engine.Start(context.Background())

	assert.Equal(t, [][]domain.ItemID{{item.ID}}, library.deletes())
	state := engine.State()
	assert.Equal(t, "session-2", state.ID)
	assert.Equal(t, domain.StatusRunning, state.Status)
	assert.Empty(t, state.Queue)
	assert.Zero(t, state.DeletedCount)
}

func TestSessionEngineResetDropsPendingDeletes(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	clock := newFakeClock()
	engine := startedEngine(t, library, clock, SessionEngineOptions{})
	items := engine.State().Queue
	require.NoError(t, engine.MarkDeleted(items[0]))
	require.NoError(t, engine.MarkDeleted(items[1]))

	engine.Reset()
	clock.Advance(time.Hour)
	engine.Wait()

	assert.Empty(t, library.deletes())
	state := engine.State()
	assert.Equal(t, domain.StatusIdle, state.Status)
	assert.Empty(t, state.PendingCommits)
	assert.Nil(t, state.LastAction)
	assert.True(t, state.HasMore)
}

func TestSessionEngineOnResumeCommitsExpiredDelete(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	clock := newFakeClock()
	engine := startedEngine(t, library, clock, SessionEngineOptions{})
	item := engine.State().Queue[0]
	require.NoError(t, engine.MarkDeleted(item))

	clock.Jump(10 * time.Second)
	engine.OnResume()
	require.NotNil(t, engine.State().LastAction)

	clock.Jump(10 * time.Minute)
	engine.OnResume()

	state := engine.State()
	assert.Nil(t, state.LastAction)
	assert.Equal(t, []domain.ItemID{item.ID}, state.PendingCommits)

	clock.Advance(0)
	assert.Equal(t, []domain.ItemID{item.ID}, engine.State().PendingCommits)
}

func TestSessionEngineFailedFlushIsDeadLettered(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	library.setDeleteErr(errors.New("read-only volume"))
	deadLetters := &memoryDeadLetters{}
	clock := newFakeClock()
	engine := startedEngine(t, library, clock, SessionEngineOptions{BatchSize: 2, DeadLetters: deadLetters})
	items := engine.State().Queue

	require.NoError(t, engine.MarkDeleted(items[0]))
	require.NoError(t, engine.MarkDeleted(items[1]))
	clock.Advance(time.Minute)
	engine.Wait()

	assert.Empty(t, engine.State().PendingCommits)
	batches, err := deadLetters.List(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []domain.ItemID{items[0].ID, items[1].ID}, batches[0].ItemIDs)
}

func TestSessionEngineKeepInCollection(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5)).withCollection("trips")
	recent := &memoryRecent{ids: []domain.CollectionID{"old"}}
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{Recent: recent})
	item := engine.State().Queue[0]

	require.NoError(t, engine.KeepInCollection(context.Background(), item, "trips"))

	assert.Equal(t, []domain.ItemID{item.ID}, library.added["trips"])
	assert.Equal(t, []domain.CollectionID{"trips", "old"}, recent.ids)
	assert.Equal(t, 1, engine.State().KeptCount)
	assert.True(t, engine.Membership().Contains(item.ID))

	require.ErrorIs(t, engine.KeepInCollection(context.Background(), item, "trips"), domain.ErrItemNotQueued)
	assert.Len(t, library.added["trips"], 1)
}

func TestSessionEngineKeepInCollectionFailureKeepsItemQueued(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	library.addErr = domain.ErrCollectionNotFound
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{})
	item := engine.State().Queue[0]

	err := engine.KeepInCollection(context.Background(), item, "gone")

	require.ErrorIs(t, err, domain.ErrCollectionNotFound)
	state := engine.State()
	assert.Len(t, state.Queue, 5)
	assert.Zero(t, state.KeptCount)
}

func TestSessionEngineInvalidateMembershipRescans(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5)).withCollection("trips")
	engine := startedEngine(t, library, newFakeClock(), SessionEngineOptions{})

	engine.InvalidateMembership()
	engine.Start(context.Background())
	require.NoError(t, engine.LoadInitial(context.Background(), 0))

	assert.Equal(t, 2, library.listCalls)
}

func TestSessionEngineSubscribersReceiveSnapshots(t *testing.T) {
	t.Parallel()

	library := newFakeLibrary(makeItems("a", 0, 5))
	engine := newTestEngine(t, library, newFakeClock(), SessionEngineOptions{})

	var mu sync.Mutex
	var states []domain.SessionState
	unsubscribe := engine.Subscribe(func(state domain.SessionState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	})

	engine.Start(context.Background())
	require.NoError(t, engine.LoadInitial(context.Background(), 0))

	mu.Lock()
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	seen := len(states)
	mu.Unlock()
	assert.Equal(t, domain.StatusRunning, last.Status)
	assert.Len(t, last.Queue, 5)

	unsubscribe()
	require.NoError(t, engine.Skip(last.Queue[0]))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, states, seen)
}
