package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const (
	DefaultLowWater     = 50
	DefaultBuffer       = 20
	DefaultFlushTimeout = 30 * time.Second

	LoadErrorMessage = "Unable to load photos. Please try again."
)

type SessionEngineOptions struct {
	Grace              time.Duration
	BatchSize          int
	PageSize           int
	MembershipPageSize int
	LowWater           int
	Buffer             int
	DisableAutoRefill  bool
	FlushTimeout       time.Duration
	RecentLimit        int

	// Membership is shared with other services when set; otherwise the
	// engine builds its own index over the source.
	Membership  *MembershipIndex
	History     ports.SessionHistory
	Recent      ports.RecentCollectionRepository
	DeadLetters ports.DeadLetterStore
	Metrics     ports.Metrics
	Logger      *slog.Logger
	Clock       ports.Clock
	Timers      ports.TimerFactory
	NewID       func() string
}

// SessionEngine turns review decisions into session state transitions.
// Entry points are meant to be called by a single host loop; grace timers
// and background refills run on their own goroutines and synchronize
// through the engine, queue, and controller locks.
type SessionEngine struct {
	source     ports.PagedSource
	membership *MembershipIndex
	queue      *SessionQueue
	controller *DeleteUndoController
	commits    *CommitBatcher

	history      ports.SessionHistory
	recent       ports.RecentCollectionRepository
	recentLimit  int
	metrics      ports.Metrics
	logger       *slog.Logger
	clock        ports.Clock
	newID        func() string
	lowWater     int
	target       int
	autoRefill   bool
	flushTimeout time.Duration

	refills conc.WaitGroup
	flushes conc.WaitGroup

	mu             sync.Mutex
	sessionID      string
	status         domain.SessionStatus
	kept           int
	deleted        int
	startedAt      time.Time
	endedAt        time.Time
	loading        bool
	loadGen        uint64
	scanning       bool
	errMsg         string
	subscribers    map[int]func(domain.SessionState)
	nextSubscriber int
}

func NewSessionEngine(source ports.PagedSource, opts SessionEngineOptions) *SessionEngine {
	if opts.LowWater <= 0 {
		opts.LowWater = DefaultLowWater
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	logger := loggerOrDiscard(opts.Logger)
	metrics := metricsOrNop(opts.Metrics)
	clock := clockOrSystem(opts.Clock)
	timers := timerFactoryFor(clock, opts.Timers)

	membership := opts.Membership
	if membership == nil {
		membership = NewMembershipIndex(source, MembershipOptions{
			PageSize: opts.MembershipPageSize,
			Logger:   logger,
			Metrics:  metrics,
			Clock:    clock,
		})
	}

	e := &SessionEngine{
		source:     source,
		membership: membership,
		queue: NewSessionQueue(source, membership, SessionQueueOptions{
			PageSize: opts.PageSize,
			Logger:   logger,
			Metrics:  metrics,
			Clock:    clock,
		}),
		commits: NewCommitBatcher(source, CommitBatcherOptions{
			Threshold:   opts.BatchSize,
			DeadLetters: opts.DeadLetters,
			Logger:      logger,
			Metrics:     metrics,
			Clock:       clock,
		}),
		history:      opts.History,
		recent:       opts.Recent,
		recentLimit:  opts.RecentLimit,
		metrics:      metrics,
		logger:       logger.With("component", "session"),
		clock:        clock,
		newID:        opts.NewID,
		lowWater:     opts.LowWater,
		target:       opts.LowWater + opts.Buffer,
		autoRefill:   !opts.DisableAutoRefill,
		flushTimeout: opts.FlushTimeout,
		status:       domain.StatusIdle,
		subscribers:  map[int]func(domain.SessionState){},
	}
	e.controller = NewDeleteUndoController(DeleteUndoOptions{
		Grace:         opts.Grace,
		Commit:        e.commitDelete,
		OnStateChange: func(*domain.LastAction) { e.publish() },
		Clock:         clock,
		Timers:        timers,
	})

	return e
}

// InitialTarget is the queue size LoadInitial aims for when called with a
// non-positive target.
func (e *SessionEngine) InitialTarget() int {
	return e.target
}

func (e *SessionEngine) Membership() *MembershipIndex {
	return e.membership
}

// Start commits any outstanding delete, flushes pending commits, and begins
// a fresh running session with an empty queue.
func (e *SessionEngine) Start(ctx context.Context) {
	e.controller.CommitPending()
	e.flushPending(ctx)
	e.queue.Reset()

	e.mu.Lock()
	e.sessionID = e.newID()
	e.status = domain.StatusRunning
	e.kept = 0
	e.deleted = 0
	e.startedAt = e.clock.Now()
	e.endedAt = time.Time{}
	e.loading = false
	e.loadGen++
	e.scanning = false
	e.errMsg = ""
	sessionID := e.sessionID
	e.mu.Unlock()

	e.logger.Info("session started", "session", sessionID)
	e.publish()
}

// Finish commits the outstanding delete, flushes every pending commit, and
// moves the session to its summary.
func (e *SessionEngine) Finish(ctx context.Context) domain.SessionSummary {
	e.mu.Lock()
	if e.status != domain.StatusRunning {
		summary := e.summaryLocked()
		e.mu.Unlock()
		return summary
	}
	e.mu.Unlock()

	e.controller.CommitPending()
	e.flushPending(ctx)
	e.flushes.Wait()

	e.mu.Lock()
	e.status = domain.StatusSummary
	e.endedAt = e.clock.Now()
	summary := e.summaryLocked()
	e.mu.Unlock()

	if e.history != nil {
		if err := e.history.RecordSession(ctx, summary); err != nil {
			e.logger.Warn("record session history", "session", summary.ID, "error", err)
		}
	}

	e.logger.Info("session finished",
		"session", summary.ID,
		"kept", summary.KeptCount,
		"deleted", summary.DeletedCount,
		"elapsed", domain.FormatDuration(summary.Duration()),
	)
	e.publish()
	return summary
}

// Reset abandons the session: the outstanding delete and pending commits are
// dropped without reaching the source.
func (e *SessionEngine) Reset() {
	e.controller.Clear()
	if dropped := e.commits.Drain(); len(dropped) > 0 {
		e.logger.Info("dropped pending deletes", "count", len(dropped))
	}
	e.queue.Reset()

	e.mu.Lock()
	e.sessionID = ""
	e.status = domain.StatusIdle
	e.kept = 0
	e.deleted = 0
	e.startedAt = time.Time{}
	e.endedAt = time.Time{}
	e.loading = false
	e.loadGen++
	e.scanning = false
	e.errMsg = ""
	e.mu.Unlock()

	e.publish()
}

// LoadInitial builds the membership index and backfills the queue to target.
// A fetch failure is reported through SessionState.Error and returned; the
// caller retries by calling LoadInitial again.
func (e *SessionEngine) LoadInitial(ctx context.Context, target int) error {
	if target <= 0 {
		target = e.target
	}

	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return nil
	}
	e.loading = true
	e.scanning = true
	e.errMsg = ""
	generation := e.loadGen
	e.mu.Unlock()
	e.publish()

	classified := e.membership.EnsureBuilt(ctx)

	e.mu.Lock()
	if e.loadGen == generation {
		e.scanning = false
	}
	e.mu.Unlock()
	e.publish()

	appended, err := e.queue.Backfill(ctx, target)

	e.mu.Lock()
	if e.loadGen == generation {
		e.loading = false
		if err != nil {
			e.errMsg = LoadErrorMessage
		}
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("queue load failed", "error", err)
	} else {
		e.logger.Debug("queue loaded", "appended", appended, "classified", classified)
	}
	e.publish()

	if err != nil {
		return fmt.Errorf("load initial queue: %w", err)
	}
	return nil
}

// LoadMore refills the queue when it is below the low-water mark and the
// source has more pages.
func (e *SessionEngine) LoadMore(ctx context.Context) error {
	generation, ok := e.beginRefill()
	if !ok {
		return nil
	}
	e.publish()

	e.membership.EnsureBuilt(ctx)
	_, err := e.queue.Backfill(ctx, e.target)
	e.endLoad(generation)

	if err != nil {
		e.logger.Warn("queue refill failed", "error", err)
	}
	e.publish()

	if err != nil {
		return fmt.Errorf("load more: %w", err)
	}
	return nil
}

// beginRefill marks the session loading and returns the load generation the
// caller must hand back to endLoad.
func (e *SessionEngine) beginRefill() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loading || !e.queue.HasMore() || e.queue.Len() >= e.lowWater {
		return 0, false
	}
	e.loading = true
	return e.loadGen, true
}

// endLoad clears the loading flag unless Start or Reset began a new
// generation in the meantime.
func (e *SessionEngine) endLoad(generation uint64) {
	e.mu.Lock()
	if e.loadGen == generation {
		e.loading = false
	}
	e.mu.Unlock()
}

func (e *SessionEngine) refillInBackground() {
	if !e.autoRefill {
		return
	}
	e.mu.Lock()
	running := e.status == domain.StatusRunning
	e.mu.Unlock()
	if !running {
		return
	}
	generation, ok := e.beginRefill()
	if !ok {
		return
	}
	e.publish()

	e.refills.Go(func() {
		ctx := context.Background()
		e.membership.EnsureBuilt(ctx)
		<-e.queue.Refill(ctx, e.target)

		e.endLoad(generation)
		e.publish()
	})
}

func (e *SessionEngine) MarkKept(item domain.Item) error {
	if err := e.removeDecided(item.ID, func() { e.kept++ }); err != nil {
		return err
	}
	e.membership.MarkPresent(item.ID)
	e.metrics.ObserveDecision(ports.DecisionKeep)
	e.publish()
	e.refillInBackground()
	return nil
}

func (e *SessionEngine) MarkDeleted(item domain.Item) error {
	if err := e.removeDecided(item.ID, func() { e.deleted++ }); err != nil {
		return err
	}
	e.controller.ScheduleDelete(item)
	e.metrics.ObserveDecision(ports.DecisionDelete)
	e.refillInBackground()
	return nil
}

func (e *SessionEngine) Skip(item domain.Item) error {
	if err := e.removeDecided(item.ID, func() {}); err != nil {
		return err
	}
	e.metrics.ObserveDecision(ports.DecisionSkip)
	e.publish()
	e.refillInBackground()
	return nil
}

// Undo restores the item held by the outstanding delete to the head of the
// queue.
func (e *SessionEngine) Undo() (domain.Item, bool) {
	item, ok := e.controller.Undo()
	if !ok {
		return domain.Item{}, false
	}

	e.mu.Lock()
	if e.deleted > 0 {
		e.deleted--
	}
	e.queue.PushFront(item)
	e.mu.Unlock()

	e.metrics.ObserveDecision(ports.DecisionUndo)
	e.publish()
	return item, true
}

// OnResume reconciles the grace timer after the host was suspended.
func (e *SessionEngine) OnResume() {
	if e.controller.CommitExpired() {
		e.logger.Debug("committed delete that expired while suspended")
	}
}

// KeepInCollection files item into a collection, remembers the collection as
// recently used, and then keeps the item.
func (e *SessionEngine) KeepInCollection(ctx context.Context, item domain.Item, collection domain.CollectionID) error {
	e.mu.Lock()
	err := e.decidableLocked(item.ID)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if err := e.source.AddItemToCollection(ctx, item.ID, collection); err != nil {
		return fmt.Errorf("add item to collection: %w", err)
	}
	recordRecentCollection(ctx, e.recent, collection, e.recentLimit, e.logger)

	return e.MarkKept(item)
}

// InvalidateMembership forces a rescan on the next load, for when
// collections changed outside this process.
func (e *SessionEngine) InvalidateMembership() {
	e.membership.Invalidate()
}

func (e *SessionEngine) State() domain.SessionState {
	action := e.controller.LastAction()
	pending := e.commits.Pending()

	e.mu.Lock()
	defer e.mu.Unlock()

	return domain.SessionState{
		ID:                 e.sessionID,
		Status:             e.status,
		Queue:              e.queue.Items(),
		KeptCount:          e.kept,
		DeletedCount:       e.deleted,
		StartedAt:          e.startedAt,
		EndedAt:            e.endedAt,
		LastAction:         action,
		PendingCommits:     pending,
		Loading:            e.loading,
		ScanningMembership: e.scanning,
		Error:              e.errMsg,
		HasMore:            e.queue.HasMore(),
		Cursor:             e.queue.Cursor(),
	}
}

// Subscribe registers fn to receive a snapshot after every transition. fn
// runs on whichever goroutine caused the transition and must not block.
func (e *SessionEngine) Subscribe(fn func(domain.SessionState)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSubscriber
	e.nextSubscriber++
	e.subscribers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// Wait blocks until background refills and flushes have returned.
func (e *SessionEngine) Wait() {
	e.refills.Wait()
	e.queue.Wait()
	e.flushes.Wait()
}

func (e *SessionEngine) removeDecided(id domain.ItemID, apply func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.decidableLocked(id); err != nil {
		return err
	}
	e.queue.Remove(id)
	apply()
	return nil
}

func (e *SessionEngine) decidableLocked(id domain.ItemID) error {
	if e.status != domain.StatusRunning {
		return domain.ErrSessionNotRunning
	}
	if !e.queue.Contains(id) {
		return fmt.Errorf("%w: %s", domain.ErrItemNotQueued, id)
	}
	return nil
}

// commitDelete is the controller's commit callback.
func (e *SessionEngine) commitDelete(item domain.Item) {
	batch := e.commits.Add(item.ID)
	if len(batch) == 0 {
		return
	}

	e.flushes.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.flushTimeout)
		defer cancel()
		_ = e.commits.Flush(ctx, batch)
	})
}

func (e *SessionEngine) flushPending(ctx context.Context) {
	ids := e.commits.Drain()
	if len(ids) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.flushTimeout)
	defer cancel()
	_ = e.commits.Flush(ctx, ids)
}

func (e *SessionEngine) summaryLocked() domain.SessionSummary {
	return domain.SessionSummary{
		ID:           e.sessionID,
		StartedAt:    e.startedAt,
		EndedAt:      e.endedAt,
		KeptCount:    e.kept,
		DeletedCount: e.deleted,
	}
}

func (e *SessionEngine) publish() {
	state := e.State()

	e.mu.Lock()
	subscribers := make([]func(domain.SessionState), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		subscribers = append(subscribers, fn)
	}
	e.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
}
