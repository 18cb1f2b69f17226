package application

import (
	"errors"
	"sync"
	"time"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const DefaultDeleteGrace = 60 * time.Second

type DeleteUndoOptions struct {
	Grace time.Duration
	// Commit receives each scheduled item at most once.
	Commit func(domain.Item)
	// OnStateChange receives the outstanding action, nil when idle.
	OnStateChange func(*domain.LastAction)
	Clock         ports.Clock
	// Timers defaults to Clock when it implements ports.TimerFactory. A
	// Clock that cannot schedule timers must come with Timers, otherwise
	// grace periods would run on wall time while deadlines use Clock.
	Timers ports.TimerFactory
}

// DeleteUndoController holds at most one deferred delete. Scheduling a new
// delete commits the outstanding one first.
//
// Callbacks are invoked after the controller lock is released, so they may
// read the controller but must not assume ordering against concurrent calls.
type DeleteUndoController struct {
	grace    time.Duration
	commit   func(domain.Item)
	onChange func(*domain.LastAction)
	clock    ports.Clock
	timers   ports.TimerFactory

	mu         sync.Mutex
	pending    *domain.LastAction
	timer      ports.Timer
	generation uint64
}

func NewDeleteUndoController(opts DeleteUndoOptions) *DeleteUndoController {
	if opts.Grace <= 0 {
		opts.Grace = DefaultDeleteGrace
	}
	opts.Clock = clockOrSystem(opts.Clock)
	opts.Timers = timerFactoryFor(opts.Clock, opts.Timers)
	if opts.Commit == nil {
		opts.Commit = func(domain.Item) {}
	}
	if opts.OnStateChange == nil {
		opts.OnStateChange = func(*domain.LastAction) {}
	}

	return &DeleteUndoController{
		grace:    opts.Grace,
		commit:   opts.Commit,
		onChange: opts.OnStateChange,
		clock:    opts.Clock,
		timers:   opts.Timers,
	}
}

var errClockWithoutTimers = errors.New("application: Clock does not implement ports.TimerFactory and no Timers were given")

// timerFactoryFor picks the timer source matching clock. It panics when clock
// is custom and cannot schedule timers itself.
func timerFactoryFor(clock ports.Clock, timers ports.TimerFactory) ports.TimerFactory {
	if timers != nil {
		return timers
	}
	if factory, ok := clock.(ports.TimerFactory); ok {
		return factory
	}
	panic(errClockWithoutTimers)
}

func (c *DeleteUndoController) Grace() time.Duration {
	return c.grace
}

func (c *DeleteUndoController) ScheduleDelete(item domain.Item) {
	c.mu.Lock()
	previous, hadPrevious := c.takePendingLocked()

	c.generation++
	generation := c.generation
	action := &domain.LastAction{
		Kind:      domain.ActionDelete,
		Item:      item,
		ExpiresAt: c.clock.Now().Add(c.grace),
	}
	c.pending = action
	c.timer = c.timers.AfterFunc(c.grace, func() { c.expire(generation) })
	snapshot := *action
	c.mu.Unlock()

	if hadPrevious {
		c.commit(previous)
	}
	c.onChange(&snapshot)
}

// Undo cancels the outstanding delete and returns its item.
func (c *DeleteUndoController) Undo() (domain.Item, bool) {
	c.mu.Lock()
	item, ok := c.takePendingLocked()
	c.mu.Unlock()

	if !ok {
		return domain.Item{}, false
	}
	c.onChange(nil)
	return item, true
}

// CommitExpired commits the outstanding delete when its grace period already
// elapsed without the timer firing, as happens after the process was
// suspended.
func (c *DeleteUndoController) CommitExpired() bool {
	c.mu.Lock()
	if c.pending == nil || c.pending.ExpiresAt.After(c.clock.Now()) {
		c.mu.Unlock()
		return false
	}
	item, _ := c.takePendingLocked()
	c.mu.Unlock()

	c.commit(item)
	c.onChange(nil)
	return true
}

func (c *DeleteUndoController) CommitPending() bool {
	c.mu.Lock()
	item, ok := c.takePendingLocked()
	c.mu.Unlock()

	if !ok {
		return false
	}
	c.commit(item)
	c.onChange(nil)
	return true
}

// Clear drops the outstanding delete without committing it.
func (c *DeleteUndoController) Clear() {
	c.mu.Lock()
	_, ok := c.takePendingLocked()
	c.mu.Unlock()

	if ok {
		c.onChange(nil)
	}
}

func (c *DeleteUndoController) LastAction() *domain.LastAction {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return nil
	}
	action := *c.pending
	return &action
}

func (c *DeleteUndoController) expire(generation uint64) {
	c.mu.Lock()
	if c.pending == nil || c.generation != generation {
		c.mu.Unlock()
		return
	}
	item, _ := c.takePendingLocked()
	c.mu.Unlock()

	c.commit(item)
	c.onChange(nil)
}

// takePendingLocked stops the timer and moves the controller to idle. The
// generation bump turns any timer already in flight into a no-op.
func (c *DeleteUndoController) takePendingLocked() (domain.Item, bool) {
	if c.pending == nil {
		return domain.Item{}, false
	}
	item := c.pending.Item
	if c.timer != nil {
		c.timer.Stop()
	}
	c.pending = nil
	c.timer = nil
	c.generation++
	return item, true
}
