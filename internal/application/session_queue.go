package application

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const DefaultPageSize = 80

// MembershipFilter reports whether an item is already classified.
type MembershipFilter interface {
	Contains(id domain.ItemID) bool
}

type SessionQueueOptions struct {
	PageSize int
	Logger   *slog.Logger
	Metrics  ports.Metrics
	Clock    ports.Clock
}

// SessionQueue is the ordered, duplicate-free working set of unreviewed
// items. Backfill is serialized by an in-flight flag: a call made while
// another is running returns immediately without fetching. The flag belongs
// to one generation, so a backfill left over from before Reset never blocks
// the next one.
type SessionQueue struct {
	source     ports.ItemSource
	membership MembershipFilter
	pageSize   int
	logger     *slog.Logger
	metrics    ports.Metrics
	clock      ports.Clock

	background conc.WaitGroup

	mu           sync.Mutex
	items        *list.List
	index        map[domain.ItemID]*list.Element
	cursor       string
	hasMore      bool
	generation   uint64
	inFlight     bool
	inFlightGen  uint64
	cancelRefill context.CancelFunc
}

func NewSessionQueue(source ports.ItemSource, membership MembershipFilter, opts SessionQueueOptions) *SessionQueue {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	return &SessionQueue{
		source:     source,
		membership: membership,
		pageSize:   opts.PageSize,
		logger:     loggerOrDiscard(opts.Logger).With("component", "queue"),
		metrics:    metricsOrNop(opts.Metrics),
		clock:      clockOrSystem(opts.Clock),
		items:      list.New(),
		index:      map[domain.ItemID]*list.Element{},
		hasMore:    true,
	}
}

// Backfill fetches pages until the queue holds target items or the source
// is exhausted. Items already classified or already queued are dropped.
// Items appended before a fetch error stay queued.
func (q *SessionQueue) Backfill(ctx context.Context, target int) (int, error) {
	if target <= 0 {
		return 0, nil
	}
	generation, ok := q.acquire()
	if !ok {
		return 0, nil
	}
	defer q.release(generation)

	return q.backfill(ctx, target, generation)
}

// Refill runs Backfill in the background. The returned channel yields the
// outcome once and is then closed. Reset cancels a refill still running.
func (q *SessionQueue) Refill(ctx context.Context, target int) <-chan error {
	done := make(chan error, 1)
	if target <= 0 {
		close(done)
		return done
	}
	generation, ok := q.acquire()
	if !ok {
		close(done)
		return done
	}

	ctx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	if q.generation == generation {
		q.cancelRefill = cancel
	} else {
		cancel()
	}
	q.mu.Unlock()

	q.background.Go(func() {
		defer close(done)
		defer cancel()
		_, err := q.backfill(ctx, target, generation)
		q.release(generation)
		if err != nil {
			q.logger.Warn("queue refill failed", "error", err)
			done <- err
		}
	})
	return done
}

// Wait blocks until background refills have returned.
func (q *SessionQueue) Wait() {
	q.background.Wait()
}

func (q *SessionQueue) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight && q.inFlightGen == q.generation
}

// acquire takes the in-flight flag for the current generation.
func (q *SessionQueue) acquire() (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight && q.inFlightGen == q.generation {
		return 0, false
	}
	q.inFlight = true
	q.inFlightGen = q.generation
	return q.generation, true
}

func (q *SessionQueue) release(generation uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight && q.inFlightGen == generation {
		q.inFlight = false
		q.cancelRefill = nil
	}
}

// backfill appends pages for one generation and stops once Reset has moved
// the queue past it.
func (q *SessionQueue) backfill(ctx context.Context, target int, generation uint64) (int, error) {
	appended := 0
	for {
		q.mu.Lock()
		if q.generation != generation || q.items.Len() >= target || !q.hasMore {
			q.mu.Unlock()
			return appended, nil
		}
		cursor := q.cursor
		q.mu.Unlock()

		started := q.clock.Now()
		page, err := q.source.FetchPage(ctx, cursor, q.pageSize)
		if err != nil {
			if q.stale(generation) {
				return appended, nil
			}
			q.metrics.ObservePageFetch(0, 0, q.clock.Now().Sub(started), err)
			return appended, fmt.Errorf("%w: fetch page: %w", domain.ErrFetch, err)
		}

		q.mu.Lock()
		if q.generation != generation {
			q.mu.Unlock()
			return appended, nil
		}
		added := q.appendLocked(page.Items)
		q.cursor = page.NextCursor
		q.hasMore = page.HasMore && len(page.Items) > 0
		length := q.items.Len()
		q.mu.Unlock()

		appended += added
		q.metrics.ObservePageFetch(len(page.Items), added, q.clock.Now().Sub(started), nil)
		q.metrics.SetQueueLength(length)
		q.logger.Debug("page appended",
			"fetched", len(page.Items),
			"appended", added,
			"queue", length,
			"has_more", page.HasMore,
		)
	}
}

func (q *SessionQueue) appendLocked(items []domain.Item) int {
	added := 0
	for _, item := range items {
		if !item.Valid() {
			continue
		}
		if _, queued := q.index[item.ID]; queued {
			continue
		}
		if q.membership != nil && q.membership.Contains(item.ID) {
			continue
		}
		q.index[item.ID] = q.items.PushBack(item)
		added++
	}
	return added
}

func (q *SessionQueue) Remove(id domain.ItemID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	element, ok := q.index[id]
	if !ok {
		return false
	}
	q.items.Remove(element)
	delete(q.index, id)
	q.metrics.SetQueueLength(q.items.Len())
	return true
}

// PushFront reinserts an item at the head, as undo does. It refuses ids
// that are already queued.
func (q *SessionQueue) PushFront(item domain.Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !item.Valid() {
		return false
	}
	if _, ok := q.index[item.ID]; ok {
		return false
	}
	q.index[item.ID] = q.items.PushFront(item)
	q.metrics.SetQueueLength(q.items.Len())
	return true
}

func (q *SessionQueue) Contains(id domain.ItemID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.index[id]
	return ok
}

func (q *SessionQueue) Items() []domain.Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]domain.Item, 0, q.items.Len())
	for element := q.items.Front(); element != nil; element = element.Next() {
		items = append(items, element.Value.(domain.Item))
	}
	return items
}

func (q *SessionQueue) Head() (domain.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.items.Front()
	if front == nil {
		return domain.Item{}, false
	}
	return front.Value.(domain.Item), true
}

func (q *SessionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.items.Len()
}

func (q *SessionQueue) Cursor() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.cursor
}

func (q *SessionQueue) HasMore() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.hasMore
}

// Reset empties the queue and rewinds pagination. A backfill still running
// discards its page instead of appending it.
func (q *SessionQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelRefill != nil {
		q.cancelRefill()
		q.cancelRefill = nil
	}
	q.items.Init()
	q.index = map[domain.ItemID]*list.Element{}
	q.cursor = ""
	q.hasMore = true
	q.generation++
	q.metrics.SetQueueLength(0)
}

func (q *SessionQueue) stale(generation uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.generation != generation
}
