package application

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// fakeClock is a virtual clock whose timers fire only when Advance moves
// time past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due timers in deadline order on the
// calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if timer.stopped || timer.fired || timer.at.After(c.now) {
			continue
		}
		timer.fired = true
		due = append(due, timer)
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		timer.fn()
	}
}

// Jump moves time without firing timers, like a suspended process.
func (c *fakeClock) Jump(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) activeTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			active++
		}
	}
	return active
}

// fakeLibrary serves scripted pages. The cursor of page n is its index.
type fakeLibrary struct {
	mu sync.Mutex

	pages          [][]domain.Item
	endlessHasMore bool
	fetchErrAt     map[int]error
	fetchGate      chan struct{}
	fetched        []string

	collections     []domain.Collection
	members         map[domain.CollectionID][]domain.ItemID
	listErr         error
	listGate        chan struct{}
	listCalls       int
	collectionCalls int

	deleteErr   error
	deleteCalls [][]domain.ItemID

	added   map[domain.CollectionID][]domain.ItemID
	addErr  error
	created int
}

var _ ports.PagedSource = (*fakeLibrary)(nil)

func newFakeLibrary(pages ...[]domain.Item) *fakeLibrary {
	return &fakeLibrary{
		pages:      pages,
		fetchErrAt: map[int]error{},
		members:    map[domain.CollectionID][]domain.ItemID{},
		added:      map[domain.CollectionID][]domain.ItemID{},
	}
}

func (f *fakeLibrary) withCollection(id domain.CollectionID, members ...domain.ItemID) *fakeLibrary {
	f.collections = append(f.collections, domain.Collection{ID: id, Title: string(id), ItemCount: len(members)})
	f.members[id] = members
	return f
}

func (f *fakeLibrary) FetchPage(ctx context.Context, cursor string, limit int) (ports.Page, error) {
	if f.fetchGate != nil {
		select {
		case <-f.fetchGate:
		case <-ctx.Done():
			return ports.Page{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetched = append(f.fetched, cursor)
	index := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return ports.Page{}, fmt.Errorf("bad cursor %q", cursor)
		}
		index = parsed
	}
	if err, ok := f.fetchErrAt[index]; ok {
		return ports.Page{}, err
	}
	if index >= len(f.pages) {
		return ports.Page{HasMore: f.endlessHasMore}, nil
	}

	next := index + 1
	return ports.Page{
		Items:      append([]domain.Item(nil), f.pages[index]...),
		NextCursor: strconv.Itoa(next),
		HasMore:    next < len(f.pages) || f.endlessHasMore,
	}, nil
}

func (f *fakeLibrary) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	if f.listGate != nil {
		<-f.listGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Collection(nil), f.collections...), nil
}

func (f *fakeLibrary) FetchCollectionPage(_ context.Context, id domain.CollectionID, cursor string, limit int) (ports.IDPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.collectionCalls++
	members := f.members[id]
	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	if offset >= len(members) {
		return ports.IDPage{}, nil
	}
	end := min(offset+limit, len(members))
	return ports.IDPage{
		IDs:        append([]domain.ItemID(nil), members[offset:end]...),
		NextCursor: strconv.Itoa(end),
		HasMore:    end < len(members),
	}, nil
}

func (f *fakeLibrary) DeleteItems(_ context.Context, ids []domain.ItemID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleteCalls = append(f.deleteCalls, append([]domain.ItemID(nil), ids...))
	return f.deleteErr
}

func (f *fakeLibrary) AddItemToCollection(_ context.Context, item domain.ItemID, collection domain.CollectionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.addErr != nil {
		return f.addErr
	}
	f.added[collection] = append(f.added[collection], item)
	return nil
}

func (f *fakeLibrary) CreateCollection(_ context.Context, title string) (domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.created++
	collection := domain.Collection{ID: domain.CollectionID(fmt.Sprintf("new-%d", f.created)), Title: title}
	f.collections = append(f.collections, collection)
	return collection, nil
}

func (f *fakeLibrary) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func (f *fakeLibrary) deletes() [][]domain.ItemID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]domain.ItemID(nil), f.deleteCalls...)
}

func (f *fakeLibrary) setDeleteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}

func makeItems(prefix string, from, n int) []domain.Item {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := make([]domain.Item, 0, n)
	for i := from; i < from+n; i++ {
		items = append(items, domain.Item{
			ID:        domain.ItemID(fmt.Sprintf("%s%03d", prefix, i)),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
			Width:     4032,
			Height:    3024,
			Filename:  fmt.Sprintf("IMG_%04d.JPG", i),
		})
	}
	return items
}

type memoryDeadLetters struct {
	mu      sync.Mutex
	batches []domain.FailedBatch
}

func (m *memoryDeadLetters) Record(_ context.Context, batch domain.FailedBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batch)
	return nil
}

func (m *memoryDeadLetters) List(context.Context) ([]domain.FailedBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.FailedBatch(nil), m.batches...), nil
}

func (m *memoryDeadLetters) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, batch := range m.batches {
		if batch.ID == id {
			m.batches = append(m.batches[:i], m.batches[i+1:]...)
			return nil
		}
	}
	return domain.ErrDeadLetterNotFound
}

type memoryRecent struct {
	mu      sync.Mutex
	ids     []domain.CollectionID
	listErr error
}

func (m *memoryRecent) List(context.Context) ([]domain.CollectionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.CollectionID(nil), m.ids...), nil
}

func (m *memoryRecent) Save(_ context.Context, ids []domain.CollectionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append([]domain.CollectionID(nil), ids...)
	return nil
}

type memoryHistory struct {
	mu       sync.Mutex
	sessions []domain.SessionSummary
}

func (m *memoryHistory) RecordSession(_ context.Context, summary domain.SessionSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, summary)
	return nil
}

func (m *memoryHistory) ListSessions(_ context.Context, limit int) ([]domain.SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.sessions) {
		limit = len(m.sessions)
	}
	return append([]domain.SessionSummary(nil), m.sessions[:limit]...), nil
}

const (
	testWait = 2 * time.Second
	testTick = 5 * time.Millisecond
)

type staticMembership struct {
	ids domain.IDSet
}

func (s staticMembership) Contains(id domain.ItemID) bool {
	return s.ids.Has(id)
}
