package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const DefaultMembershipPageSize = 200

type MembershipOptions struct {
	PageSize int
	Logger   *slog.Logger
	Metrics  ports.Metrics
	Clock    ports.Clock
}

// MembershipIndex caches the ids of items that already belong to a
// classified collection. The scan runs lazily and at most once at a time.
type MembershipIndex struct {
	source   ports.ClassifiedSource
	pageSize int
	logger   *slog.Logger
	metrics  ports.Metrics
	clock    ports.Clock

	group singleflight.Group

	mu         sync.RWMutex
	generation uint64
	built      domain.IDSet
	local      domain.IDSet
}

func NewMembershipIndex(source ports.ClassifiedSource, opts MembershipOptions) *MembershipIndex {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultMembershipPageSize
	}

	return &MembershipIndex{
		source:   source,
		pageSize: opts.PageSize,
		logger:   loggerOrDiscard(opts.Logger).With("component", "membership"),
		metrics:  metricsOrNop(opts.Metrics),
		clock:    clockOrSystem(opts.Clock),
		local:    domain.NewIDSet(),
	}
}

// EnsureBuilt returns the number of known classified ids, scanning the
// source first when no scan result is cached. A failed scan is logged and
// leaves the index empty; the next call scans again.
func (m *MembershipIndex) EnsureBuilt(ctx context.Context) int {
	m.mu.RLock()
	if m.built != nil {
		size := m.sizeLocked()
		m.mu.RUnlock()
		return size
	}
	generation := m.generation
	m.mu.RUnlock()

	results := m.group.DoChan(strconv.FormatUint(generation, 10), func() (any, error) {
		return nil, m.build(context.WithoutCancel(ctx), generation)
	})

	select {
	case <-ctx.Done():
	case <-results:
	}
	return m.Size()
}

func (m *MembershipIndex) Contains(id domain.ItemID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.local.Has(id) || m.built.Has(id)
}

// MarkPresent records a classification made in this process. Local entries
// survive Invalidate.
func (m *MembershipIndex) MarkPresent(id domain.ItemID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.local.Add(id)
}

// Invalidate drops the cached scan. A scan still in flight finishes but its
// result is discarded.
func (m *MembershipIndex) Invalidate() {
	m.mu.Lock()
	previous := m.generation
	m.generation++
	m.built = nil
	m.mu.Unlock()

	m.group.Forget(strconv.FormatUint(previous, 10))
}

func (m *MembershipIndex) Built() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.built != nil
}

func (m *MembershipIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sizeLocked()
}

func (m *MembershipIndex) sizeLocked() int {
	size := m.built.Len()
	for id := range m.local {
		if !m.built.Has(id) {
			size++
		}
	}
	return size
}

func (m *MembershipIndex) build(ctx context.Context, generation uint64) error {
	started := m.clock.Now()
	ids, err := m.scan(ctx)
	m.metrics.ObserveMembershipBuild(ids.Len(), m.clock.Now().Sub(started), err)
	if err != nil {
		m.logger.Warn("membership scan failed, continuing without filter", "error", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != generation {
		m.logger.Debug("discarding membership scan after invalidation", "size", ids.Len())
		return nil
	}
	m.built = ids
	m.logger.Debug("membership scan complete", "size", ids.Len(), "elapsed", m.clock.Now().Sub(started))
	return nil
}

func (m *MembershipIndex) scan(ctx context.Context) (domain.IDSet, error) {
	ids := domain.NewIDSet()

	collections, err := m.source.ListCollections(ctx)
	if err != nil {
		return ids, fmt.Errorf("%w: list collections: %w", domain.ErrFetch, err)
	}

	for _, collection := range collections {
		cursor := ""
		for {
			page, err := m.source.FetchCollectionPage(ctx, collection.ID, cursor, m.pageSize)
			if err != nil {
				return ids, fmt.Errorf("%w: fetch collection %s: %w", domain.ErrFetch, collection.ID, err)
			}
			for _, id := range page.IDs {
				ids.Add(id)
			}
			if !page.HasMore || len(page.IDs) == 0 {
				break
			}
			cursor = page.NextCursor
		}
	}

	return ids, nil
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

func metricsOrNop(metrics ports.Metrics) ports.Metrics {
	if metrics == nil {
		return ports.NopMetrics{}
	}
	return metrics
}

func clockOrSystem(clock ports.Clock) ports.Clock {
	if clock == nil {
		return ports.SystemClock{}
	}
	return clock
}
