package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const DefaultDeleteBatchSize = 12

type CommitBatcherOptions struct {
	Threshold   int
	DeadLetters ports.DeadLetterStore
	Logger      *slog.Logger
	Metrics     ports.Metrics
	Clock       ports.Clock
}

// CommitBatcher accumulates committed deletes and sends them to the source
// in batches.
type CommitBatcher struct {
	deleter     ports.ItemDeleter
	threshold   int
	deadLetters ports.DeadLetterStore
	logger      *slog.Logger
	metrics     ports.Metrics
	clock       ports.Clock

	mu      sync.Mutex
	pending []domain.ItemID
	queued  domain.IDSet
}

func NewCommitBatcher(deleter ports.ItemDeleter, opts CommitBatcherOptions) *CommitBatcher {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultDeleteBatchSize
	}

	return &CommitBatcher{
		deleter:     deleter,
		threshold:   opts.Threshold,
		deadLetters: opts.DeadLetters,
		logger:      loggerOrDiscard(opts.Logger).With("component", "commits"),
		metrics:     metricsOrNop(opts.Metrics),
		clock:       clockOrSystem(opts.Clock),
		queued:      domain.NewIDSet(),
	}
}

func (b *CommitBatcher) Threshold() int {
	return b.threshold
}

// Add queues id for deletion. When the threshold is reached the full batch
// is returned and the pending list starts over; the caller flushes it.
func (b *CommitBatcher) Add(id domain.ItemID) []domain.ItemID {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queued.Has(id) {
		return nil
	}
	b.pending = append(b.pending, id)
	b.queued.Add(id)
	b.metrics.ObserveCommit()

	if len(b.pending) < b.threshold {
		return nil
	}
	return b.takeLocked()
}

func (b *CommitBatcher) Drain() []domain.ItemID {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.takeLocked()
}

func (b *CommitBatcher) Pending() []domain.ItemID {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	return append([]domain.ItemID(nil), b.pending...)
}

func (b *CommitBatcher) takeLocked() []domain.ItemID {
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = nil
	b.queued = domain.NewIDSet()
	return batch
}

// Flush deletes ids with a single call. A failed batch is not retried: it is
// logged and handed to the dead-letter store when one is configured.
func (b *CommitBatcher) Flush(ctx context.Context, ids []domain.ItemID) error {
	if len(ids) == 0 {
		return nil
	}

	started := b.clock.Now()
	err := b.deleter.DeleteItems(ctx, ids)
	b.metrics.ObserveFlush(len(ids), b.clock.Now().Sub(started), err)
	if err == nil {
		b.logger.Debug("deleted batch", "count", len(ids))
		return nil
	}

	err = fmt.Errorf("%w: delete %d items: %w", domain.ErrCommit, len(ids), err)
	b.logger.Warn("batched delete failed", "count", len(ids), "error", err)

	if b.deadLetters == nil {
		return err
	}
	batch := domain.FailedBatch{
		ID:       uuid.NewString(),
		ItemIDs:  append([]domain.ItemID(nil), ids...),
		Error:    err.Error(),
		FailedAt: b.clock.Now(),
	}
	if recordErr := b.deadLetters.Record(context.WithoutCancel(ctx), batch); recordErr != nil {
		b.logger.Warn("record failed batch", "batch", batch.ID, "error", recordErr)
	}
	return err
}
