package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

var ErrNoDeadLetterStore = errors.New("no dead-letter store configured")

type RetryResult struct {
	Retried int
	Failed  []domain.FailedBatch
}

// DeadLetterService is the user-driven retry path for failed delete batches.
type DeadLetterService struct {
	store   ports.DeadLetterStore
	deleter ports.ItemDeleter
	logger  *slog.Logger
}

func NewDeadLetterService(store ports.DeadLetterStore, deleter ports.ItemDeleter, logger *slog.Logger) *DeadLetterService {
	return &DeadLetterService{
		store:   store,
		deleter: deleter,
		logger:  loggerOrDiscard(logger).With("component", "deadletter"),
	}
}

// List returns failed batches oldest first.
func (s *DeadLetterService) List(ctx context.Context) ([]domain.FailedBatch, error) {
	if s.store == nil {
		return nil, ErrNoDeadLetterStore
	}
	batches, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failed batches: %w", err)
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].FailedAt.Before(batches[j].FailedAt)
	})
	return batches, nil
}

// Retry re-sends every failed batch, or only the ones named by ids, and
// removes each batch whose delete succeeds. A batch that fails again stays
// in the store.
func (s *DeadLetterService) Retry(ctx context.Context, ids ...string) (RetryResult, error) {
	batches, err := s.List(ctx)
	if err != nil {
		return RetryResult{}, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = false
	}

	var result RetryResult
	for _, batch := range batches {
		if len(wanted) > 0 {
			if _, ok := wanted[batch.ID]; !ok {
				continue
			}
			wanted[batch.ID] = true
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := s.deleter.DeleteItems(ctx, batch.ItemIDs); err != nil {
			s.logger.Warn("retry failed batch", "batch", batch.ID, "count", len(batch.ItemIDs), "error", err)
			batch.Error = err.Error()
			result.Failed = append(result.Failed, batch)
			continue
		}
		if err := s.store.Remove(ctx, batch.ID); err != nil {
			return result, fmt.Errorf("remove retried batch %s: %w", batch.ID, err)
		}
		s.logger.Info("retried failed batch", "batch", batch.ID, "count", len(batch.ItemIDs))
		result.Retried++
	}

	for id, seen := range wanted {
		if !seen {
			return result, fmt.Errorf("%w: %s", domain.ErrDeadLetterNotFound, id)
		}
	}
	return result, nil
}
