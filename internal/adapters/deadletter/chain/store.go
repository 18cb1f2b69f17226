package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

// Store writes to primary and falls back to fallback when primary fails.
// Reads merge both backends, since a batch lands in whichever one accepted
// it.
type Store struct {
	primary  ports.DeadLetterStore
	fallback ports.DeadLetterStore
}

var _ ports.DeadLetterStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary dead letter store is nil")
	errNilFallbackStore = errors.New("fallback dead letter store is nil")
)

func NewStore(primary ports.DeadLetterStore, fallback ports.DeadLetterStore) *Store {
	store, err := NewStoreChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.DeadLetterStore, fallback ports.DeadLetterStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

func (s *Store) Record(ctx context.Context, batch domain.FailedBatch) error {
	err := s.primary.Record(ctx, batch)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Record(ctx, batch)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend record failed: %w; fallback backend record failed: %w", err, fallbackErr)
}

func (s *Store) List(ctx context.Context) ([]domain.FailedBatch, error) {
	primary, err := s.primary.List(ctx)
	if err != nil && shouldSkipFallback(err) {
		return nil, err
	}

	fallback, fallbackErr := s.fallback.List(ctx)
	if err != nil && fallbackErr != nil {
		return nil, fmt.Errorf("primary backend list failed: %w; fallback backend list failed: %w", err, fallbackErr)
	}

	seen := make(map[string]struct{}, len(primary)+len(fallback))
	merged := make([]domain.FailedBatch, 0, len(primary)+len(fallback))
	for _, batch := range append(primary, fallback...) {
		if _, ok := seen[batch.ID]; ok {
			continue
		}
		seen[batch.ID] = struct{}{}
		merged = append(merged, batch)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FailedAt.Before(merged[j].FailedAt)
	})

	return merged, nil
}

// Remove deletes id from both backends. It reports not found only when
// neither backend held the batch.
func (s *Store) Remove(ctx context.Context, id string) error {
	err := s.primary.Remove(ctx, id)
	if err != nil && shouldSkipFallback(err) {
		return err
	}
	fallbackErr := s.fallback.Remove(ctx, id)

	switch {
	case err == nil || fallbackErr == nil:
		if err != nil && !errors.Is(err, domain.ErrDeadLetterNotFound) {
			return fmt.Errorf("primary backend remove failed: %w", err)
		}
		if fallbackErr != nil && !errors.Is(fallbackErr, domain.ErrDeadLetterNotFound) {
			return fmt.Errorf("fallback backend remove failed: %w", fallbackErr)
		}
		return nil
	case errors.Is(err, domain.ErrDeadLetterNotFound) && errors.Is(fallbackErr, domain.ErrDeadLetterNotFound):
		return err
	default:
		return fmt.Errorf("primary backend remove failed: %w; fallback backend remove failed: %w", err, fallbackErr)
	}
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
