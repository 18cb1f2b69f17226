package ports

import (
	"context"

	"github.com/bnema/keepster-cli/internal/domain"
)

type DeadLetterStore interface {
	Record(ctx context.Context, batch domain.FailedBatch) error
	List(ctx context.Context) ([]domain.FailedBatch, error)
	Remove(ctx context.Context, id string) error
}
