package ports

import (
	"context"

	"github.com/bnema/keepster-cli/internal/domain"
)

type RecentCollectionRepository interface {
	List(ctx context.Context) ([]domain.CollectionID, error)
	Save(ctx context.Context, ids []domain.CollectionID) error
}
