package ports

import (
	"context"

	"github.com/bnema/keepster-cli/internal/domain"
)

type Page struct {
	Items      []domain.Item
	NextCursor string
	HasMore    bool
}

type IDPage struct {
	IDs        []domain.ItemID
	NextCursor string
	HasMore    bool
}

// ItemSource pages through the full item collection. An empty cursor starts
// from the beginning; repeating a fetch for the same cursor must be safe.
type ItemSource interface {
	FetchPage(ctx context.Context, cursor string, limit int) (Page, error)
}

// ClassifiedSource exposes the collections whose members count as already
// classified.
type ClassifiedSource interface {
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	FetchCollectionPage(ctx context.Context, id domain.CollectionID, cursor string, limit int) (IDPage, error)
}

type ItemDeleter interface {
	DeleteItems(ctx context.Context, ids []domain.ItemID) error
}

type CollectionWriter interface {
	AddItemToCollection(ctx context.Context, item domain.ItemID, collection domain.CollectionID) error
	CreateCollection(ctx context.Context, title string) (domain.Collection, error)
}

// PagedSource is the full contract the session engine needs from the
// external store.
type PagedSource interface {
	ItemSource
	ClassifiedSource
	ItemDeleter
	CollectionWriter
}
