package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

func (c *Catalog) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT c.id, c.title, c.created_at, COUNT(ci.item_id)
        FROM collections c
        LEFT JOIN collection_items ci ON ci.collection_id = c.id
        GROUP BY c.id
        ORDER BY c.title COLLATE NOCASE, c.id`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	var collections []domain.Collection
	for rows.Next() {
		var (
			id        string
			title     string
			createdAt int64
			count     int
		)
		if err := rows.Scan(&id, &title, &createdAt, &count); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, domain.Collection{
			ID:        domain.CollectionID(id),
			Title:     title,
			ItemCount: count,
			CreatedAt: fromNanos(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return collections, nil
}

// FetchCollectionPage pages through member ids in id order.
func (c *Catalog) FetchCollectionPage(ctx context.Context, id domain.CollectionID, cursor string, limit int) (ports.IDPage, error) {
	if limit <= 0 {
		return ports.IDPage{}, fmt.Errorf("fetch collection page: invalid limit %d", limit)
	}
	after, err := decodeIDCursor(cursor)
	if err != nil {
		return ports.IDPage{}, err
	}
	if err := c.requireCollection(ctx, id); err != nil {
		return ports.IDPage{}, err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT item_id FROM collection_items
        WHERE collection_id = ? AND item_id > ?
        ORDER BY item_id
        LIMIT ?`, string(id), string(after), limit+1)
	if err != nil {
		return ports.IDPage{}, fmt.Errorf("query collection members: %w", err)
	}
	defer rows.Close()

	ids := make([]domain.ItemID, 0, limit)
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return ports.IDPage{}, fmt.Errorf("scan collection member: %w", err)
		}
		ids = append(ids, domain.ItemID(itemID))
	}
	if err := rows.Err(); err != nil {
		return ports.IDPage{}, fmt.Errorf("iterate collection members: %w", err)
	}

	page := ports.IDPage{IDs: ids}
	if len(ids) > limit {
		page.IDs = ids[:limit]
		page.HasMore = true
	}
	if n := len(page.IDs); n > 0 {
		page.NextCursor = encodeIDCursor(page.IDs[n-1])
	}
	return page, nil
}

func (c *Catalog) CreateCollection(ctx context.Context, title string) (domain.Collection, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Collection{}, errors.New("collection title is required")
	}

	collection := domain.Collection{
		ID:        domain.CollectionID(uuid.NewString()),
		Title:     title,
		CreatedAt: fromNanos(c.now()),
	}
	if _, err := c.execWithRetry(ctx,
		`INSERT INTO collections (id, title, created_at) VALUES (?, ?, ?)`,
		string(collection.ID), collection.Title, toNanos(collection.CreatedAt),
	); err != nil {
		return domain.Collection{}, fmt.Errorf("insert collection: %w", err)
	}
	return collection, nil
}

// AddItemToCollection is idempotent for items that are already members.
func (c *Catalog) AddItemToCollection(ctx context.Context, item domain.ItemID, collection domain.CollectionID) error {
	if err := c.requireCollection(ctx, collection); err != nil {
		return err
	}
	if _, err := c.GetItem(ctx, item); err != nil {
		return err
	}

	if _, err := c.execWithRetry(ctx,
		`INSERT INTO collection_items (collection_id, item_id, added_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		string(collection), string(item), c.now(),
	); err != nil {
		return fmt.Errorf("add item to collection: %w", err)
	}
	return nil
}

func (c *Catalog) requireCollection(ctx context.Context, id domain.CollectionID) error {
	var found string
	err := c.db.QueryRowContext(ctx, `SELECT id FROM collections WHERE id = ?`, string(id)).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}
