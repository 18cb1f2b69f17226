package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const itemColumns = "id, path, filename, created_at, width, height, size_bytes"

func scanItem(scanner interface{ Scan(dest ...any) error }) (domain.Item, error) {
	var (
		id        string
		path      string
		filename  string
		createdAt int64
		width     int
		height    int
		size      int64
	)
	if err := scanner.Scan(&id, &path, &filename, &createdAt, &width, &height, &size); err != nil {
		return domain.Item{}, err
	}
	return domain.Item{
		ID:        domain.ItemID(id),
		Path:      path,
		Filename:  filename,
		CreatedAt: fromNanos(createdAt),
		Width:     width,
		Height:    height,
		SizeBytes: size,
	}, nil
}

// FetchPage returns live items newest first. The cursor is opaque and stays
// valid while items before it are deleted.
func (c *Catalog) FetchPage(ctx context.Context, cursor string, limit int) (ports.Page, error) {
	if limit <= 0 {
		return ports.Page{}, fmt.Errorf("fetch page: invalid limit %d", limit)
	}
	position, hasPosition, err := decodeItemCursor(cursor)
	if err != nil {
		return ports.Page{}, err
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL`
	args := make([]any, 0, 4)
	if hasPosition {
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, position.createdAt, position.createdAt, string(position.id))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return ports.Page{}, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0, limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return ports.Page{}, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return ports.Page{}, fmt.Errorf("iterate items: %w", err)
	}

	page := ports.Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	if n := len(page.Items); n > 0 {
		last := page.Items[n-1]
		page.NextCursor = itemCursor{createdAt: toNanos(last.CreatedAt), id: last.ID}.encode()
	}
	return page, nil
}

func (c *Catalog) GetItem(ctx context.Context, id domain.ItemID) (domain.Item, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ? AND deleted_at IS NULL`, string(id))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// AddItems inserts items that are not yet known by id or path and reports how
// many were new.
func (c *Catalog) AddItems(ctx context.Context, items []domain.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin add items: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (
            id, path, filename, created_at, width, height, size_bytes, imported_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare add items: %w", err)
	}
	defer stmt.Close()

	importedAt := c.now()
	added := 0
	for _, item := range items {
		if !item.Valid() {
			return 0, fmt.Errorf("add items: item id is required")
		}
		filename := item.Filename
		if filename == "" && item.Path != "" {
			filename = filepath.Base(item.Path)
		}
		res, err := stmt.ExecContext(ctx,
			string(item.ID),
			item.Path,
			filename,
			toNanos(item.CreatedAt),
			item.Width,
			item.Height,
			item.SizeBytes,
			importedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert item %s: %w", item.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit add items: %w", err)
	}
	return added, nil
}

// DeleteItems moves the files of the given items into the trash directory and
// removes the items from paging and collections. Ids that are already deleted
// are ignored; unknown ids fail the whole batch before anything is moved.
func (c *Catalog) DeleteItems(ctx context.Context, ids []domain.ItemID) error {
	if len(ids) == 0 {
		return nil
	}

	targets := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		row := c.db.QueryRowContext(ctx, `SELECT `+itemColumns+`, deleted_at IS NOT NULL FROM items WHERE id = ?`, string(id))
		var deleted bool
		item, err := scanItem(scanFunc(func(dest ...any) error {
			return row.Scan(append(dest, &deleted)...)
		}))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete items: %w: %s", domain.ErrItemNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("delete items: load %s: %w", id, err)
		}
		if !deleted {
			targets = append(targets, item)
		}
	}

	moved := make([]domain.ItemID, 0, len(targets))
	var moveErr error
	for _, item := range targets {
		if err := c.moveToTrash(item); err != nil {
			moveErr = fmt.Errorf("move %s to trash: %w", item.ID, err)
			break
		}
		moved = append(moved, item.ID)
	}

	if err := c.markDeleted(ctx, moved); err != nil {
		return errors.Join(moveErr, err)
	}
	return moveErr
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error {
	return f(dest...)
}

func (c *Catalog) markDeleted(ctx context.Context, ids []domain.ItemID) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, c.now())
	for _, id := range ids {
		args = append(args, string(id))
	}

	if _, err := c.execWithRetry(ctx, `UPDATE items SET deleted_at = ? WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("mark items deleted: %w", err)
	}
	if _, err := c.execWithRetry(ctx, `DELETE FROM collection_items WHERE item_id IN (`+placeholders+`)`, args[1:]...); err != nil {
		return fmt.Errorf("drop collection membership: %w", err)
	}
	return nil
}

func (c *Catalog) moveToTrash(item domain.Item) error {
	if item.Path == "" {
		return nil
	}
	if err := os.MkdirAll(c.trashDir, 0o700); err != nil {
		return err
	}

	target := filepath.Join(c.trashDir, string(item.ID)+"-"+filepath.Base(item.Path))
	if err := os.Rename(item.Path, target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %w", domain.ErrPermission, err)
		}
		return err
	}
	return nil
}

type Stats struct {
	Items       int
	Deleted     int
	Bytes       int64
	Collections int
	Classified  int
	Sessions    int
}

// Unclassified is the number of live items in no collection.
func (s Stats) Unclassified() int {
	return max(s.Items-s.Classified, 0)
}

func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	queries := []struct {
		query string
		dest  any
	}{
		{`SELECT COUNT(1), COALESCE(SUM(size_bytes), 0) FROM items WHERE deleted_at IS NULL`, nil},
		{`SELECT COUNT(1) FROM items WHERE deleted_at IS NOT NULL`, &stats.Deleted},
		{`SELECT COUNT(1) FROM collections`, &stats.Collections},
		{`SELECT COUNT(DISTINCT item_id) FROM collection_items`, &stats.Classified},
		{`SELECT COUNT(1) FROM sessions`, &stats.Sessions},
	}
	for _, q := range queries {
		row := c.db.QueryRowContext(ctx, q.query)
		var err error
		if q.dest == nil {
			err = row.Scan(&stats.Items, &stats.Bytes)
		} else {
			err = row.Scan(q.dest)
		}
		if err != nil {
			return Stats{}, fmt.Errorf("catalog stats: %w", err)
		}
	}
	return stats, nil
}
