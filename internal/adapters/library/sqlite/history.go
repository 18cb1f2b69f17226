package sqlite

import (
	"context"
	"fmt"

	"github.com/bnema/keepster-cli/internal/domain"
)

const defaultHistoryLimit = 20

func (c *Catalog) RecordSession(ctx context.Context, summary domain.SessionSummary) error {
	if summary.ID == "" {
		return fmt.Errorf("record session: id is required")
	}
	_, err := c.execWithRetry(ctx, `INSERT INTO sessions (id, started_at, ended_at, kept_count, deleted_count)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            started_at = excluded.started_at,
            ended_at = excluded.ended_at,
            kept_count = excluded.kept_count,
            deleted_count = excluded.deleted_count`,
		summary.ID,
		toNanos(summary.StartedAt),
		toNanos(summary.EndedAt),
		summary.KeptCount,
		summary.DeletedCount,
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// ListSessions returns the most recently finished sessions first.
func (c *Catalog) ListSessions(ctx context.Context, limit int) ([]domain.SessionSummary, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := c.db.QueryContext(ctx, `SELECT id, started_at, ended_at, kept_count, deleted_count
        FROM sessions ORDER BY ended_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var summaries []domain.SessionSummary
	for rows.Next() {
		var (
			summary domain.SessionSummary
			started int64
			ended   int64
		)
		if err := rows.Scan(&summary.ID, &started, &ended, &summary.KeptCount, &summary.DeletedCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summary.StartedAt = fromNanos(started)
		summary.EndedAt = fromNanos(ended)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return summaries, nil
}
