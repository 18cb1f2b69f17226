package ports

import (
	"context"

	"github.com/bnema/keepster-cli/internal/domain"
)

type SessionHistory interface {
	RecordSession(ctx context.Context, summary domain.SessionSummary) error
	ListSessions(ctx context.Context, limit int) ([]domain.SessionSummary, error)
}
