package throttle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

// Source rate-limits the read paths of a PagedSource. Writes pass through
// unthrottled so commits are never delayed behind backfill traffic.
type Source struct {
	ports.PagedSource
	limiter *rate.Limiter
}

var _ ports.PagedSource = (*Source)(nil)

// New wraps source with a limiter allowing requestsPerSecond page fetches
// with the given burst. A non-positive rate disables throttling.
func New(source ports.PagedSource, requestsPerSecond float64, burst int) *Source {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Source{
		PagedSource: source,
		limiter:     rate.NewLimiter(limit, burst),
	}
}

func (s *Source) FetchPage(ctx context.Context, cursor string, limit int) (ports.Page, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return ports.Page{}, fmt.Errorf("page rate limit: %w", err)
	}
	return s.PagedSource.FetchPage(ctx, cursor, limit)
}

func (s *Source) FetchCollectionPage(ctx context.Context, id domain.CollectionID, cursor string, limit int) (ports.IDPage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return ports.IDPage{}, fmt.Errorf("page rate limit: %w", err)
	}
	return s.PagedSource.FetchCollectionPage(ctx, id, cursor, limit)
}
