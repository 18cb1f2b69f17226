package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

var ErrEmptyCollectionTitle = errors.New("collection title is required")

type CollectionSource interface {
	ports.ClassifiedSource
	ports.CollectionWriter
}

type CollectionService struct {
	source      CollectionSource
	recent      ports.RecentCollectionRepository
	membership  *MembershipIndex
	recentLimit int
	logger      *slog.Logger
}

func NewCollectionService(source CollectionSource, recent ports.RecentCollectionRepository, membership *MembershipIndex, recentLimit int, logger *slog.Logger) *CollectionService {
	return &CollectionService{
		source:      source,
		recent:      recent,
		membership:  membership,
		recentLimit: recentLimit,
		logger:      loggerOrDiscard(logger).With("component", "collections"),
	}
}

// OrderedCollections lists collections with recently used ones first.
func (s *CollectionService) OrderedCollections(ctx context.Context) ([]domain.Collection, error) {
	collections, err := s.source.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	return domain.PinRecent(collections, s.RecentCollections(ctx)), nil
}

// RecentCollections is best effort: an unreadable store yields no recents.
func (s *CollectionService) RecentCollections(ctx context.Context) []domain.CollectionID {
	if s.recent == nil {
		return nil
	}
	ids, err := s.recent.List(ctx)
	if err != nil {
		s.logger.Warn("read recent collections", "error", err)
		return nil
	}
	return ids
}

// CreateCollection creates a collection, optionally filing item into it.
func (s *CollectionService) CreateCollection(ctx context.Context, title string, item *domain.ItemID) (domain.Collection, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Collection{}, ErrEmptyCollectionTitle
	}

	collection, err := s.source.CreateCollection(ctx, title)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("create collection: %w", err)
	}

	if item != nil {
		if err := s.AddToCollection(ctx, *item, collection.ID); err != nil {
			return collection, err
		}
		collection.ItemCount++
		return collection, nil
	}

	recordRecentCollection(ctx, s.recent, collection.ID, s.recentLimit, s.logger)
	return collection, nil
}

// AddToCollection files item into collection and marks it classified so the
// queue does not surface it again.
func (s *CollectionService) AddToCollection(ctx context.Context, item domain.ItemID, collection domain.CollectionID) error {
	if err := s.source.AddItemToCollection(ctx, item, collection); err != nil {
		return fmt.Errorf("add item to collection: %w", err)
	}
	if s.membership != nil {
		s.membership.MarkPresent(item)
	}
	recordRecentCollection(ctx, s.recent, collection, s.recentLimit, s.logger)
	return nil
}

func recordRecentCollection(ctx context.Context, repo ports.RecentCollectionRepository, id domain.CollectionID, limit int, logger *slog.Logger) {
	if repo == nil || strings.TrimSpace(string(id)) == "" {
		return
	}

	current, err := repo.List(ctx)
	if err != nil {
		logger.Warn("read recent collections", "error", err)
		current = nil
	}
	if err := repo.Save(ctx, domain.RecordRecent(current, id, limit)); err != nil {
		logger.Warn("save recent collections", "collection", id, "error", err)
	}
}
