package traced

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bnema/keepster-cli/internal/domain"
	"github.com/bnema/keepster-cli/internal/ports"
)

const instrumentationName = "github.com/bnema/keepster-cli/library"

// Source records one span per external store call.
type Source struct {
	source ports.PagedSource
	tracer trace.Tracer
}

var _ ports.PagedSource = (*Source)(nil)

// New wraps source. A nil tracer falls back to the global provider.
func New(source ports.PagedSource, tracer trace.Tracer) *Source {
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return &Source{source: source, tracer: tracer}
}

func (s *Source) FetchPage(ctx context.Context, cursor string, limit int) (ports.Page, error) {
	ctx, span := s.tracer.Start(ctx, "library.fetch_page", trace.WithAttributes(
		attribute.Bool("library.first_page", cursor == ""),
		attribute.Int("library.limit", limit),
	))
	defer span.End()

	page, err := s.source.FetchPage(ctx, cursor, limit)
	if err != nil {
		recordError(span, err)
		return page, err
	}
	span.SetAttributes(
		attribute.Int("library.items", len(page.Items)),
		attribute.Bool("library.has_more", page.HasMore),
	)
	return page, nil
}

func (s *Source) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	ctx, span := s.tracer.Start(ctx, "library.list_collections")
	defer span.End()

	collections, err := s.source.ListCollections(ctx)
	if err != nil {
		recordError(span, err)
		return collections, err
	}
	span.SetAttributes(attribute.Int("library.collections", len(collections)))
	return collections, nil
}

func (s *Source) FetchCollectionPage(ctx context.Context, id domain.CollectionID, cursor string, limit int) (ports.IDPage, error) {
	ctx, span := s.tracer.Start(ctx, "library.fetch_collection_page", trace.WithAttributes(
		attribute.String("library.collection_id", string(id)),
		attribute.Int("library.limit", limit),
	))
	defer span.End()

	page, err := s.source.FetchCollectionPage(ctx, id, cursor, limit)
	if err != nil {
		recordError(span, err)
		return page, err
	}
	span.SetAttributes(
		attribute.Int("library.ids", len(page.IDs)),
		attribute.Bool("library.has_more", page.HasMore),
	)
	return page, nil
}

func (s *Source) DeleteItems(ctx context.Context, ids []domain.ItemID) error {
	ctx, span := s.tracer.Start(ctx, "library.delete_items", trace.WithAttributes(
		attribute.Int("library.batch_size", len(ids)),
	))
	defer span.End()

	if err := s.source.DeleteItems(ctx, ids); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (s *Source) AddItemToCollection(ctx context.Context, item domain.ItemID, collection domain.CollectionID) error {
	ctx, span := s.tracer.Start(ctx, "library.add_to_collection", trace.WithAttributes(
		attribute.String("library.item_id", string(item)),
		attribute.String("library.collection_id", string(collection)),
	))
	defer span.End()

	if err := s.source.AddItemToCollection(ctx, item, collection); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (s *Source) CreateCollection(ctx context.Context, title string) (domain.Collection, error) {
	ctx, span := s.tracer.Start(ctx, "library.create_collection")
	defer span.End()

	collection, err := s.source.CreateCollection(ctx, title)
	if err != nil {
		recordError(span, err)
		return collection, err
	}
	span.SetAttributes(attribute.String("library.collection_id", string(collection.ID)))
	return collection, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
