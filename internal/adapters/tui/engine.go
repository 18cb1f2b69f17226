package tui

import (
	"context"

	"github.com/bnema/keepster-cli/internal/domain"
)

// Engine is the part of the session engine the review screen drives.
type Engine interface {
	State() domain.SessionState
	Subscribe(fn func(domain.SessionState)) func()
	LoadInitial(ctx context.Context, target int) error
	MarkKept(item domain.Item) error
	MarkDeleted(item domain.Item) error
	Skip(item domain.Item) error
	Undo() (domain.Item, bool)
	KeepInCollection(ctx context.Context, item domain.Item, collection domain.CollectionID) error
	OnResume()
	Finish(ctx context.Context) domain.SessionSummary
}
