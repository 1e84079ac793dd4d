package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/pipeline"
	"github.com/listenupapp/bookclub-server/internal/store"
)

// BookmarkService manages a user's bookmarks. A user bookmarks a book at
// most once.
type BookmarkService struct {
	store    store.Store
	pipeline *pipeline.Pipeline[*domain.Bookmark]
	logger   *slog.Logger
}

// NewBookmarkService creates a bookmark service.
func NewBookmarkService(deps Deps) *BookmarkService {
	deps = deps.withDefaults()
	s := &BookmarkService{store: deps.Store, logger: deps.Logger}
	s.pipeline = pipeline.New("bookmark",
		pipeline.StoreFuncs[*domain.Bookmark]{
			Create: deps.Store.CreateBookmark,
			Delete: deps.Store.DeleteBookmark,
		},
		pipeline.Addressing[*domain.Bookmark]{Topics: deps.Topics.Bookmark, Type: domain.BookmarkType},
		deps.Publisher,
		pipeline.WithClock[*domain.Bookmark](deps.Clock),
		pipeline.WithLogger[*domain.Bookmark](deps.Logger),
		pipeline.WithOwnership[*domain.Bookmark](resolveBookmarkOwnership),
		pipeline.WithGuard[*domain.Bookmark](s.rejectDuplicate),
	)
	return s
}

func resolveBookmarkOwnership(actor *domain.User, b *domain.Bookmark, _ pipeline.Op[*domain.Bookmark], now time.Time) {
	b.UserID = actor.ID
	b.BookmarkedAt = now
}

// rejectDuplicate fails when the owner already bookmarked the book. The
// store's unique (user, book) constraint catches concurrent duplicates.
func (s *BookmarkService) rejectDuplicate(ctx context.Context, _ *domain.User, b *domain.Bookmark, _ pipeline.Op[*domain.Bookmark]) error {
	_, err := s.store.FindBookmark(ctx, b.UserID, b.BookID)
	switch {
	case err == nil:
		return domainerrors.Validation(msgDuplicateMark)
	case store.IsNotFound(err):
		return nil
	default:
		return fromStore(err, "bookmark")
	}
}

// Create bookmarks a book for actor.
func (s *BookmarkService) Create(ctx context.Context, actor *domain.User, bookID string) (*domain.Bookmark, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if bookID == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"book": "This value should not be blank."})
	}
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, fromStore(err, "book")
	}

	result, err := s.pipeline.Save(ctx, actor, &domain.Bookmark{BookID: bookID}, pipeline.Creation[*domain.Bookmark]())
	if err != nil {
		if store.IsAlreadyExists(err) {
			return nil, domainerrors.Validation(msgDuplicateMark).WithCause(err)
		}
		return nil, fromStore(err, "bookmark")
	}

	s.logger.Info("book bookmarked", "bookmark_id", result.Resource.ID, "book_id", bookID, "user_id", actor.ID)
	return result.Resource, nil
}

// Delete removes one of actor's bookmarks.
func (s *BookmarkService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	bookmark, err := s.store.GetBookmark(ctx, id)
	if err != nil {
		return fromStore(err, "bookmark")
	}
	if bookmark.UserID != actor.ID {
		return domainerrors.Forbidden(msgAccessDenied)
	}
	if _, err := s.pipeline.Delete(ctx, actor, bookmark); err != nil {
		return fromStore(err, "bookmark")
	}
	return nil
}

// ListMine returns actor's bookmarks.
func (s *BookmarkService) ListMine(ctx context.Context, actor *domain.User, params store.PaginationParams) (*store.PaginatedResult[*domain.Bookmark], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	page, err := s.store.ListBookmarks(ctx, store.BookmarkFilter{UserID: actor.ID}, params)
	if err != nil {
		return nil, fromStore(err, "bookmarks")
	}
	return page, nil
}
