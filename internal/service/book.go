package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/listenupapp/bookclub-server/internal/catalog"
	"github.com/listenupapp/bookclub-server/internal/clock"
	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/pipeline"
	"github.com/listenupapp/bookclub-server/internal/store"
	"github.com/listenupapp/bookclub-server/internal/validation"
)

// Catalog resolves a catalog reference to book metadata.
type Catalog interface {
	Lookup(ctx context.Context, ref string) (*catalog.Metadata, error)
}

// BookInput is the caller-controlled part of a book.
type BookInput struct {
	Book      string
	Condition domain.BookCondition
}

// BookService manages the book catalog. Writes are admin-only.
type BookService struct {
	store     store.Store
	pipeline  *pipeline.Pipeline[*domain.Book]
	catalog   Catalog
	validator *validation.Validator
	clock     clock.Clock
	logger    *slog.Logger
}

// NewBookService creates a book service. A nil catalog leaves title and
// author empty.
func NewBookService(deps Deps, cat Catalog) *BookService {
	deps = deps.withDefaults()
	return &BookService{
		store:     deps.Store,
		pipeline:  newBookPipeline(deps),
		catalog:   cat,
		validator: deps.Validator,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

func newBookPipeline(deps Deps) *pipeline.Pipeline[*domain.Book] {
	return pipeline.New("book",
		pipeline.StoreFuncs[*domain.Book]{
			Create: deps.Store.CreateBook,
			Update: deps.Store.UpdateBook,
			Delete: deps.Store.DeleteBook,
		},
		pipeline.Addressing[*domain.Book]{Topics: deps.Topics.Book, Type: domain.BookTypes},
		deps.Publisher,
		pipeline.WithClock[*domain.Book](deps.Clock),
		pipeline.WithLogger[*domain.Book](deps.Logger),
	)
}

// Create adds a book. Title and author come from the catalog; the slug is
// derived from the title.
func (s *BookService) Create(ctx context.Context, actor *domain.User, in BookInput) (*domain.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	candidate := &domain.Book{Book: in.Book, Condition: in.Condition}
	if err := s.validator.Validate(candidate); err != nil {
		return nil, err
	}
	if err := s.describe(ctx, candidate); err != nil {
		return nil, err
	}

	result, err := s.pipeline.Save(ctx, actor, candidate, pipeline.Creation[*domain.Book]())
	if err != nil {
		return nil, fromStore(err, "book")
	}

	s.logger.Info("book created", "book_id", result.Resource.ID, "title", result.Resource.Title)
	return result.Resource, nil
}

// Replace fully replaces a book. The catalog is consulted again only when
// the reference changes.
func (s *BookService) Replace(ctx context.Context, actor *domain.User, id string, in BookInput) (*domain.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	previous, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, fromStore(err, "book")
	}

	candidate := &domain.Book{
		Book:      in.Book,
		Condition: in.Condition,
		Title:     previous.Title,
		Author:    previous.Author,
		Slug:      previous.Slug,
	}
	if err := s.validator.Validate(candidate); err != nil {
		return nil, err
	}
	if candidate.Book != previous.Book {
		candidate.Slug = ""
		if err := s.describe(ctx, candidate); err != nil {
			return nil, err
		}
	}

	result, err := s.pipeline.Save(ctx, actor, candidate, pipeline.Replacement(previous))
	if err != nil {
		return nil, fromStore(err, "book")
	}
	return s.withRating(ctx, result.Resource)
}

// Delete removes a book together with its reviews and bookmarks.
func (s *BookService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return fromStore(err, "book")
	}
	if _, err := s.pipeline.Delete(ctx, actor, book); err != nil {
		return fromStore(err, "book")
	}
	s.logger.Info("book deleted", "book_id", id)
	return nil
}

// Get returns a book with its average rating.
func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, fromStore(err, "book")
	}
	return s.withRating(ctx, book)
}

// List returns books matching filter, each with its average rating.
func (s *BookService) List(ctx context.Context, filter store.BookFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.Book], error) {
	page, err := s.store.ListBooks(ctx, filter, params)
	if err != nil {
		return nil, fromStore(err, "books")
	}
	for _, b := range page.Items {
		if _, err := s.withRating(ctx, b); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func (s *BookService) withRating(ctx context.Context, b *domain.Book) (*domain.Book, error) {
	rating, err := s.store.AverageRating(ctx, b.ID)
	if err != nil {
		return nil, fromStore(err, "rating")
	}
	b.Rating = rating
	return b, nil
}

// describe fills title, author and slug from the catalog.
func (s *BookService) describe(ctx context.Context, b *domain.Book) error {
	if s.catalog != nil {
		meta, err := s.catalog.Lookup(ctx, b.Book)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return domainerrors.ValidationWithDetails("validation failed", map[string]string{"book": msgNotInCatalog})
		case errors.Is(err, catalog.ErrInvalidRef):
			return domainerrors.ValidationWithDetails("validation failed", map[string]string{"book": msgBadCatalogLink})
		case err != nil:
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "catalog lookup failed")
		}
		b.Title = meta.Title
		b.Author = meta.Author
	}
	if b.Slug == "" && b.Title != "" {
		b.Slug = domain.Slugify(b.Title)
	}
	return nil
}
