package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/pipeline"
	"github.com/listenupapp/bookclub-server/internal/store"
)

// BookSlugService backfills book slugs.
type BookSlugService struct {
	store    store.BookStore
	pipeline *pipeline.Pipeline[*domain.Book]
	logger   *slog.Logger
}

// NewBookSlugService creates a slug backfill service. Updated books are
// published like any other book replacement.
func NewBookSlugService(deps Deps) *BookSlugService {
	deps = deps.withDefaults()
	return &BookSlugService{
		store:    deps.Store,
		pipeline: newBookPipeline(deps),
		logger:   deps.Logger,
	}
}

// FillMissingSlugs derives a slug from the title of every book that has
// none, reporting each update to out. It returns the number of books
// updated.
func (s *BookSlugService) FillMissingSlugs(ctx context.Context, out io.Writer) (int, error) {
	books, err := s.store.ListBooksWithoutSlug(ctx)
	if err != nil {
		return 0, fmt.Errorf("list books without slug: %w", err)
	}

	updated := 0
	for _, previous := range books {
		candidate := *previous
		candidate.Slug = domain.Slugify(previous.Title)
		if candidate.Slug == "" {
			s.logger.Warn("book title yields an empty slug", "book_id", previous.ID, "title", previous.Title)
			continue
		}

		if _, err := s.pipeline.Save(ctx, SystemActor, &candidate, pipeline.Replacement(previous)); err != nil {
			return updated, fmt.Errorf("update slug of book %s: %w", previous.ID, err)
		}
		updated++
		fmt.Fprintf(out, "Updated slug for book: %s\n", previous.Title)
	}

	fmt.Fprintln(out, "Book slugs have been updated.")
	return updated, nil
}
