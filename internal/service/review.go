package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/idp"
	"github.com/listenupapp/bookclub-server/internal/pipeline"
	"github.com/listenupapp/bookclub-server/internal/store"
	"github.com/listenupapp/bookclub-server/internal/validation"
)

// ReviewOperationLabel is the URI template reviews are mirrored under.
const ReviewOperationLabel = "/books/{bookId}/reviews/{id}{._format}"

// ReviewInput is the caller-controlled part of a review.
type ReviewInput struct {
	Rating int
	Body   string
	Letter *string
}

// ReviewService manages reviews. Creation is mirrored to the identity
// provider for enrolled owners.
type ReviewService struct {
	store     store.Store
	pipeline  *pipeline.Pipeline[*domain.Review]
	validator *validation.Validator
	logger    *slog.Logger
}

// NewReviewService creates a review service. A nil syncer disables the
// identity provider mirror.
func NewReviewService(deps Deps, syncer pipeline.ResourceHandler) *ReviewService {
	deps = deps.withDefaults()

	opts := []pipeline.Option[*domain.Review]{
		pipeline.WithClock[*domain.Review](deps.Clock),
		pipeline.WithLogger[*domain.Review](deps.Logger),
		pipeline.WithOwnership[*domain.Review](resolveReviewOwnership),
	}
	if syncer != nil {
		opts = append(opts, pipeline.WithSync(pipeline.Sync[*domain.Review]{
			Handler:  syncer,
			Enrolled: idp.EnrolledInAuthority,
			Describe: describeReview,
			Options:  idp.CreateOptions{OperationLabel: ReviewOperationLabel},
		}))
	}

	return &ReviewService{
		store: deps.Store,
		pipeline: pipeline.New("review",
			pipeline.StoreFuncs[*domain.Review]{
				Create: deps.Store.CreateReview,
				Update: deps.Store.UpdateReview,
				Delete: deps.Store.DeleteReview,
			},
			pipeline.Addressing[*domain.Review]{Topics: deps.Topics.Review, Type: domain.ReviewType},
			deps.Publisher,
			opts...,
		),
		validator: deps.Validator,
		logger:    deps.Logger,
	}
}

// resolveReviewOwnership makes user and publishedAt write-once.
func resolveReviewOwnership(actor *domain.User, r *domain.Review, op pipeline.Op[*domain.Review], now time.Time) {
	if op.Kind == pipeline.Replace {
		r.UserID = op.Previous.UserID
		r.PublishedAt = op.Previous.PublishedAt
		return
	}
	r.UserID = actor.ID
	r.PublishedAt = now
}

func describeReview(r *domain.Review) idp.Resource {
	return idp.Resource{
		ID:   r.ID,
		Type: domain.ReviewType,
		Vars: map[string]string{"bookId": r.BookID},
	}
}

// Create publishes a new review of a book on behalf of actor.
//
// If the owner is enrolled in the identity provider and mirroring fails,
// the saved review is returned along with an EXTERNAL_SYNC_FAILED error.
func (s *ReviewService) Create(ctx context.Context, actor *domain.User, bookID string, in ReviewInput) (*domain.Review, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	candidate := &domain.Review{BookID: bookID, Rating: in.Rating, Body: in.Body, Letter: in.Letter}
	if err := s.validator.Validate(candidate); err != nil {
		return nil, err
	}
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, fromStore(err, "book")
	}

	result, err := s.pipeline.Save(ctx, actor, candidate, pipeline.Creation[*domain.Review]())
	if err != nil {
		if result != nil {
			return result.Resource, err
		}
		return nil, fromStore(err, "review")
	}

	s.logger.Info("review created",
		"review_id", result.Resource.ID,
		"book_id", bookID,
		"user_id", actor.ID,
		"sync", result.Sync.String(),
	)
	return result.Resource, nil
}

// Replace fully replaces a review. Only its author or an admin may do so;
// the book, author and publication time never change. bookID scopes the
// lookup when non-empty.
func (s *ReviewService) Replace(ctx context.Context, actor *domain.User, bookID, id string, in ReviewInput) (*domain.Review, error) {
	previous, err := s.editable(ctx, actor, bookID, id)
	if err != nil {
		return nil, err
	}

	candidate := &domain.Review{BookID: previous.BookID, Rating: in.Rating, Body: in.Body, Letter: in.Letter}
	if err := s.validator.Validate(candidate); err != nil {
		return nil, err
	}

	result, err := s.pipeline.Save(ctx, actor, candidate, pipeline.Replacement(previous))
	if err != nil {
		return nil, fromStore(err, "review")
	}
	return result.Resource, nil
}

// Delete removes a review. Only its author or an admin may do so.
func (s *ReviewService) Delete(ctx context.Context, actor *domain.User, bookID, id string) error {
	review, err := s.editable(ctx, actor, bookID, id)
	if err != nil {
		return err
	}
	if _, err := s.pipeline.Delete(ctx, actor, review); err != nil {
		return fromStore(err, "review")
	}
	s.logger.Info("review deleted", "review_id", id, "user_id", actor.ID)
	return nil
}

func (s *ReviewService) editable(ctx context.Context, actor *domain.User, bookID, id string) (*domain.Review, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	review, err := s.Get(ctx, bookID, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != actor.ID && !actor.IsAdmin() {
		return nil, domainerrors.Forbidden(msgAccessDenied)
	}
	return review, nil
}

// Get returns a review. When bookID is non-empty a review of another book
// is reported as not found.
func (s *ReviewService) Get(ctx context.Context, bookID, id string) (*domain.Review, error) {
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return nil, fromStore(err, "review")
	}
	if bookID != "" && review.BookID != bookID {
		return nil, domainerrors.NotFound("review not found")
	}
	return review, nil
}

// List returns reviews matching filter.
func (s *ReviewService) List(ctx context.Context, filter store.ReviewFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.Review], error) {
	if filter.BookID != "" {
		if _, err := s.store.GetBook(ctx, filter.BookID); err != nil {
			return nil, fromStore(err, "book")
		}
	}
	page, err := s.store.ListReviews(ctx, filter, params)
	if err != nil {
		return nil, fromStore(err, "reviews")
	}
	return page, nil
}
