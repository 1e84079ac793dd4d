package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/service"
	"github.com/listenupapp/bookclub-server/internal/store"
)

func (s *Server) registerReviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBookReviews",
		Method:      http.MethodGet,
		Path:        "/books/{bookId}/reviews",
		Summary:     "List book reviews",
		Description: "Returns the reviews of a book",
		Tags:        []string{"Reviews"},
	}, s.handleListBookReviews)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createReview",
		Method:        http.MethodPost,
		Path:          "/books/{bookId}/reviews",
		Summary:       "Create review",
		Description:   "Publishes a review of a book as the current user",
		Tags:          []string{"Reviews"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookReview",
		Method:      http.MethodGet,
		Path:        "/books/{bookId}/reviews/{id}",
		Summary:     "Get review",
		Description: "Returns a review of a book",
		Tags:        []string{"Reviews"},
	}, s.handleGetBookReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceReview",
		Method:      http.MethodPut,
		Path:        "/books/{bookId}/reviews/{id}",
		Summary:     "Replace review",
		Description: "Fully replaces a review. Only its author or an admin may do so.",
		Tags:        []string{"Reviews"},
		Security:    bearer,
	}, s.handleReplaceBookReview)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteReview",
		Method:        http.MethodDelete,
		Path:          "/books/{bookId}/reviews/{id}",
		Summary:       "Delete review",
		Description:   "Deletes a review. Only its author or an admin may do so.",
		Tags:          []string{"Reviews"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBookReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListReviews",
		Method:      http.MethodGet,
		Path:        "/admin/reviews",
		Summary:     "List reviews (admin)",
		Description: "Returns reviews filtered by book, user or rating",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminListReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetReview",
		Method:      http.MethodGet,
		Path:        "/admin/reviews/{id}",
		Summary:     "Get review (admin)",
		Description: "Returns a review by ID",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminGetReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminReplaceReview",
		Method:      http.MethodPut,
		Path:        "/admin/reviews/{id}",
		Summary:     "Replace review (admin)",
		Description: "Fully replaces any review",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminReplaceReview)

	huma.Register(s.api, huma.Operation{
		OperationID:   "adminDeleteReview",
		Method:        http.MethodDelete,
		Path:          "/admin/reviews/{id}",
		Summary:       "Delete review (admin)",
		Description:   "Deletes any review",
		Tags:          []string{"Admin"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleAdminDeleteReview)
}

// === DTOs ===

// ListBookReviewsInput contains parameters for listing a book's reviews.
type ListBookReviewsInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
	Limit  int    `query:"limit" default:"30" minimum:"1" maximum:"100" doc:"Items per page"`
	Cursor string `query:"cursor" doc:"Pagination cursor"`
}

// AdminListReviewsInput contains filters for listing all reviews.
type AdminListReviewsInput struct {
	Book   string `query:"book" doc:"Book ID"`
	User   string `query:"user" doc:"Author user ID"`
	Rating string `query:"rating" doc:"Exact rating, 0 to 5"`
	Limit  int    `query:"limit" default:"30" minimum:"1" maximum:"100" doc:"Items per page"`
	Cursor string `query:"cursor" doc:"Pagination cursor"`
}

// ReviewResponse contains review data in API responses.
type ReviewResponse struct {
	ID          string    `json:"id" doc:"Review ID"`
	Book        string    `json:"book" doc:"Reviewed book ID"`
	User        string    `json:"user" doc:"Author user ID"`
	Rating      int       `json:"rating" doc:"Rating from 0 to 5"`
	Body        string    `json:"body" doc:"Review text"`
	Letter      *string   `json:"letter,omitempty" doc:"Optional letter grade"`
	PublishedAt time.Time `json:"publishedAt" doc:"Publication time"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update time"`
}

// ListReviewsResponse contains a page of reviews.
type ListReviewsResponse struct {
	Reviews    []ReviewResponse `json:"reviews" doc:"Reviews on this page"`
	NextCursor string           `json:"next_cursor,omitempty" doc:"Cursor of the next page"`
	HasMore    bool             `json:"has_more" doc:"Whether more pages exist"`
}

// ListReviewsOutput wraps the list reviews response for Huma.
type ListReviewsOutput struct {
	Body ListReviewsResponse
}

// ReviewRequest is the request body for creating or replacing a review.
// Author, book and publication time are never taken from the body.
type ReviewRequest struct {
	Rating int     `json:"rating" doc:"Rating from 0 to 5"`
	Body   string  `json:"body" doc:"Review text"`
	Letter *string `json:"letter,omitempty" doc:"Optional letter grade"`
}

// CreateReviewInput wraps the create review request for Huma.
type CreateReviewInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
	Body   ReviewRequest
}

// BookReviewInput addresses a review under its book.
type BookReviewInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
	ID     string `path:"id" doc:"Review ID"`
}

// ReplaceBookReviewInput wraps the replace review request for Huma.
type ReplaceBookReviewInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
	ID     string `path:"id" doc:"Review ID"`
	Body   ReviewRequest
}

// ReviewIDInput addresses a review on admin routes.
type ReviewIDInput struct {
	ID string `path:"id" doc:"Review ID"`
}

// AdminReplaceReviewInput wraps the admin replace review request for Huma.
type AdminReplaceReviewInput struct {
	ID   string `path:"id" doc:"Review ID"`
	Body ReviewRequest
}

// ReviewOutput wraps the review response for Huma.
type ReviewOutput struct {
	Body ReviewResponse
}

// DeleteReviewOutput is empty; the route answers 204.
type DeleteReviewOutput struct{}

// === Handlers ===

func (s *Server) handleListBookReviews(ctx context.Context, input *ListBookReviewsInput) (*ListReviewsOutput, error) {
	return s.listReviews(ctx, store.ReviewFilter{BookID: input.BookID}, input.Limit, input.Cursor)
}

func (s *Server) handleAdminListReviews(ctx context.Context, input *AdminListReviewsInput) (*ListReviewsOutput, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	filter := store.ReviewFilter{BookID: input.Book, UserID: input.User}
	if input.Rating != "" {
		rating, err := strconv.Atoi(input.Rating)
		if err != nil {
			return nil, domainerrors.BadRequest("rating must be an integer")
		}
		filter.Rating = &rating
	}
	return s.listReviews(ctx, filter, input.Limit, input.Cursor)
}

func (s *Server) listReviews(ctx context.Context, filter store.ReviewFilter, limit int, cursor string) (*ListReviewsOutput, error) {
	page, err := s.services.Reviews.List(ctx, filter, store.PaginationParams{Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, err
	}

	resp := make([]ReviewResponse, len(page.Items))
	for i, r := range page.Items {
		resp[i] = mapReview(r)
	}

	return &ListReviewsOutput{Body: ListReviewsResponse{
		Reviews:    resp,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (s *Server) handleCreateReview(ctx context.Context, input *CreateReviewInput) (*ReviewOutput, error) {
	actor, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	// A failed mirror still returns the stored review alongside the error;
	// the error response carries its id.
	review, err := s.services.Reviews.Create(ctx, actor, input.BookID, reviewInput(input.Body))
	if err != nil {
		return nil, err
	}
	return &ReviewOutput{Body: mapReview(review)}, nil
}

func (s *Server) handleGetBookReview(ctx context.Context, input *BookReviewInput) (*ReviewOutput, error) {
	review, err := s.services.Reviews.Get(ctx, input.BookID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReviewOutput{Body: mapReview(review)}, nil
}

func (s *Server) handleReplaceBookReview(ctx context.Context, input *ReplaceBookReviewInput) (*ReviewOutput, error) {
	return s.replaceReview(ctx, input.BookID, input.ID, input.Body)
}

func (s *Server) handleDeleteBookReview(ctx context.Context, input *BookReviewInput) (*DeleteReviewOutput, error) {
	return s.deleteReview(ctx, input.BookID, input.ID)
}

func (s *Server) handleAdminGetReview(ctx context.Context, input *ReviewIDInput) (*ReviewOutput, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	review, err := s.services.Reviews.Get(ctx, "", input.ID)
	if err != nil {
		return nil, err
	}
	return &ReviewOutput{Body: mapReview(review)}, nil
}

func (s *Server) handleAdminReplaceReview(ctx context.Context, input *AdminReplaceReviewInput) (*ReviewOutput, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.replaceReview(ctx, "", input.ID, input.Body)
}

func (s *Server) handleAdminDeleteReview(ctx context.Context, input *ReviewIDInput) (*DeleteReviewOutput, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.deleteReview(ctx, "", input.ID)
}

func (s *Server) replaceReview(ctx context.Context, bookID, id string, body ReviewRequest) (*ReviewOutput, error) {
	actor, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	review, err := s.services.Reviews.Replace(ctx, actor, bookID, id, reviewInput(body))
	if err != nil {
		return nil, err
	}
	return &ReviewOutput{Body: mapReview(review)}, nil
}

func (s *Server) deleteReview(ctx context.Context, bookID, id string) (*DeleteReviewOutput, error) {
	actor, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Reviews.Delete(ctx, actor, bookID, id); err != nil {
		return nil, err
	}
	return &DeleteReviewOutput{}, nil
}

func reviewInput(body ReviewRequest) service.ReviewInput {
	return service.ReviewInput{Rating: body.Rating, Body: body.Body, Letter: body.Letter}
}

func mapReview(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:          r.ID,
		Book:        r.BookID,
		User:        r.UserID,
		Rating:      r.Rating,
		Body:        r.Body,
		Letter:      r.Letter,
		PublishedAt: r.PublishedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
