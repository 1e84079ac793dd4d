package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/store"
)

func (s *Server) registerBookmarkRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBookmarks",
		Method:      http.MethodGet,
		Path:        "/bookmarks",
		Summary:     "List bookmarks",
		Description: "Returns the current user's bookmarks",
		Tags:        []string{"Bookmarks"},
		Security:    bearer,
	}, s.handleListBookmarks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBookmark",
		Method:        http.MethodPost,
		Path:          "/bookmarks",
		Summary:       "Bookmark a book",
		Description:   "Bookmarks a book for the current user. A book can be bookmarked once.",
		Tags:          []string{"Bookmarks"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBookmark)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBookmark",
		Method:        http.MethodDelete,
		Path:          "/bookmarks/{id}",
		Summary:       "Delete bookmark",
		Description:   "Removes one of the current user's bookmarks",
		Tags:          []string{"Bookmarks"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBookmark)
}

// ListBookmarksInput contains pagination parameters.
type ListBookmarksInput struct {
	Limit  int    `query:"limit" default:"30" minimum:"1" maximum:"100" doc:"Items per page"`
	Cursor string `query:"cursor" doc:"Pagination cursor"`
}

// BookmarkResponse contains bookmark data in API responses.
type BookmarkResponse struct {
	ID           string    `json:"id" doc:"Bookmark ID"`
	Book         string    `json:"book" doc:"Bookmarked book ID"`
	User         string    `json:"user" doc:"Owner user ID"`
	BookmarkedAt time.Time `json:"bookmarkedAt" doc:"When the book was bookmarked"`
}

// ListBookmarksResponse contains a page of bookmarks.
type ListBookmarksResponse struct {
	Bookmarks  []BookmarkResponse `json:"bookmarks" doc:"Bookmarks on this page"`
	NextCursor string             `json:"next_cursor,omitempty" doc:"Cursor of the next page"`
	HasMore    bool               `json:"has_more" doc:"Whether more pages exist"`
}

// ListBookmarksOutput wraps the list bookmarks response for Huma.
type ListBookmarksOutput struct {
	Body ListBookmarksResponse
}

// CreateBookmarkRequest is the request body for bookmarking a book.
type CreateBookmarkRequest struct {
	Book string `json:"book" doc:"Book ID"`
}

// CreateBookmarkInput wraps the create bookmark request for Huma.
type CreateBookmarkInput struct {
	Body CreateBookmarkRequest
}

// BookmarkOutput wraps the bookmark response for Huma.
type BookmarkOutput struct {
	Body BookmarkResponse
}

// DeleteBookmarkInput addresses a bookmark.
type DeleteBookmarkInput struct {
	ID string `path:"id" doc:"Bookmark ID"`
}

// DeleteBookmarkOutput is empty; the route answers 204.
type DeleteBookmarkOutput struct{}

func (s *Server) handleListBookmarks(ctx context.Context, input *ListBookmarksInput) (*ListBookmarksOutput, error) {
	actor, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Bookmarks.ListMine(ctx, actor, store.PaginationParams{Limit: input.Limit, Cursor: input.Cursor})
	if err != nil {
		return nil, err
	}

	resp := make([]BookmarkResponse, len(page.Items))
	for i, b := range page.Items {
		resp[i] = mapBookmark(b)
	}

	return &ListBookmarksOutput{Body: ListBookmarksResponse{
		Bookmarks:  resp,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (s *Server) handleCreateBookmark(ctx context.Context, input *CreateBookmarkInput) (*BookmarkOutput, error) {
	actor, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	bookmark, err := s.services.Bookmarks.Create(ctx, actor, input.Body.Book)
	if err != nil {
		return nil, err
	}
	return &BookmarkOutput{Body: mapBookmark(bookmark)}, nil
}

func (s *Server) handleDeleteBookmark(ctx context.Context, input *DeleteBookmarkInput) (*DeleteBookmarkOutput, error) {
	actor, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Bookmarks.Delete(ctx, actor, input.ID); err != nil {
		return nil, err
	}
	return &DeleteBookmarkOutput{}, nil
}

func mapBookmark(b *domain.Bookmark) BookmarkResponse {
	return BookmarkResponse{
		ID:           b.ID,
		Book:         b.BookID,
		User:         b.UserID,
		BookmarkedAt: b.BookmarkedAt,
	}
}
