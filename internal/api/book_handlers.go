package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/service"
	"github.com/listenupapp/bookclub-server/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/books",
		Summary:     "List books",
		Description: "Returns the public catalog with average ratings",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/books/{bookId}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListBooks",
		Method:      http.MethodGet,
		Path:        "/admin/books",
		Summary:     "List books (admin)",
		Description: "Returns the catalog for administration",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "adminCreateBook",
		Method:        http.MethodPost,
		Path:          "/admin/books",
		Summary:       "Create book",
		Description:   "Adds a book. Title and author are resolved from the catalog reference.",
		Tags:          []string{"Admin"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetBook",
		Method:      http.MethodGet,
		Path:        "/admin/books/{id}",
		Summary:     "Get book (admin)",
		Description: "Returns a book by ID",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminReplaceBook",
		Method:      http.MethodPut,
		Path:        "/admin/books/{id}",
		Summary:     "Replace book",
		Description: "Fully replaces a book",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleReplaceBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "adminDeleteBook",
		Method:        http.MethodDelete,
		Path:          "/admin/books/{id}",
		Summary:       "Delete book",
		Description:   "Deletes a book with its reviews and bookmarks",
		Tags:          []string{"Admin"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)
}

// === DTOs ===

// ListBooksInput contains filters for listing books.
type ListBooksInput struct {
	Title     string `query:"title" doc:"Partial title match"`
	Author    string `query:"author" doc:"Partial author match"`
	Condition string `query:"condition" doc:"Exact condition IRI"`
	Limit     int    `query:"limit" default:"30" minimum:"1" maximum:"100" doc:"Items per page"`
	Cursor    string `query:"cursor" doc:"Pagination cursor"`
}

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID        string    `json:"id" doc:"Book ID"`
	Book      string    `json:"book" doc:"Catalog reference URL"`
	Condition string    `json:"condition" doc:"Condition IRI"`
	Title     string    `json:"title" doc:"Title from the catalog"`
	Author    string    `json:"author,omitempty" doc:"Author from the catalog"`
	Slug      string    `json:"slug,omitempty" doc:"URL-safe slug"`
	Rating    *int      `json:"rating,omitempty" doc:"Truncated average review rating"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// ListBooksResponse contains a page of books.
type ListBooksResponse struct {
	Books      []BookResponse `json:"books" doc:"Books on this page"`
	NextCursor string         `json:"next_cursor,omitempty" doc:"Cursor of the next page"`
	HasMore    bool           `json:"has_more" doc:"Whether more pages exist"`
}

// ListBooksOutput wraps the list books response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// GetBookInput contains parameters for getting a public book.
type GetBookInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
}

// BookIDInput addresses a book on admin routes.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookRequest is the request body for creating or replacing a book.
type BookRequest struct {
	Book      string `json:"book" doc:"Catalog reference URL, e.g. https://openlibrary.org/books/OL2055137M.json"`
	Condition string `json:"condition" doc:"Condition IRI, e.g. https://schema.org/UsedCondition"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body BookRequest
}

// ReplaceBookInput wraps the replace book request for Huma.
type ReplaceBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookRequest
}

// BookOutput wraps the book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// DeleteBookOutput is empty; the route answers 204.
type DeleteBookOutput struct{}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	return s.listBooks(ctx, input)
}

func (s *Server) handleAdminListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.listBooks(ctx, input)
}

func (s *Server) listBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	page, err := s.services.Books.List(ctx,
		store.BookFilter{
			Title:     input.Title,
			Author:    input.Author,
			Condition: domain.BookCondition(input.Condition),
		},
		store.PaginationParams{Limit: input.Limit, Cursor: input.Cursor},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]BookResponse, len(page.Items))
	for i, b := range page.Items {
		resp[i] = mapBook(b)
	}

	return &ListBooksOutput{Body: ListBooksResponse{
		Books:      resp,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Books.Get(ctx, input.BookID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBook(book)}, nil
}

func (s *Server) handleAdminGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	book, err := s.services.Books.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBook(book)}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.Create(ctx, actor, service.BookInput{
		Book:      input.Body.Book,
		Condition: domain.BookCondition(input.Body.Condition),
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBook(book)}, nil
}

func (s *Server) handleReplaceBook(ctx context.Context, input *ReplaceBookInput) (*BookOutput, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.Replace(ctx, actor, input.ID, service.BookInput{
		Book:      input.Body.Book,
		Condition: domain.BookCondition(input.Body.Condition),
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: mapBook(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*DeleteBookOutput, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Books.Delete(ctx, actor, input.ID); err != nil {
		return nil, err
	}
	return &DeleteBookOutput{}, nil
}

func mapBook(b *domain.Book) BookResponse {
	return BookResponse{
		ID:        b.ID,
		Book:      b.Book,
		Condition: string(b.Condition),
		Title:     b.Title,
		Author:    b.Author,
		Slug:      b.Slug,
		Rating:    b.Rating,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
