// Package store defines the persistence contracts of the BookClub server.
package store

import (
	"context"
	"time"

	"github.com/listenupapp/bookclub-server/internal/domain"
)

// Store is the full Resource Store used by the server.
type Store interface {
	UserStore
	BookStore
	ReviewStore
	BookmarkStore
	ReviewStats

	Close() error
}

// UserStore persists users. Email is unique.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, filter UserFilter, params PaginationParams) (*PaginatedResult[*domain.User], error)
}

// BookStore persists books.
type BookStore interface {
	CreateBook(ctx context.Context, book *domain.Book) error
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	ListBooks(ctx context.Context, filter BookFilter, params PaginationParams) (*PaginatedResult[*domain.Book], error)
	ListBooksWithoutSlug(ctx context.Context) ([]*domain.Book, error)
}

// ReviewStore persists reviews.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *domain.Review) error
	UpdateReview(ctx context.Context, review *domain.Review) error
	DeleteReview(ctx context.Context, id string) error
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter, params PaginationParams) (*PaginatedResult[*domain.Review], error)
}

// BookmarkStore persists bookmarks. The (user, book) pair is unique; a
// duplicate insert returns ErrAlreadyExists.
type BookmarkStore interface {
	CreateBookmark(ctx context.Context, bookmark *domain.Bookmark) error
	DeleteBookmark(ctx context.Context, id string) error
	GetBookmark(ctx context.Context, id string) (*domain.Bookmark, error)
	FindBookmark(ctx context.Context, userID, bookID string) (*domain.Bookmark, error)
	ListBookmarks(ctx context.Context, filter BookmarkFilter, params PaginationParams) (*PaginatedResult[*domain.Bookmark], error)
}

// ReviewStats answers read-side reporting queries over reviews.
type ReviewStats interface {
	// MostReviewedPeriod returns the period with the most published reviews.
	// found is false when there are no reviews at all.
	MostReviewedPeriod(ctx context.Context, granularity Granularity) (period PeriodCount, found bool, err error)
	// AverageRating returns the truncated average rating of a book, or nil
	// when the book has no reviews.
	AverageRating(ctx context.Context, bookID string) (*int, error)
}

// UserFilter narrows user listings. Name matches "First LAST" case-insensitively.
type UserFilter struct {
	Name string
}

// BookFilter narrows book listings. Title and Author are partial matches.
type BookFilter struct {
	Title     string
	Author    string
	Condition domain.BookCondition
}

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	BookID string
	UserID string
	Rating *int
}

// BookmarkFilter narrows bookmark listings.
type BookmarkFilter struct {
	UserID string
	BookID string
}

// Granularity selects the bucket size of the most-reviewed report.
type Granularity string

// Supported granularities.
const (
	Day   Granularity = "day"
	Month Granularity = "month"
)

// Layout returns the time layout of a period key at this granularity.
func (g Granularity) Layout() string {
	if g == Month {
		return "2006-01"
	}
	return "2006-01-02"
}

// Truncate returns the period key t falls into.
func (g Granularity) Truncate(t time.Time) string {
	return t.UTC().Format(g.Layout())
}

// PeriodCount is one bucket of the most-reviewed report.
type PeriodCount struct {
	Period string `db:"period"` // "2024-01-02" or "2024-01"
	Count  int    `db:"count"`
}
