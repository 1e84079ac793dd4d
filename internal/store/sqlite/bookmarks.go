package sqlite

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/store"
)

const bookmarksTable = "bookmarks"

// bookmarkRow mirrors the bookmarks table.
type bookmarkRow struct {
	ID           string `db:"id"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
	UserID       string `db:"user_id"`
	BookID       string `db:"book_id"`
	BookmarkedAt string `db:"bookmarked_at"`
}

func (r *bookmarkRow) toDomain() (*domain.Bookmark, error) {
	bm := &domain.Bookmark{UserID: r.UserID, BookID: r.BookID}
	bm.ID = r.ID

	var err error
	if bm.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if bm.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, err
	}
	if bm.BookmarkedAt, err = parseTime(r.BookmarkedAt); err != nil {
		return nil, err
	}
	return bm, nil
}

// CreateBookmark inserts a new bookmark.
// Returns store.ErrAlreadyExists when the user already bookmarked the book.
func (s *Store) CreateBookmark(ctx context.Context, bm *domain.Bookmark) error {
	rec := goqu.Record{
		"id":            bm.ID,
		"created_at":    formatTime(bm.CreatedAt),
		"updated_at":    formatTime(bm.UpdatedAt),
		"user_id":       bm.UserID,
		"book_id":       bm.BookID,
		"bookmarked_at": formatTime(bm.BookmarkedAt),
	}
	return s.exec(ctx, dialect.Insert(bookmarksTable).Rows(rec).Prepared(true), false)
}

// DeleteBookmark removes a bookmark.
// Returns store.ErrNotFound if the bookmark does not exist.
func (s *Store) DeleteBookmark(ctx context.Context, id string) error {
	return s.exec(ctx, dialect.Delete(bookmarksTable).Where(goqu.C("id").Eq(id)).Prepared(true), true)
}

// GetBookmark retrieves a bookmark by id.
func (s *Store) GetBookmark(ctx context.Context, id string) (*domain.Bookmark, error) {
	var row bookmarkRow
	if err := s.get(ctx, &row, dialect.From(bookmarksTable).Where(goqu.C("id").Eq(id))); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// FindBookmark retrieves the bookmark of a (user, book) pair.
// Returns store.ErrNotFound when the pair is not bookmarked.
func (s *Store) FindBookmark(ctx context.Context, userID, bookID string) (*domain.Bookmark, error) {
	var row bookmarkRow
	ds := dialect.From(bookmarksTable).Where(goqu.Ex{"user_id": userID, "book_id": bookID})
	if err := s.get(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// ListBookmarks returns a page of bookmarks matching the filter.
func (s *Store) ListBookmarks(ctx context.Context, filter store.BookmarkFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.Bookmark], error) {
	ex := goqu.Ex{}
	if filter.UserID != "" {
		ex["user_id"] = filter.UserID
	}
	if filter.BookID != "" {
		ex["book_id"] = filter.BookID
	}

	ds := dialect.From(bookmarksTable)
	if len(ex) > 0 {
		ds = ds.Where(ex)
	}

	ds, limit, err := page(ds, params)
	if err != nil {
		return nil, err
	}

	var rows []bookmarkRow
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	bookmarks := make([]*domain.Bookmark, 0, len(rows))
	for i := range rows {
		bm, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, bm)
	}
	return paginate(bookmarks, limit, func(b *domain.Bookmark) string { return b.ID }), nil
}
