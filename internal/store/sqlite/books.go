package sqlite

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/store"
)

const booksTable = "books"

// bookRow mirrors the books table.
type bookRow struct {
	ID        string         `db:"id"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
	BookURL   string         `db:"book_url"`
	Condition string         `db:"condition"`
	Title     string         `db:"title"`
	Author    string         `db:"author"`
	Slug      sql.NullString `db:"slug"`
}

func (r *bookRow) toDomain() (*domain.Book, error) {
	b := &domain.Book{
		Book:      r.BookURL,
		Condition: domain.BookCondition(r.Condition),
		Title:     r.Title,
		Author:    r.Author,
		Slug:      r.Slug.String,
	}
	b.ID = r.ID

	var err error
	if b.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

func bookRecord(b *domain.Book) goqu.Record {
	return goqu.Record{
		"id":         b.ID,
		"created_at": formatTime(b.CreatedAt),
		"updated_at": formatTime(b.UpdatedAt),
		"book_url":   b.Book,
		"condition":  string(b.Condition),
		"title":      b.Title,
		"author":     b.Author,
		"slug":       nullString(b.Slug),
	}
}

// CreateBook inserts a new book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	return s.exec(ctx, dialect.Insert(booksTable).Rows(bookRecord(book)).Prepared(true), false)
}

// UpdateBook performs a full row update on an existing book.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	rec := bookRecord(book)
	delete(rec, "id")
	delete(rec, "created_at")
	return s.exec(ctx, dialect.Update(booksTable).Set(rec).Where(goqu.C("id").Eq(book.ID)).Prepared(true), true)
}

// DeleteBook removes a book together with its reviews and bookmarks.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	return s.exec(ctx, dialect.Delete(booksTable).Where(goqu.C("id").Eq(id)).Prepared(true), true)
}

// GetBook retrieves a book by id.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var row bookRow
	if err := s.get(ctx, &row, dialect.From(booksTable).Where(goqu.C("id").Eq(id))); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// ListBooks returns a page of books matching the filter.
func (s *Store) ListBooks(ctx context.Context, filter store.BookFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.Book], error) {
	ds := dialect.From(booksTable)
	if filter.Title != "" {
		ds = ds.Where(goqu.C("title").Like("%" + filter.Title + "%"))
	}
	if filter.Author != "" {
		ds = ds.Where(goqu.C("author").Like("%" + filter.Author + "%"))
	}
	if filter.Condition != "" {
		ds = ds.Where(goqu.C("condition").Eq(string(filter.Condition)))
	}

	ds, limit, err := page(ds, params)
	if err != nil {
		return nil, err
	}

	books, err := s.scanBooks(ctx, ds)
	if err != nil {
		return nil, err
	}
	return paginate(books, limit, func(b *domain.Book) string { return b.ID }), nil
}

// ListBooksWithoutSlug returns every book whose slug has not been set.
func (s *Store) ListBooksWithoutSlug(ctx context.Context) ([]*domain.Book, error) {
	ds := dialect.From(booksTable).
		Where(goqu.Or(goqu.C("slug").IsNull(), goqu.C("slug").Eq(""))).
		Order(goqu.C("id").Asc())
	return s.scanBooks(ctx, ds)
}

func (s *Store) scanBooks(ctx context.Context, ds *goqu.SelectDataset) ([]*domain.Book, error) {
	var rows []bookRow
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}
	books := make([]*domain.Book, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}
