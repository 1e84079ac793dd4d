package sqlite

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/store"
)

const reviewsTable = "reviews"

// reviewRow mirrors the reviews table.
type reviewRow struct {
	ID          string         `db:"id"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
	BookID      string         `db:"book_id"`
	UserID      string         `db:"user_id"`
	PublishedAt string         `db:"published_at"`
	Rating      int            `db:"rating"`
	Body        string         `db:"body"`
	Letter      sql.NullString `db:"letter"`
}

func (r *reviewRow) toDomain() (*domain.Review, error) {
	rv := &domain.Review{
		BookID: r.BookID,
		UserID: r.UserID,
		Rating: r.Rating,
		Body:   r.Body,
	}
	rv.ID = r.ID
	if r.Letter.Valid {
		letter := r.Letter.String
		rv.Letter = &letter
	}

	var err error
	if rv.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if rv.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, err
	}
	if rv.PublishedAt, err = parseTime(r.PublishedAt); err != nil {
		return nil, err
	}
	return rv, nil
}

func reviewRecord(r *domain.Review) goqu.Record {
	return goqu.Record{
		"id":           r.ID,
		"created_at":   formatTime(r.CreatedAt),
		"updated_at":   formatTime(r.UpdatedAt),
		"book_id":      r.BookID,
		"user_id":      r.UserID,
		"published_at": formatTime(r.PublishedAt),
		"rating":       r.Rating,
		"body":         r.Body,
		"letter":       nullableString(r.Letter),
	}
}

// CreateReview inserts a new review.
func (s *Store) CreateReview(ctx context.Context, review *domain.Review) error {
	return s.exec(ctx, dialect.Insert(reviewsTable).Rows(reviewRecord(review)).Prepared(true), false)
}

// UpdateReview performs a full row update on an existing review.
// Returns store.ErrNotFound if the review does not exist.
func (s *Store) UpdateReview(ctx context.Context, review *domain.Review) error {
	rec := reviewRecord(review)
	delete(rec, "id")
	delete(rec, "created_at")
	return s.exec(ctx, dialect.Update(reviewsTable).Set(rec).Where(goqu.C("id").Eq(review.ID)).Prepared(true), true)
}

// DeleteReview removes a review.
// Returns store.ErrNotFound if the review does not exist.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return s.exec(ctx, dialect.Delete(reviewsTable).Where(goqu.C("id").Eq(id)).Prepared(true), true)
}

// GetReview retrieves a review by id.
func (s *Store) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	var row reviewRow
	if err := s.get(ctx, &row, dialect.From(reviewsTable).Where(goqu.C("id").Eq(id))); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// ListReviews returns a page of reviews matching the filter.
func (s *Store) ListReviews(ctx context.Context, filter store.ReviewFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.Review], error) {
	ex := goqu.Ex{}
	if filter.BookID != "" {
		ex["book_id"] = filter.BookID
	}
	if filter.UserID != "" {
		ex["user_id"] = filter.UserID
	}
	if filter.Rating != nil {
		ex["rating"] = *filter.Rating
	}

	ds := dialect.From(reviewsTable)
	if len(ex) > 0 {
		ds = ds.Where(ex)
	}

	ds, limit, err := page(ds, params)
	if err != nil {
		return nil, err
	}

	var rows []reviewRow
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	reviews := make([]*domain.Review, 0, len(rows))
	for i := range rows {
		rv, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return paginate(reviews, limit, func(r *domain.Review) string { return r.ID }), nil
}
