package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/listenupapp/bookclub-server/internal/store"
)

// MostReviewedPeriod groups reviews by the day or month of publication and
// returns the busiest bucket. Ties go to the most recent bucket.
//
// published_at is stored as UTC RFC3339, so the leading "YYYY-MM-DD" or
// "YYYY-MM" characters are the truncated period.
func (s *Store) MostReviewedPeriod(ctx context.Context, granularity store.Granularity) (store.PeriodCount, bool, error) {
	width := len(granularity.Layout())

	ds := dialect.From(reviewsTable).
		Select(
			goqu.Func("SUBSTR", goqu.C("published_at"), 1, width).As("period"),
			goqu.COUNT(goqu.Star()).As("count"),
		).
		GroupBy(goqu.C("period")).
		Order(goqu.C("count").Desc(), goqu.C("period").Desc()).
		Limit(1)

	var pc store.PeriodCount
	err := s.get(ctx, &pc, ds)
	if store.IsNotFound(err) {
		return store.PeriodCount{}, false, nil
	}
	if err != nil {
		return store.PeriodCount{}, false, fmt.Errorf("most reviewed %s: %w", granularity, err)
	}
	return pc, true, nil
}

// AverageRating returns the truncated average rating of a book, or nil
// when the book has no reviews.
func (s *Store) AverageRating(ctx context.Context, bookID string) (*int, error) {
	ds := dialect.From(reviewsTable).
		Select(goqu.AVG(goqu.C("rating"))).
		Where(goqu.C("book_id").Eq(bookID))

	var avg sql.NullFloat64
	if err := s.get(ctx, &avg, ds); err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	rating := int(avg.Float64)
	return &rating, nil
}
