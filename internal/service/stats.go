package service

import (
	"context"
	"fmt"

	"github.com/listenupapp/bookclub-server/internal/store"
)

// ReviewStatsService answers reporting questions about reviews.
type ReviewStatsService struct {
	stats store.ReviewStats
}

// NewReviewStatsService creates a review stats service.
func NewReviewStatsService(stats store.ReviewStats) *ReviewStatsService {
	return &ReviewStatsService{stats: stats}
}

// MostReviewed returns the day or month with the most published reviews.
// Ties go to the most recent period. found is false when nothing has been
// reviewed yet.
func (s *ReviewStatsService) MostReviewed(ctx context.Context, granularity store.Granularity) (store.PeriodCount, bool, error) {
	if granularity != store.Day && granularity != store.Month {
		return store.PeriodCount{}, false, fmt.Errorf("unsupported granularity %q", granularity)
	}
	period, found, err := s.stats.MostReviewedPeriod(ctx, granularity)
	if err != nil {
		return store.PeriodCount{}, false, fmt.Errorf("most reviewed %s: %w", granularity, err)
	}
	return period, found, nil
}

// AverageRating returns the truncated average rating of a book, or nil
// when it has no reviews.
func (s *ReviewStatsService) AverageRating(ctx context.Context, bookID string) (*int, error) {
	rating, err := s.stats.AverageRating(ctx, bookID)
	if err != nil {
		return nil, fromStore(err, "rating")
	}
	return rating, nil
}
