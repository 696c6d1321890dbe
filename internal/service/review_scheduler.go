package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/domain/srs"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// ReviewScheduler persists the spaced-repetition reviews of documents.
type ReviewScheduler struct {
	reviews store.ReviewStore
	srs     srs.Service
	logger  *slog.Logger
}

// NewReviewScheduler creates a scheduler. A nil schedule service selects
// the default 1/3/7/14 day schedule.
func NewReviewScheduler(reviews store.ReviewStore, schedule srs.Service, logger *slog.Logger) *ReviewScheduler {
	if schedule == nil {
		schedule = srs.NewDefaultService()
	}
	return &ReviewScheduler{
		reviews: reviews,
		srs:     schedule,
		logger:  logger.With("component", "review_scheduler"),
	}
}

// ScheduleInitialReviews replaces the reviews of a document with its
// initial schedule counted from createdOn.
func (s *ReviewScheduler) ScheduleInitialReviews(
	ctx context.Context,
	documentID uuid.UUID,
	createdOn time.Time,
) ([]domain.ReviewEntry, error) {
	entries, err := s.srs.InitialReviews(documentID, createdOn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	if err := s.reviews.Replace(ctx, documentID, entries); err != nil {
		return nil, NewServiceError("schedule_reviews", "failed to store reviews", err)
	}

	s.logger.DebugContext(ctx, "scheduled initial reviews",
		"document_id", documentID,
		"count", len(entries),
		"first_due", entries[0].DueDate.Format(domain.DateLayout))
	return entries, nil
}

// CancelReviews removes every review of a document and reports how many
// were removed.
func (s *ReviewScheduler) CancelReviews(ctx context.Context, documentID uuid.UUID) (int, error) {
	n, err := s.reviews.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, NewServiceError("cancel_reviews", "failed to delete reviews", err)
	}
	s.logger.DebugContext(ctx, "cancelled reviews", "document_id", documentID, "count", n)
	return n, nil
}

// ReviewsForDocument lists the reviews of a document ordered by stage.
func (s *ReviewScheduler) ReviewsForDocument(ctx context.Context, documentID uuid.UUID) ([]domain.ReviewEntry, error) {
	entries, err := s.reviews.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, NewServiceError("list_reviews", "failed to list reviews", err)
	}
	return entries, nil
}

// DueReviews lists the reviews due on the calendar date of on, highest
// priority first.
func (s *ReviewScheduler) DueReviews(ctx context.Context, on time.Time) ([]domain.ReviewEntry, error) {
	entries, err := s.reviews.ListDue(ctx, domain.DateOf(on))
	if err != nil {
		return nil, NewServiceError("due_reviews", "failed to list due reviews", err)
	}
	return entries, nil
}
