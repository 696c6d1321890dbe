package srs

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// calculateDueDate determines the calendar date on which a review is due.
//
// Due dates are whole calendar dates, so the creation time is first truncated
// to its date before the offset is applied. Calendar arithmetic is used rather
// than 24-hour durations, so month ends and leap days land on the expected
// date.
//
// Parameters:
//   - createdOn: The document's creation time; only its date is used
//   - offsetDays: Number of days after creation the review falls due
//
// Returns:
//   - Midnight UTC of the due date
func calculateDueDate(createdOn time.Time, offsetDays int) time.Time {
	return domain.DateOf(createdOn).AddDate(0, 0, offsetDays)
}

// buildInitialReviews produces one review entry per configured offset.
//
// Stages are numbered from 1 in offset order, and every entry receives the
// same priority. Entry IDs are freshly generated; the function is otherwise
// deterministic in its inputs.
func buildInitialReviews(
	documentID uuid.UUID,
	createdOn time.Time,
	now time.Time,
	params *Params,
) []domain.ReviewEntry {
	entries := make([]domain.ReviewEntry, 0, len(params.OffsetDays))
	for i, offset := range params.OffsetDays {
		entries = append(entries, domain.ReviewEntry{
			ID:         uuid.New(),
			DocumentID: documentID,
			DueDate:    calculateDueDate(createdOn, offset),
			Stage:      i + 1,
			Priority:   params.Priority,
			CreatedAt:  now,
		})
	}
	return entries
}
