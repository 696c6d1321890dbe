package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used for review due dates.
const DateLayout = "2006-01-02"

// Review entry validation errors
var (
	ErrEmptyReviewID       = errors.New("review ID cannot be empty")
	ErrEmptyReviewDocument = errors.New("review document ID cannot be empty")
	ErrInvalidReviewStage  = errors.New("review stage must be at least 1")
)

// ReviewEntry is one scheduled spaced-repetition review of a document.
type ReviewEntry struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	DueDate    time.Time `json:"due_date"`
	Stage      int       `json:"stage"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks if the ReviewEntry has valid data.
func (r *ReviewEntry) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyReviewID
	}
	if r.DocumentID == uuid.Nil {
		return ErrEmptyReviewDocument
	}
	if r.Stage < 1 {
		return ErrInvalidReviewStage
	}
	return nil
}

// DateOf truncates t to midnight UTC of its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
