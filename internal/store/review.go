package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// ReviewStore persists the review entries of documents. Replace and
// DeleteByDocument are atomic per document: readers see either the old
// or the new set, never a mix.
type ReviewStore interface {
	// Replace swaps the full set of entries for a document.
	Replace(ctx context.Context, documentID uuid.UUID, entries []domain.ReviewEntry) error

	// ListByDocument returns a document's entries ordered by stage.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.ReviewEntry, error)

	// DeleteByDocument removes all entries of a document and reports how many were removed.
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int, error)

	// ListDue returns the entries due on the calendar date of on, ordered
	// by priority and then stage.
	ListDue(ctx context.Context, on time.Time) ([]domain.ReviewEntry, error)
}
