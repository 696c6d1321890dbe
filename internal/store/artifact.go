package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// ArtifactStore persists artifact records keyed by ArtifactKey.
// Only the artifact build-cache writes through this interface.
type ArtifactStore interface {
	// Get returns the record for key.
	// Returns ErrArtifactNotFound if no record exists.
	Get(ctx context.Context, key domain.ArtifactKey) (*domain.ArtifactRecord, error)

	// Put creates or replaces the record for rec.Key.
	Put(ctx context.Context, rec *domain.ArtifactRecord) error

	// ListByDocument returns every record of a document in any status.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*domain.ArtifactRecord, error)
}
