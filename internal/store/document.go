package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// DocumentStore defines the interface for document record persistence.
type DocumentStore interface {
	// Create saves a new document.
	// Returns ErrInvalidEntity if the document fails validation and
	// ErrDuplicate if the ID is taken.
	Create(ctx context.Context, doc *domain.Document) error

	// GetByID retrieves a document by its unique ID.
	// Returns ErrDocumentNotFound if the document does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	// Update overwrites an existing document.
	// Returns ErrDocumentNotFound if the document does not exist.
	Update(ctx context.Context, doc *domain.Document) error

	// List returns all documents, newest first.
	List(ctx context.Context) ([]*domain.Document, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PageTextStore persists the extracted page texts of a document.
type PageTextStore interface {
	// Put replaces the page texts of a document.
	Put(ctx context.Context, documentID uuid.UUID, pages []string) error

	// Get returns the page texts in page order.
	// Returns ErrPageTextNotFound if none are stored.
	Get(ctx context.Context, documentID uuid.UUID) ([]string, error)

	// Delete removes the page texts of a document, if any.
	Delete(ctx context.Context, documentID uuid.UUID) error
}
