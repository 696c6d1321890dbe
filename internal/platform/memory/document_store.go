package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// DocumentStore implements store.DocumentStore in memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]domain.Document
}

// NewDocumentStore creates an empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[uuid.UUID]domain.Document)}
}

var _ store.DocumentStore = (*DocumentStore)(nil)

// Create implements store.DocumentStore.
func (s *DocumentStore) Create(_ context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return fmt.Errorf("%w: document %s", store.ErrDuplicate, doc.ID)
	}
	s.docs[doc.ID] = *doc
	return nil
}

// GetByID implements store.DocumentStore.
func (s *DocumentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return &doc, nil
}

// Update implements store.DocumentStore.
func (s *DocumentStore) Update(_ context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return store.ErrDocumentNotFound
	}
	s.docs[doc.ID] = *doc
	return nil
}

// List implements store.DocumentStore.
func (s *DocumentStore) List(_ context.Context) ([]*domain.Document, error) {
	s.mu.RLock()
	out := make([]*domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		d := doc
		out = append(out, &d)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *domain.Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Delete implements store.DocumentStore.
func (s *DocumentStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}
