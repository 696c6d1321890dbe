package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// PageTextStore implements store.PageTextStore in memory.
type PageTextStore struct {
	mu    sync.RWMutex
	pages map[uuid.UUID][]string
}

// NewPageTextStore creates an empty PageTextStore.
func NewPageTextStore() *PageTextStore {
	return &PageTextStore{pages: make(map[uuid.UUID][]string)}
}

var _ store.PageTextStore = (*PageTextStore)(nil)

// Put implements store.PageTextStore.
func (s *PageTextStore) Put(_ context.Context, documentID uuid.UUID, pages []string) error {
	cp := slices.Clone(pages)
	if cp == nil {
		cp = []string{}
	}
	s.mu.Lock()
	s.pages[documentID] = cp
	s.mu.Unlock()
	return nil
}

// Get implements store.PageTextStore.
func (s *PageTextStore) Get(_ context.Context, documentID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages, ok := s.pages[documentID]
	if !ok {
		return nil, store.ErrPageTextNotFound
	}
	return slices.Clone(pages), nil
}

// Delete implements store.PageTextStore.
func (s *PageTextStore) Delete(_ context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	delete(s.pages, documentID)
	s.mu.Unlock()
	return nil
}
