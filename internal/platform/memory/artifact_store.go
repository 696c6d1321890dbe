package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// ArtifactStore implements store.ArtifactStore in memory. Records are
// copied, payload pointers are shared.
type ArtifactStore struct {
	mu      sync.RWMutex
	records map[domain.ArtifactKey]*domain.ArtifactRecord
}

// NewArtifactStore creates an empty ArtifactStore.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{records: make(map[domain.ArtifactKey]*domain.ArtifactRecord)}
}

var _ store.ArtifactStore = (*ArtifactStore)(nil)

// Get implements store.ArtifactStore.
func (s *ArtifactStore) Get(_ context.Context, key domain.ArtifactKey) (*domain.ArtifactRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, store.ErrArtifactNotFound
	}
	return rec.Clone(), nil
}

// Put implements store.ArtifactStore.
func (s *ArtifactStore) Put(_ context.Context, rec *domain.ArtifactRecord) error {
	s.mu.Lock()
	s.records[rec.Key] = rec.Clone()
	s.mu.Unlock()
	return nil
}

// ListByDocument implements store.ArtifactStore.
func (s *ArtifactStore) ListByDocument(_ context.Context, documentID uuid.UUID) ([]*domain.ArtifactRecord, error) {
	s.mu.RLock()
	var out []*domain.ArtifactRecord
	for key, rec := range s.records {
		if key.DocumentID == documentID {
			out = append(out, rec.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *domain.ArtifactRecord) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return out, nil
}
