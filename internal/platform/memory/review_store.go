package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// ReviewStore implements store.ReviewStore in memory. A single lock covers
// each document's full entry set, so replacement and deletion are atomic
// with respect to readers.
type ReviewStore struct {
	mu      sync.RWMutex
	reviews map[uuid.UUID][]domain.ReviewEntry
}

// NewReviewStore creates an empty ReviewStore.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{reviews: make(map[uuid.UUID][]domain.ReviewEntry)}
}

var _ store.ReviewStore = (*ReviewStore)(nil)

// Replace implements store.ReviewStore.
func (s *ReviewStore) Replace(_ context.Context, documentID uuid.UUID, entries []domain.ReviewEntry) error {
	cp := slices.Clone(entries)
	slices.SortFunc(cp, func(a, b domain.ReviewEntry) int { return cmp.Compare(a.Stage, b.Stage) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(cp) == 0 {
		delete(s.reviews, documentID)
		return nil
	}
	s.reviews[documentID] = cp
	return nil
}

// ListByDocument implements store.ReviewStore.
func (s *ReviewStore) ListByDocument(_ context.Context, documentID uuid.UUID) ([]domain.ReviewEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.reviews[documentID]), nil
}

// DeleteByDocument implements store.ReviewStore.
func (s *ReviewStore) DeleteByDocument(_ context.Context, documentID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.reviews[documentID])
	delete(s.reviews, documentID)
	return n, nil
}

// ListDue implements store.ReviewStore.
func (s *ReviewStore) ListDue(_ context.Context, on time.Time) ([]domain.ReviewEntry, error) {
	day := domain.DateOf(on)

	s.mu.RLock()
	var out []domain.ReviewEntry
	for _, entries := range s.reviews {
		for _, e := range entries {
			if e.DueDate.Equal(day) {
				out = append(out, e)
			}
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.ReviewEntry) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Stage, b.Stage)
	})
	return out, nil
}
