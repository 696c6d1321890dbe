package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// BlobStore implements store.BlobStore in memory.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStore creates an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

var _ store.BlobStore = (*BlobStore)(nil)

// Put implements store.BlobStore.
func (s *BlobStore) Put(_ context.Context, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()
	return id, nil
}

// Open implements store.BlobStore.
func (s *BlobStore) Open(_ context.Context, fileID string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete implements store.BlobStore.
func (s *BlobStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	delete(s.blobs, fileID)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
