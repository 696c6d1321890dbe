// Package gcs keeps uploaded files in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/mornoningo-api/internal/platform/logger"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// DefaultPrefix is the object name prefix for uploads.
const DefaultPrefix = "uploads"

// BlobStore implements store.BlobStore on a GCS bucket.
type BlobStore struct {
	bucket *storage.BucketHandle
	prefix string
	logger *slog.Logger
}

// New returns a BlobStore writing objects under prefix in bucket. The client
// honours STORAGE_EMULATOR_HOST, which tests use to reach an emulator.
func New(client *storage.Client, bucket, prefix string, logger *slog.Logger) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("storage client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket name cannot be empty")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{
		bucket: client.Bucket(bucket),
		prefix: prefix,
		logger: logger.With(slog.String("component", "gcs_blob_store"), slog.String("bucket", bucket)),
	}, nil
}

var _ store.BlobStore = (*BlobStore)(nil)

// Put implements store.BlobStore. Objects are created only if absent.
func (s *BlobStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	id := store.NewBlobID(name)

	w := s.object(id).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		log.Error("failed to copy upload to GCS",
			slog.String("file_id", id),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		log.Error("failed to finalize GCS write",
			slog.String("file_id", id),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	log.Debug("stored upload", slog.String("file_id", id), slog.Int64("bytes", n))
	return id, nil
}

// Open implements store.BlobStore.
func (s *BlobStore) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if !store.ValidBlobID(fileID) {
		return nil, store.ErrBlobNotFound
	}
	rc, err := s.object(fileID).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, store.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open GCS object %s: %w", fileID, err)
	}
	return rc, nil
}

// Delete implements store.BlobStore.
func (s *BlobStore) Delete(ctx context.Context, fileID string) error {
	if !store.ValidBlobID(fileID) {
		return nil
	}
	err := s.object(fileID).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %s: %w", fileID, err)
	}
	return nil
}

func (s *BlobStore) object(fileID string) *storage.ObjectHandle {
	return s.bucket.Object(objectName(s.prefix, fileID))
}

func objectName(prefix, fileID string) string {
	return path.Join(prefix, fileID)
}
