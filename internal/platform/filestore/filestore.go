// Package filestore keeps uploaded files on the local filesystem.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phrazzld/mornoningo-api/internal/platform/logger"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// BlobStore implements store.BlobStore under a single directory. Files are
// written to a temporary name and renamed into place, so readers never see
// partial uploads.
type BlobStore struct {
	dir    string
	logger *slog.Logger
}

// New creates the directory if needed and returns a BlobStore rooted there.
func New(dir string, logger *slog.Logger) (*BlobStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{
		dir:    dir,
		logger: logger.With(slog.String("component", "filestore")),
	}, nil
}

var _ store.BlobStore = (*BlobStore)(nil)

// Put implements store.BlobStore.
func (s *BlobStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	id := store.NewBlobID(name)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("stored upload",
		slog.String("file_id", id),
		slog.Int64("bytes", n))
	return id, nil
}

// Open implements store.BlobStore.
func (s *BlobStore) Open(_ context.Context, fileID string) (io.ReadCloser, error) {
	if !store.ValidBlobID(fileID) {
		return nil, store.ErrBlobNotFound
	}
	f, err := os.Open(s.path(fileID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", fileID, err)
	}
	return f, nil
}

// Delete implements store.BlobStore.
func (s *BlobStore) Delete(_ context.Context, fileID string) error {
	if !store.ValidBlobID(fileID) {
		return nil
	}
	if err := os.Remove(s.path(fileID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", fileID, err)
	}
	return nil
}

func (s *BlobStore) path(fileID string) string {
	return filepath.Join(s.dir, fileID)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
