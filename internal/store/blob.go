package store

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore holds uploaded file bytes. File IDs are opaque to callers.
type BlobStore interface {
	// Put stores the content read from r and returns its file ID. name is
	// the client-supplied file name and is used only to derive an extension.
	Put(ctx context.Context, name string, r io.Reader) (string, error)

	// Open returns a reader for a stored file.
	// Returns ErrBlobNotFound if the file does not exist.
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)

	// Delete removes a stored file. Deleting a missing file is not an error.
	Delete(ctx context.Context, fileID string) error
}

// maxBlobExtLen bounds the extension kept from client file names.
const maxBlobExtLen = 8

// NewBlobID returns a fresh file ID for a client file name: a random UUID
// plus the lowercased extension of name when it is short and alphanumeric.
func NewBlobID(name string) string {
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > maxBlobExtLen {
		return id
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return id
		}
	}
	return id + ext
}

// ValidBlobID reports whether id has the shape produced by NewBlobID. Blob
// stores reject anything else before touching their backend.
func ValidBlobID(id string) bool {
	base, _, _ := strings.Cut(id, ".")
	if _, err := uuid.Parse(base); err != nil || len(base) != 36 {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}
