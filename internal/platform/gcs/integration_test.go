//go:build integration

package gcs

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/mornoningo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a fake-gcs-server style emulator named by
// STORAGE_EMULATOR_HOST, with MORNO_TEST_GCS_BUCKET already created.
func TestIntegration_BlobStore(t *testing.T) {
	bucket := os.Getenv("MORNO_TEST_GCS_BUCKET")
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" || bucket == "" {
		t.Skip("STORAGE_EMULATOR_HOST or MORNO_TEST_GCS_BUCKET not set")
	}
	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s, err := New(client, bucket, "it", nil)
	require.NoError(t, err)

	id, err := s.Put(ctx, "deck.pptx", strings.NewReader("PK\x03\x04slides"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, id)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, "PK\x03\x04slides", string(data))

	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Open(ctx, id)
	assert.ErrorIs(t, err, store.ErrBlobNotFound)
}
