package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	assert.Len(t, GetTraceID(traced), 32)
	assert.Empty(t, GetTraceID(ctx), "parent context unchanged")

	wrongType := context.WithValue(ctx, TraceIDKey, 123)
	assert.Empty(t, GetTraceID(wrongType))
}

func TestGenerateTraceID(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		id := generateTraceID(rand.Reader)
		_, err := hex.DecodeString(id)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestGenerateTraceIDFallback(t *testing.T) {
	id := generateTraceID(iotest.ErrReader(errors.New("entropy exhausted")))
	assert.Len(t, id, 32)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)
}
