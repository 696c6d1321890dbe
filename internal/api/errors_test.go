package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/mornoningo-api/internal/api/shared"
	"github.com/phrazzld/mornoningo-api/internal/artifact"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/extract"
	"github.com/phrazzld/mornoningo-api/internal/generation"
	"github.com/phrazzld/mornoningo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", fmt.Errorf("%w: bad window", domain.ErrInvalidArgument), http.StatusBadRequest},
		{"unsupported format", extract.ErrUnsupportedFormat, http.StatusBadRequest},
		{"store invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"document not found", domain.ErrDocumentNotFound, http.StatusNotFound},
		{"artifact not found", domain.ErrArtifactNotFound, http.StatusNotFound},
		{"not ready", domain.ErrNotReady, http.StatusConflict},
		{"removed", fmt.Errorf("%w: %w", artifact.ErrBuildFailed, domain.ErrArtifactRemoved), http.StatusGone},
		{"no content", generation.ErrNoContent, http.StatusUnprocessableEntity},
		{"no pages", extract.ErrNoPages, http.StatusUnprocessableEntity},
		{"rate limited", fmt.Errorf("%w: %w", artifact.ErrBuildFailed, generation.ErrRateLimited), http.StatusTooManyRequests},
		{"unavailable", generation.ErrUnavailable, http.StatusBadGateway},
		{"invalid payload", artifact.ErrInvalidPayload, http.StatusBadGateway},
		{"closed", artifact.ErrClosed, http.StatusServiceUnavailable},
		{"model timeout", generation.ErrTimeout, http.StatusGatewayTimeout},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessageHidesInternals(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("query failed: password=hunter2 at /var/lib/db: %w", errors.New("driver"))
	msg := GetSafeErrorMessage(err)
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "hunter2")

	assert.Equal(t, "Document not found", GetSafeErrorMessage(domain.ErrDocumentNotFound))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestHandleAPIError(t *testing.T) {
	t.Parallel()

	t.Run("argument errors keep their detail", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/generate-learning-note", nil)
		HandleAPIError(w, r, fmt.Errorf("%w: window size must be 1..7", domain.ErrInvalidArgument), "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp shared.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "window size must be 1..7")
	})

	t.Run("explicit message wins", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/documents/x", nil)
		HandleAPIError(w, r, domain.ErrDocumentNotFound, "Nothing here")

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp shared.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Nothing here", resp.Error)
	})
}
