package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/mornoningo-api/internal/api/shared"
	"github.com/phrazzld/mornoningo-api/internal/artifact"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/extract"
	"github.com/phrazzld/mornoningo-api/internal/generation"
	"github.com/phrazzld/mornoningo-api/internal/redact"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing their messages.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, extract.ErrTooLarge):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrArtifactNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict

	case errors.Is(err, domain.ErrArtifactRemoved):
		return http.StatusGone

	case errors.Is(err, generation.ErrNoContent),
		errors.Is(err, generation.ErrContentBlocked),
		errors.Is(err, extract.ErrNoPages),
		errors.Is(err, extract.ErrMalformed):
		return http.StatusUnprocessableEntity

	case errors.Is(err, generation.ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, generation.ErrUnavailable),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, artifact.ErrInvalidPayload):
		return http.StatusBadGateway

	case errors.Is(err, artifact.ErrClosed):
		return http.StatusServiceUnavailable

	case errors.Is(err, generation.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "Unsupported file format; upload a PDF or PPTX file"
	case errors.Is(err, extract.ErrTooLarge):
		return "File too large"
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"
	case errors.Is(err, domain.ErrDocumentNotFound):
		return "Document not found"
	case errors.Is(err, domain.ErrArtifactNotFound):
		return "Artifact not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, domain.ErrNotReady):
		return "Document is not ready; text extraction has not finished"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "Operation not allowed in the current state"
	case errors.Is(err, domain.ErrArtifactRemoved):
		return "Document was deleted"
	case errors.Is(err, generation.ErrNoContent), errors.Is(err, extract.ErrNoPages):
		return "Document has no extractable text"
	case errors.Is(err, extract.ErrMalformed):
		return "Document could not be read"
	case errors.Is(err, generation.ErrContentBlocked):
		return "Content was blocked by the language model"
	case errors.Is(err, generation.ErrRateLimited):
		return "Language model rate limit reached; try again later"
	case errors.Is(err, generation.ErrUnavailable),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, artifact.ErrInvalidPayload):
		return "Language model request failed"
	case errors.Is(err, artifact.ErrClosed):
		return "Server is shutting down"
	case errors.Is(err, generation.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return "Language model request timed out"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for err. A non-empty message
// overrides the derived client message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
		// Argument errors carry only request-derived detail.
		if errors.Is(err, domain.ErrInvalidArgument) {
			message = redact.String(err.Error())
		}
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict || status == http.StatusGone {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
