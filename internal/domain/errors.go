package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidArgument is returned for caller bugs such as a window size
	// below one or a malformed artifact key. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotReady is returned when an artifact is requested before the
	// document's extraction has completed.
	ErrNotReady = errors.New("document not ready")

	// ErrInvalidTransition is returned when a status transition is not
	// allowed from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDocumentNotFound is returned when a document does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrArtifactNotFound is returned when no ready artifact exists.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactRemoved is returned by handles and keys whose artifact was
	// removed together with its document.
	ErrArtifactRemoved = errors.New("artifact removed")
)
