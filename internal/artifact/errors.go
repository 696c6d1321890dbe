package artifact

import "errors"

var (
	// ErrBuildFailed wraps every error a build reports, both for the
	// in-process failure and for failed records loaded from the store.
	ErrBuildFailed = errors.New("artifact build failed")

	// ErrInvalidPayload is returned when a builder's payload does not match
	// its key's kind or fails validation.
	ErrInvalidPayload = errors.New("invalid artifact payload")

	// ErrNoBuilder is returned for a kind with no registered builder.
	ErrNoBuilder = errors.New("no builder registered for artifact kind")

	// ErrClosed is returned by Ensure after Close.
	ErrClosed = errors.New("artifact cache closed")
)
