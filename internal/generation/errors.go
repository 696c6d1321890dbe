package generation

import (
	"context"
	"errors"
)

// Common errors returned by the generation package
var (
	// ErrRateLimited is returned when the model provider throttles the call.
	ErrRateLimited = errors.New("language model rate limited")

	// ErrTimeout is returned when a model call exceeds its deadline.
	ErrTimeout = errors.New("language model call timed out")

	// ErrUnavailable is returned when the model provider cannot be reached or
	// answers with a server error.
	ErrUnavailable = errors.New("language model unavailable")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrNoContent is returned when a document has no text to generate from.
	ErrNoContent = errors.New("document has no extractable text")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// IsTransient reports whether err is worth retrying locally.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
