package extract

import "errors"

var (
	// ErrUnsupportedFormat is returned for files that are neither PDF nor PPTX.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoPages is returned when a file parses but contains no pages.
	ErrNoPages = errors.New("document has no pages")

	// ErrTooLarge is returned when a stored file exceeds the size limit.
	ErrTooLarge = errors.New("document too large")

	// ErrMalformed wraps parser failures on corrupt files.
	ErrMalformed = errors.New("malformed document")
)
