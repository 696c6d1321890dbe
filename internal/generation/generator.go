package generation

import (
	"context"
	"strconv"

	"github.com/google/uuid"
)

// Request is a single prompt sent to the language model.
type Request struct {
	Prompt string
	// JSON asks the model for a JSON-only answer.
	JSON bool
}

// Generator defines the boundary between the application core and the
// external language model service.
type Generator interface {
	// Complete sends the prompt and returns the raw text of the answer.
	// Failures are reported with the sentinels in errors.go.
	Complete(ctx context.Context, req Request) (string, error)
}

// SourceKind describes where a document's pages came from.
type SourceKind string

// Supported source kinds
const (
	SourcePages  SourceKind = "pages"
	SourceSlides SourceKind = "slides"
	SourceText   SourceKind = "text"
)

// Source is the extracted text a builder works from.
type Source struct {
	Pages []string
	Kind  SourceKind
}

// PageLabel returns the human label of the page at index i.
func (s Source) PageLabel(i int) string {
	if s.Kind == SourceSlides {
		return "Slide " + strconv.Itoa(i+1)
	}
	return "Page " + strconv.Itoa(i+1)
}

// PageSource loads the extracted text of a document. Implementations return
// domain.ErrNotReady when the extraction has not completed.
type PageSource interface {
	Source(ctx context.Context, documentID uuid.UUID) (Source, error)
}

// PageSourceFunc adapts a function to the PageSource interface.
type PageSourceFunc func(ctx context.Context, documentID uuid.UUID) (Source, error)

// Source implements PageSource.
func (f PageSourceFunc) Source(ctx context.Context, documentID uuid.UUID) (Source, error) {
	return f(ctx, documentID)
}
