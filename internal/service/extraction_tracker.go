package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/extract"
	"github.com/phrazzld/mornoningo-api/internal/generation"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// ExtractionTracker owns the extraction state of documents. All transitions
// of one document are serialized; different documents proceed in parallel.
type ExtractionTracker struct {
	docs   store.DocumentStore
	pages  store.PageTextStore
	locks  *keyedMutex
	logger *slog.Logger
	now    func() time.Time
}

var _ generation.PageSource = (*ExtractionTracker)(nil)

// NewExtractionTracker creates a tracker over the given stores.
func NewExtractionTracker(docs store.DocumentStore, pages store.PageTextStore, logger *slog.Logger) *ExtractionTracker {
	return &ExtractionTracker{
		docs:   docs,
		pages:  pages,
		locks:  newKeyedMutex(),
		logger: logger.With("component", "extraction_tracker"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Document returns the current state of a document.
func (t *ExtractionTracker) Document(ctx context.Context, documentID uuid.UUID) (*domain.Document, error) {
	doc, err := t.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, NewServiceError("get_document", "failed to load document", err)
	}
	return doc, nil
}

// BeginExtraction moves a pending document to processing.
func (t *ExtractionTracker) BeginExtraction(ctx context.Context, documentID uuid.UUID) (*domain.Document, error) {
	return t.mutate(ctx, documentID, "begin_extraction", func(doc *domain.Document) (bool, error) {
		if err := doc.Transition(domain.ExtractionStatusProcessing); err != nil {
			return false, err
		}
		doc.ExtractionProgress = 0
		doc.ExtractionError = ""
		return true, nil
	})
}

// ReportProgress records extraction progress as a percentage clamped to
// 0..100. Values below the last recorded progress are ignored.
func (t *ExtractionTracker) ReportProgress(ctx context.Context, documentID uuid.UUID, percent int) error {
	percent = min(max(percent, 0), 100)
	_, err := t.mutate(ctx, documentID, "report_progress", func(doc *domain.Document) (bool, error) {
		if doc.ExtractionStatus != domain.ExtractionStatusProcessing {
			return false, fmt.Errorf("%w: progress reported while %s", domain.ErrInvalidTransition, doc.ExtractionStatus)
		}
		if percent <= doc.ExtractionProgress {
			return false, nil
		}
		doc.ExtractionProgress = percent
		return true, nil
	})
	return err
}

// CompleteExtraction stores the page texts and marks the document ready.
// The texts are written before the status so a ready document always has
// them.
func (t *ExtractionTracker) CompleteExtraction(
	ctx context.Context,
	documentID uuid.UUID,
	pageTexts []string,
) (*domain.Document, error) {
	return t.mutate(ctx, documentID, "complete_extraction", func(doc *domain.Document) (bool, error) {
		if !doc.ExtractionStatus.CanTransition(domain.ExtractionStatusReady) {
			return false, fmt.Errorf("%w: extraction %s -> %s",
				domain.ErrInvalidTransition, doc.ExtractionStatus, domain.ExtractionStatusReady)
		}
		if pageTexts == nil {
			pageTexts = []string{}
		}
		if err := t.pages.Put(ctx, documentID, pageTexts); err != nil {
			return false, fmt.Errorf("store page texts: %w", err)
		}
		if err := doc.Transition(domain.ExtractionStatusReady); err != nil {
			return false, err
		}
		doc.PageCount = len(pageTexts)
		doc.ExtractionProgress = 100
		doc.ExtractionError = ""
		return true, nil
	})
}

// FailExtraction marks a processing document failed with reason.
func (t *ExtractionTracker) FailExtraction(ctx context.Context, documentID uuid.UUID, reason string) (*domain.Document, error) {
	return t.mutate(ctx, documentID, "fail_extraction", func(doc *domain.Document) (bool, error) {
		if err := doc.Transition(domain.ExtractionStatusFailed); err != nil {
			return false, err
		}
		doc.ExtractionError = reason
		return true, nil
	})
}

// ResetExtraction moves a failed document back to pending so it can be
// extracted again.
func (t *ExtractionTracker) ResetExtraction(ctx context.Context, documentID uuid.UUID) (*domain.Document, error) {
	return t.mutate(ctx, documentID, "reset_extraction", func(doc *domain.Document) (bool, error) {
		if err := doc.Transition(domain.ExtractionStatusPending); err != nil {
			return false, err
		}
		doc.ExtractionProgress = 0
		doc.ExtractionError = ""
		return true, nil
	})
}

// RecordConcepts stores the number of concepts found by the latest
// learning note.
func (t *ExtractionTracker) RecordConcepts(ctx context.Context, documentID uuid.UUID, count int) error {
	if count < 0 {
		return fmt.Errorf("%w: negative concepts count %d", domain.ErrInvalidArgument, count)
	}
	_, err := t.mutate(ctx, documentID, "record_concepts", func(doc *domain.Document) (bool, error) {
		if doc.ConceptsCount == count {
			return false, nil
		}
		doc.ConceptsCount = count
		return true, nil
	})
	return err
}

// PageTexts returns the extracted page texts of a ready document.
func (t *ExtractionTracker) PageTexts(ctx context.Context, documentID uuid.UUID) ([]string, error) {
	doc, err := t.Document(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ExtractionStatus != domain.ExtractionStatusReady {
		return nil, fmt.Errorf("%w: extraction is %s", domain.ErrNotReady, doc.ExtractionStatus)
	}
	pages, err := t.pages.Get(ctx, documentID)
	if err != nil {
		return nil, NewServiceError("page_texts", "failed to load page texts", err)
	}
	return pages, nil
}

// Source implements generation.PageSource. Documents must be ready; IDs
// without a document resolve to stored free text, which is how quizzes
// from raw text are sourced.
func (t *ExtractionTracker) Source(ctx context.Context, documentID uuid.UUID) (generation.Source, error) {
	doc, err := t.Document(ctx, documentID)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		pages, textErr := t.pages.Get(ctx, documentID)
		if textErr != nil {
			if errors.Is(textErr, store.ErrNotFound) {
				return generation.Source{}, domain.ErrDocumentNotFound
			}
			return generation.Source{}, NewServiceError("source", "failed to load source text", textErr)
		}
		return generation.Source{Pages: pages, Kind: generation.SourceText}, nil
	}
	if err != nil {
		return generation.Source{}, err
	}

	pages, err := t.PageTexts(ctx, documentID)
	if err != nil {
		return generation.Source{}, err
	}
	kind := generation.SourcePages
	if format, err := extract.FormatOf(doc.OriginalName, doc.ContentType); err == nil && format == extract.FormatPPTX {
		kind = generation.SourceSlides
	}
	return generation.Source{Pages: pages, Kind: kind}, nil
}

// mutate applies fn to the document under its lock and persists the result
// when fn reports a change.
func (t *ExtractionTracker) mutate(
	ctx context.Context,
	documentID uuid.UUID,
	operation string,
	fn func(doc *domain.Document) (bool, error),
) (*domain.Document, error) {
	unlock := t.locks.Lock(documentID)
	defer unlock()

	doc, err := t.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, NewServiceError(operation, "failed to load document", err)
	}

	from := doc.ExtractionStatus
	changed, err := fn(doc)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrInvalidArgument) {
			return nil, err
		}
		return nil, NewServiceError(operation, "failed to apply change", err)
	}
	if !changed {
		return doc, nil
	}

	doc.UpdatedAt = t.now()
	if err := t.docs.Update(ctx, doc); err != nil {
		return nil, NewServiceError(operation, "failed to save document", err)
	}

	if from != doc.ExtractionStatus {
		t.logger.InfoContext(ctx, "extraction status changed",
			"document_id", documentID,
			"from", from,
			"to", doc.ExtractionStatus)
	}
	return doc, nil
}

// keyedMutex hands out one mutex per document ID and forgets it once no
// goroutine holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refMutex)}
}

// Lock acquires the mutex of id and returns its release function.
func (k *keyedMutex) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
