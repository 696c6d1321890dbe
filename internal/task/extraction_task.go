package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/extract"
)

// Common errors
var (
	ErrNilTracker      = errors.New("extraction tracker cannot be nil")
	ErrNilExtractor    = errors.New("extractor cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrEmptyDocumentID = errors.New("document ID cannot be empty")
)

// ExtractionTracker is the subset of the extraction status tracker the
// task drives.
type ExtractionTracker interface {
	Document(ctx context.Context, documentID uuid.UUID) (*domain.Document, error)
	BeginExtraction(ctx context.Context, documentID uuid.UUID) (*domain.Document, error)
	ReportProgress(ctx context.Context, documentID uuid.UUID, percent int) error
	CompleteExtraction(ctx context.Context, documentID uuid.UUID, pageTexts []string) (*domain.Document, error)
	FailExtraction(ctx context.Context, documentID uuid.UUID, reason string) (*domain.Document, error)
}

// PageExtractor produces page-indexed text from a stored file.
type PageExtractor interface {
	ExtractPages(ctx context.Context, fileID string, progress extract.ProgressFunc) ([]string, error)
}

// CompletionFunc is called once an extraction has reached a terminal
// state. err is nil when the document became ready.
type CompletionFunc func(ctx context.Context, doc *domain.Document, err error)

// extractionPayload represents the serialized data stored in the task
type extractionPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// ExtractionTask moves one document through extraction: it marks the
// document processing, extracts its pages while reporting progress and
// records the result as ready or failed.
type ExtractionTask struct {
	id         uuid.UUID
	documentID uuid.UUID
	tracker    ExtractionTracker
	extractor  PageExtractor
	onComplete CompletionFunc
	logger     *slog.Logger
	status     atomic.Value
}

var _ Task = (*ExtractionTask)(nil)

// NewExtractionTask creates a new extraction task for a document.
func NewExtractionTask(
	documentID uuid.UUID,
	tracker ExtractionTracker,
	extractor PageExtractor,
	onComplete CompletionFunc,
	logger *slog.Logger,
) (*ExtractionTask, error) {
	return newExtractionTask(uuid.New(), documentID, tracker, extractor, onComplete, logger)
}

func newExtractionTask(
	id, documentID uuid.UUID,
	tracker ExtractionTracker,
	extractor PageExtractor,
	onComplete CompletionFunc,
	logger *slog.Logger,
) (*ExtractionTask, error) {
	if tracker == nil {
		return nil, ErrNilTracker
	}
	if extractor == nil {
		return nil, ErrNilExtractor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if documentID == uuid.Nil {
		return nil, ErrEmptyDocumentID
	}

	t := &ExtractionTask{
		id:         id,
		documentID: documentID,
		tracker:    tracker,
		extractor:  extractor,
		onComplete: onComplete,
		logger:     logger.With("task_type", TaskTypeExtraction, "task_id", id, "document_id", documentID),
	}
	t.status.Store(TaskStatusPending)
	return t, nil
}

// ID returns the task's unique identifier
func (t *ExtractionTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ExtractionTask) Type() string {
	return TaskTypeExtraction
}

// DocumentID returns the document being extracted.
func (t *ExtractionTask) DocumentID() uuid.UUID {
	return t.documentID
}

// Payload returns the task data as a byte slice
func (t *ExtractionTask) Payload() []byte {
	data, err := json.Marshal(extractionPayload{DocumentID: t.documentID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *ExtractionTask) Status() TaskStatus {
	return t.status.Load().(TaskStatus)
}

// Execute runs the extraction. A cancelled context leaves the document in
// processing so that the restored task can resume it.
func (t *ExtractionTask) Execute(ctx context.Context) error {
	t.status.Store(TaskStatusProcessing)

	if err := ctx.Err(); err != nil {
		t.status.Store(TaskStatusFailed)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	doc, done, err := t.begin(ctx)
	if err != nil {
		t.status.Store(TaskStatusFailed)
		return err
	}
	if done {
		t.status.Store(TaskStatusCompleted)
		return nil
	}

	t.logger.Info("extracting pages", "file_id", doc.FileID)
	pages, err := t.extractor.ExtractPages(ctx, doc.FileID, t.progress(ctx))
	if err != nil {
		t.status.Store(TaskStatusFailed)
		if ctx.Err() != nil {
			t.logger.Warn("extraction interrupted", "error", err)
			return fmt.Errorf("extraction interrupted: %w", ctx.Err())
		}
		return t.fail(ctx, err)
	}

	ready, err := t.tracker.CompleteExtraction(ctx, t.documentID, pages)
	if err != nil {
		t.status.Store(TaskStatusFailed)
		t.logger.Error("failed to record extracted pages", "error", err)
		return fmt.Errorf("failed to complete extraction: %w", err)
	}

	t.status.Store(TaskStatusCompleted)
	t.logger.Info("extraction completed", "page_count", ready.PageCount)
	t.complete(ctx, ready, nil)
	return nil
}

// begin marks the document processing. A document already processing is
// resumed, one already ready needs no work.
func (t *ExtractionTask) begin(ctx context.Context) (*domain.Document, bool, error) {
	doc, err := t.tracker.BeginExtraction(ctx, t.documentID)
	if err == nil {
		return doc, false, nil
	}
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.logger.Error("failed to begin extraction", "error", err)
		return nil, false, fmt.Errorf("failed to begin extraction: %w", err)
	}

	current, getErr := t.tracker.Document(ctx, t.documentID)
	if getErr != nil {
		return nil, false, fmt.Errorf("failed to load document: %w", getErr)
	}
	switch current.ExtractionStatus {
	case domain.ExtractionStatusProcessing:
		t.logger.Info("resuming interrupted extraction", "progress", current.ExtractionProgress)
		return current, false, nil
	case domain.ExtractionStatusReady:
		t.logger.Info("document already extracted")
		return current, true, nil
	default:
		return nil, false, fmt.Errorf("failed to begin extraction: %w", err)
	}
}

func (t *ExtractionTask) progress(ctx context.Context) extract.ProgressFunc {
	return func(percent int) {
		if err := t.tracker.ReportProgress(ctx, t.documentID, percent); err != nil {
			t.logger.Warn("failed to report extraction progress", "percent", percent, "error", err)
		}
	}
}

func (t *ExtractionTask) fail(ctx context.Context, cause error) error {
	t.logger.Error("extraction failed", "error", cause)

	failed, err := t.tracker.FailExtraction(ctx, t.documentID, cause.Error())
	if err != nil {
		t.logger.Error("failed to record extraction failure", "error", err)
		return errors.Join(fmt.Errorf("failed to extract pages: %w", cause), err)
	}
	t.complete(ctx, failed, cause)
	return fmt.Errorf("failed to extract pages: %w", cause)
}

func (t *ExtractionTask) complete(ctx context.Context, doc *domain.Document, err error) {
	if t.onComplete != nil {
		t.onComplete(ctx, doc, err)
	}
}

// ExtractionTaskFactory creates extraction tasks and restores persisted ones.
type ExtractionTaskFactory struct {
	tracker    ExtractionTracker
	extractor  PageExtractor
	onComplete CompletionFunc
	logger     *slog.Logger
}

// NewExtractionTaskFactory creates a factory sharing the given collaborators
// across all tasks it creates.
func NewExtractionTaskFactory(
	tracker ExtractionTracker,
	extractor PageExtractor,
	onComplete CompletionFunc,
	logger *slog.Logger,
) *ExtractionTaskFactory {
	return &ExtractionTaskFactory{
		tracker:    tracker,
		extractor:  extractor,
		onComplete: onComplete,
		logger:     logger,
	}
}

// CreateTask creates a new extraction task for the document.
func (f *ExtractionTaskFactory) CreateTask(documentID uuid.UUID) (Task, error) {
	return NewExtractionTask(documentID, f.tracker, f.extractor, f.onComplete, f.logger)
}

// Restore rebuilds a persisted extraction task with its original ID.
func (f *ExtractionTaskFactory) Restore(rec Record) (Task, error) {
	if rec.Type != TaskTypeExtraction {
		return nil, fmt.Errorf("cannot restore %s task as %s", rec.Type, TaskTypeExtraction)
	}
	var payload extractionPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid extraction payload: %w", err)
	}
	return newExtractionTask(rec.ID, payload.DocumentID, f.tracker, f.extractor, f.onComplete, f.logger)
}
