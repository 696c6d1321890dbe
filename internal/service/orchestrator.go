package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/artifact"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/events"
	"github.com/phrazzld/mornoningo-api/internal/extract"
	"github.com/phrazzld/mornoningo-api/internal/generation"
	"github.com/phrazzld/mornoningo-api/internal/store"
)

// textQuizNamespace derives stable document IDs for quizzes generated from
// raw text, so identical text maps to the same cache key.
var textQuizNamespace = uuid.MustParse("5b0f8a4e-3c1d-4e7a-9f2b-6d8c1a0e4b73")

// ArtifactCache is the build-cache surface used by the Orchestrator.
type ArtifactCache interface {
	Ensure(ctx context.Context, key domain.ArtifactKey, force bool) (*artifact.Handle, error)
	Get(ctx context.Context, key domain.ArtifactKey) (*domain.ArtifactRecord, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*domain.ArtifactRecord, error)
	RemoveDocument(ctx context.Context, documentID uuid.UUID) (int, error)
	OnTransition(l artifact.TransitionListener)
}

var _ ArtifactCache = (*artifact.Cache)(nil)

// OrchestratorConfig holds the tunables of the Orchestrator.
type OrchestratorConfig struct {
	// DefaultWindowSize is used when a learning note request names none.
	DefaultWindowSize int
	// WarmLearningNote starts a default learning note build as soon as a
	// document becomes ready.
	WarmLearningNote bool
	// MaxUploadBytes rejects larger uploads. Zero disables the limit.
	MaxUploadBytes int64
}

// Upload is a file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// DeleteResult summarizes what OnDelete removed.
type DeleteResult struct {
	ReviewsCancelled int `json:"reviews_cancelled"`
	ArtifactsRemoved int `json:"artifacts_removed"`
}

// Orchestrator ties uploads, extraction, review scheduling and artifact
// generation together. It is the only entry point used by the API.
type Orchestrator struct {
	docs      store.DocumentStore
	pages     store.PageTextStore
	blobs     store.BlobStore
	tracker   *ExtractionTracker
	scheduler *ReviewScheduler
	cache     ArtifactCache
	emitter   events.EventEmitter
	cfg       OrchestratorConfig
	logger    *slog.Logger
}

// NewOrchestrator wires the Orchestrator and registers its listener on the
// cache to record the concepts count of finished learning notes.
func NewOrchestrator(
	docs store.DocumentStore,
	pages store.PageTextStore,
	blobs store.BlobStore,
	tracker *ExtractionTracker,
	scheduler *ReviewScheduler,
	cache ArtifactCache,
	emitter events.EventEmitter,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.DefaultWindowSize <= 0 {
		cfg.DefaultWindowSize = domain.DefaultWindowSize
	}
	o := &Orchestrator{
		docs:      docs,
		pages:     pages,
		blobs:     blobs,
		tracker:   tracker,
		scheduler: scheduler,
		cache:     cache,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger.With("component", "orchestrator"),
	}
	cache.OnTransition(o.recordConcepts)
	return o
}

// OnUpload stores the file, creates its pending document, schedules the
// initial reviews and requests extraction. A document whose extraction
// could not be requested is returned marked failed so it can be retried.
func (o *Orchestrator) OnUpload(ctx context.Context, upload Upload) (*domain.Document, error) {
	name := strings.TrimSpace(upload.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidArgument)
	}
	if upload.Body == nil {
		return nil, fmt.Errorf("%w: file content is required", domain.ErrInvalidArgument)
	}
	if _, err := extract.FormatOf(name, upload.ContentType); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	body := &countingReader{r: upload.Body}
	var r io.Reader = body
	if o.cfg.MaxUploadBytes > 0 {
		r = io.LimitReader(body, o.cfg.MaxUploadBytes+1)
	}

	fileID, err := o.blobs.Put(ctx, name, r)
	if err != nil {
		return nil, NewServiceError("upload", "failed to store file", err)
	}
	if o.cfg.MaxUploadBytes > 0 && body.n > o.cfg.MaxUploadBytes {
		o.deleteBlob(ctx, fileID)
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidArgument, o.cfg.MaxUploadBytes)
	}

	doc, err := domain.NewDocument(fileID, name, upload.ContentType, body.n)
	if err != nil {
		o.deleteBlob(ctx, fileID)
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := o.docs.Create(ctx, doc); err != nil {
		o.deleteBlob(ctx, fileID)
		return nil, NewServiceError("upload", "failed to create document", err)
	}

	if _, err := o.scheduler.ScheduleInitialReviews(ctx, doc.ID, doc.CreatedAt); err != nil {
		o.rollbackUpload(ctx, doc)
		return nil, err
	}

	log := o.logger.With("document_id", doc.ID)
	log.InfoContext(ctx, "document uploaded",
		"file_id", fileID,
		"original_name", name,
		"size_bytes", doc.SizeBytes)

	return o.requestExtraction(ctx, doc)
}

// requestExtraction emits the extraction event for a pending document.
func (o *Orchestrator) requestExtraction(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	event, err := events.NewDocumentEvent(events.TypeDocumentExtraction, doc.ID)
	if err == nil {
		err = o.emitter.EmitEvent(ctx, event)
	}
	if err == nil {
		return doc, nil
	}

	o.logger.ErrorContext(ctx, "failed to request extraction", "document_id", doc.ID, "error", err)
	if _, beginErr := o.tracker.BeginExtraction(ctx, doc.ID); beginErr != nil {
		return nil, NewServiceError("request_extraction", "failed to request extraction", errors.Join(err, beginErr))
	}
	failed, failErr := o.tracker.FailExtraction(ctx, doc.ID, "could not schedule extraction: "+err.Error())
	if failErr != nil {
		return nil, NewServiceError("request_extraction", "failed to request extraction", errors.Join(err, failErr))
	}
	return failed, nil
}

func (o *Orchestrator) rollbackUpload(ctx context.Context, doc *domain.Document) {
	if err := o.docs.Delete(ctx, doc.ID); err != nil {
		o.logger.ErrorContext(ctx, "failed to roll back document", "document_id", doc.ID, "error", err)
	}
	o.deleteBlob(ctx, doc.FileID)
}

func (o *Orchestrator) deleteBlob(ctx context.Context, fileID string) {
	if err := o.blobs.Delete(ctx, fileID); err != nil {
		o.logger.ErrorContext(ctx, "failed to delete stored file", "file_id", fileID, "error", err)
	}
}

// OnExtractionComplete is the completion callback of extraction tasks.
func (o *Orchestrator) OnExtractionComplete(ctx context.Context, doc *domain.Document, err error) {
	if err != nil || doc == nil || !o.cfg.WarmLearningNote {
		return
	}
	if _, werr := o.EnsureLearningNote(ctx, doc.ID, o.cfg.DefaultWindowSize, false); werr != nil {
		o.logger.WarnContext(ctx, "failed to warm learning note", "document_id", doc.ID, "error", werr)
	}
}

// EnsureLearningNote returns a handle to the learning note of a ready
// document. A windowSize of zero selects the configured default.
func (o *Orchestrator) EnsureLearningNote(
	ctx context.Context,
	documentID uuid.UUID,
	windowSize int,
	force bool,
) (*artifact.Handle, error) {
	key, err := domain.NewLearningNoteKey(documentID, cmp.Or(windowSize, o.cfg.DefaultWindowSize))
	if err != nil {
		return nil, err
	}
	if err := o.requireReady(ctx, documentID); err != nil {
		return nil, err
	}
	return o.cache.Ensure(ctx, key, force)
}

// EnsureQuiz returns a handle to a quiz over a ready document.
func (o *Orchestrator) EnsureQuiz(
	ctx context.Context,
	documentID uuid.UUID,
	params domain.QuizParams,
	force bool,
) (*artifact.Handle, error) {
	key, err := domain.NewQuizKey(documentID, params)
	if err != nil {
		return nil, err
	}
	if err := o.requireReady(ctx, documentID); err != nil {
		return nil, err
	}
	return o.cache.Ensure(ctx, key, force)
}

// EnsureQuizFromText returns a handle to a quiz over caller supplied text.
// The normalized text is stored as a one-page source under an ID derived
// from it.
func (o *Orchestrator) EnsureQuizFromText(
	ctx context.Context,
	text string,
	params domain.QuizParams,
	force bool,
) (*artifact.Handle, error) {
	text = extract.Normalize(text)
	if n := len([]rune(text)); n < extract.MinTextChars {
		return nil, fmt.Errorf("%w: text must have at least %d characters, got %d",
			domain.ErrInvalidArgument, extract.MinTextChars, n)
	}
	if runes := []rune(text); len(runes) > generation.MaxSourceChars {
		text = string(runes[:generation.MaxSourceChars])
	}

	id := TextDocumentID(text)
	key, err := domain.NewQuizKey(id, params)
	if err != nil {
		return nil, err
	}
	if err := o.pages.Put(ctx, id, []string{text}); err != nil {
		return nil, NewServiceError("quiz_from_text", "failed to store source text", err)
	}
	return o.cache.Ensure(ctx, key, force)
}

// TextDocumentID is the document ID under which a quiz source text is cached.
func TextDocumentID(text string) uuid.UUID {
	return uuid.NewSHA1(textQuizNamespace, []byte(text))
}

// Artifact returns the current record of an artifact.
func (o *Orchestrator) Artifact(ctx context.Context, key domain.ArtifactKey) (*domain.ArtifactRecord, error) {
	return o.cache.Get(ctx, key)
}

// GetLearningNote returns the most recently built ready learning note of a
// document, whatever its window size.
func (o *Orchestrator) GetLearningNote(ctx context.Context, documentID uuid.UUID) (*domain.LearningNotePayload, error) {
	if _, err := o.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	records, err := o.cache.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, NewServiceError("get_learning_note", "failed to list artifacts", err)
	}

	var latest *domain.ArtifactRecord
	for _, rec := range records {
		if rec.Key.Kind != domain.ArtifactKindLearningNote || rec.Status != domain.ArtifactStatusReady {
			continue
		}
		if latest == nil || rec.UpdatedAt.After(latest.UpdatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, domain.ErrArtifactNotFound
	}
	note, ok := latest.Payload.(*domain.LearningNotePayload)
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return note, nil
}

// OnDelete cancels the reviews of a document, removes its artifacts and
// deletes its page texts, stored file and record.
func (o *Orchestrator) OnDelete(ctx context.Context, documentID uuid.UUID) (DeleteResult, error) {
	doc, err := o.GetDocument(ctx, documentID)
	if err != nil {
		return DeleteResult{}, err
	}

	var result DeleteResult
	if result.ReviewsCancelled, err = o.scheduler.CancelReviews(ctx, documentID); err != nil {
		return result, err
	}
	if result.ArtifactsRemoved, err = o.cache.RemoveDocument(ctx, documentID); err != nil {
		return result, NewServiceError("delete_document", "failed to remove artifacts", err)
	}
	if err := o.pages.Delete(ctx, documentID); err != nil {
		return result, NewServiceError("delete_document", "failed to delete page texts", err)
	}
	if err := o.blobs.Delete(ctx, doc.FileID); err != nil {
		return result, NewServiceError("delete_document", "failed to delete stored file", err)
	}
	if err := o.docs.Delete(ctx, documentID); err != nil {
		return result, NewServiceError("delete_document", "failed to delete document", err)
	}

	o.logger.InfoContext(ctx, "document deleted",
		"document_id", documentID,
		"reviews_cancelled", result.ReviewsCancelled,
		"artifacts_removed", result.ArtifactsRemoved)
	return result, nil
}

// RetryExtraction resets a failed document and requests extraction again.
func (o *Orchestrator) RetryExtraction(ctx context.Context, documentID uuid.UUID) (*domain.Document, error) {
	doc, err := o.tracker.ResetExtraction(ctx, documentID)
	if err != nil {
		return nil, err
	}
	o.logger.InfoContext(ctx, "retrying extraction", "document_id", documentID)
	return o.requestExtraction(ctx, doc)
}

// GetDocument returns a document by ID.
func (o *Orchestrator) GetDocument(ctx context.Context, documentID uuid.UUID) (*domain.Document, error) {
	return o.tracker.Document(ctx, documentID)
}

// ListDocuments returns all documents, newest first.
func (o *Orchestrator) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	docs, err := o.docs.List(ctx)
	if err != nil {
		return nil, NewServiceError("list_documents", "failed to list documents", err)
	}
	return docs, nil
}

// ReviewsForDocument lists the scheduled reviews of an existing document.
func (o *Orchestrator) ReviewsForDocument(ctx context.Context, documentID uuid.UUID) ([]domain.ReviewEntry, error) {
	if _, err := o.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return o.scheduler.ReviewsForDocument(ctx, documentID)
}

// DueReviews lists the reviews due on the calendar date of on.
func (o *Orchestrator) DueReviews(ctx context.Context, on time.Time) ([]domain.ReviewEntry, error) {
	return o.scheduler.DueReviews(ctx, on)
}

func (o *Orchestrator) requireReady(ctx context.Context, documentID uuid.UUID) error {
	doc, err := o.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.ExtractionStatus != domain.ExtractionStatusReady {
		return fmt.Errorf("%w: extraction is %s", domain.ErrNotReady, doc.ExtractionStatus)
	}
	return nil
}

// recordConcepts stores the concepts count of each learning note that
// becomes ready.
func (o *Orchestrator) recordConcepts(ctx context.Context, t artifact.Transition) {
	if t.To != domain.ArtifactStatusReady || t.Key.Kind != domain.ArtifactKindLearningNote {
		return
	}
	note, ok := t.Payload.(*domain.LearningNotePayload)
	if !ok {
		return
	}
	err := o.tracker.RecordConcepts(ctx, t.Key.DocumentID, note.ConceptsCount())
	if err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		o.logger.ErrorContext(ctx, "failed to record concepts count",
			"document_id", t.Key.DocumentID,
			"error", err)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
