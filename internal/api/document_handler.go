package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/api/shared"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/platform/logger"
	"github.com/phrazzld/mornoningo-api/internal/service"
)

// uploadFormField is the multipart field holding the uploaded file.
const uploadFormField = "file"

// multipartOverhead is the body allowance on top of the file size limit
// for multipart headers and boundaries.
const multipartOverhead = 1 << 20

// DocumentService is the part of the orchestrator serving document and
// review endpoints.
type DocumentService interface {
	OnUpload(ctx context.Context, upload service.Upload) (*domain.Document, error)
	ListDocuments(ctx context.Context) ([]*domain.Document, error)
	GetDocument(ctx context.Context, documentID uuid.UUID) (*domain.Document, error)
	OnDelete(ctx context.Context, documentID uuid.UUID) (service.DeleteResult, error)
	RetryExtraction(ctx context.Context, documentID uuid.UUID) (*domain.Document, error)
	ReviewsForDocument(ctx context.Context, documentID uuid.UUID) ([]domain.ReviewEntry, error)
	DueReviews(ctx context.Context, on time.Time) ([]domain.ReviewEntry, error)
}

var _ DocumentService = (*service.Orchestrator)(nil)

// DocumentHandler handles document and review HTTP requests.
type DocumentHandler struct {
	svc            DocumentService
	maxUploadBytes int64
	now            func() time.Time
	logger         *slog.Logger
}

// NewDocumentHandler creates a DocumentHandler. maxUploadBytes bounds the
// request body of uploads; zero disables the bound.
func NewDocumentHandler(svc DocumentService, maxUploadBytes int64, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for DocumentHandler")
	}
	return &DocumentHandler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
		logger:         logger.With(slog.String("component", "document_handler")),
	}
}

// Upload handles POST /api/upload. The file is streamed from the multipart
// body without buffering the whole request.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Expected a multipart/form-data body")
		return
	}

	part, err := nextFilePart(mr)
	if err != nil {
		log.Debug("no file part in upload", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing file field")
		return
	}
	defer func() { _ = part.Close() }()

	doc, err := h.svc.OnUpload(r.Context(), service.Upload{
		Name:        part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Body:        part,
	})
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "File too large", err)
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, doc)
}

// nextFilePart advances mr to the file field.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("file field not found")
			}
			return nil, err
		}
		if part.FormName() == uploadFormField && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}

// ListDocuments handles GET /api/documents.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DocumentListResponse{Documents: docs})
}

// GetDocument handles GET /api/documents/{id}.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{id}.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.svc.OnDelete(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DeleteDocumentResponse{
		DocumentID:       id.String(),
		ReviewsCancelled: res.ReviewsCancelled,
		ArtifactsRemoved: res.ArtifactsRemoved,
	})
}

// RetryExtraction handles POST /api/documents/{id}/extraction/retry.
func (h *DocumentHandler) RetryExtraction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	doc, err := h.svc.RetryExtraction(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, doc)
}

// DocumentReviews handles GET /api/documents/{id}/reviews.
func (h *DocumentHandler) DocumentReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.svc.ReviewsForDocument(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, reviewsToResponse(entries))
}

// DueReviews handles GET /api/reviews/due. The date query parameter is a
// YYYY-MM-DD calendar date and defaults to today in UTC.
func (h *DocumentHandler) DueReviews(w http.ResponseWriter, r *http.Request) {
	on := h.now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid date; expected YYYY-MM-DD")
			return
		}
		on = d
	}

	entries, err := h.svc.DueReviews(r.Context(), on)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, reviewsToResponse(entries))
}
