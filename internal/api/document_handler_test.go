package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocumentService implements DocumentService with function fields.
// Unset functions fail the request with an unexpected error.
type fakeDocumentService struct {
	OnUploadFn           func(ctx context.Context, upload service.Upload) (*domain.Document, error)
	ListDocumentsFn      func(ctx context.Context) ([]*domain.Document, error)
	GetDocumentFn        func(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	OnDeleteFn           func(ctx context.Context, id uuid.UUID) (service.DeleteResult, error)
	RetryExtractionFn    func(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	ReviewsForDocumentFn func(ctx context.Context, id uuid.UUID) ([]domain.ReviewEntry, error)
	DueReviewsFn         func(ctx context.Context, on time.Time) ([]domain.ReviewEntry, error)
}

func (f *fakeDocumentService) OnUpload(ctx context.Context, u service.Upload) (*domain.Document, error) {
	return f.OnUploadFn(ctx, u)
}

func (f *fakeDocumentService) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	return f.ListDocumentsFn(ctx)
}

func (f *fakeDocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return f.GetDocumentFn(ctx, id)
}

func (f *fakeDocumentService) OnDelete(ctx context.Context, id uuid.UUID) (service.DeleteResult, error) {
	return f.OnDeleteFn(ctx, id)
}

func (f *fakeDocumentService) RetryExtraction(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return f.RetryExtractionFn(ctx, id)
}

func (f *fakeDocumentService) ReviewsForDocument(ctx context.Context, id uuid.UUID) ([]domain.ReviewEntry, error) {
	return f.ReviewsForDocumentFn(ctx, id)
}

func (f *fakeDocumentService) DueReviews(ctx context.Context, on time.Time) ([]domain.ReviewEntry, error) {
	return f.DueReviewsFn(ctx, on)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func documentRouter(h *DocumentHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/upload", h.Upload)
	r.Get("/api/documents", h.ListDocuments)
	r.Get("/api/documents/{id}", h.GetDocument)
	r.Delete("/api/documents/{id}", h.DeleteDocument)
	r.Post("/api/documents/{id}/extraction/retry", h.RetryExtraction)
	r.Get("/api/documents/{id}/reviews", h.DocumentReviews)
	r.Get("/api/reviews/due", h.DueReviews)
	return r
}

func multipartBody(t *testing.T, field, name, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "ignored"))

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func testDocument(id uuid.UUID) *domain.Document {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Document{
		ID:               id,
		FileID:           "blob.pdf",
		OriginalName:     "lecture.pdf",
		ContentType:      "application/pdf",
		SizeBytes:        9,
		ExtractionStatus: domain.ExtractionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestDocumentHandlerUpload(t *testing.T) {
	t.Parallel()

	t.Run("streams the file part to the service", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		var got service.Upload
		var gotBody []byte
		svc := &fakeDocumentService{
			OnUploadFn: func(_ context.Context, u service.Upload) (*domain.Document, error) {
				got = u
				var err error
				gotBody, err = io.ReadAll(u.Body)
				require.NoError(t, err)
				return testDocument(id), nil
			},
		}
		h := NewDocumentHandler(svc, 1<<20, discardLogger())

		body, ct := multipartBody(t, "file", "lecture.pdf", "application/pdf", []byte("%PDF-1.4\n"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		documentRouter(h).ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "lecture.pdf", got.Name)
		assert.Equal(t, "application/pdf", got.ContentType)
		assert.Equal(t, []byte("%PDF-1.4\n"), gotBody)

		var doc domain.Document
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Equal(t, id, doc.ID)
	})

	t.Run("rejects non multipart bodies", func(t *testing.T) {
		t.Parallel()
		h := NewDocumentHandler(&fakeDocumentService{}, 0, discardLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		documentRouter(h).ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("requires the file field", func(t *testing.T) {
		t.Parallel()
		h := NewDocumentHandler(&fakeDocumentService{}, 0, discardLogger())
		body, ct := multipartBody(t, "attachment", "lecture.pdf", "application/pdf", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		documentRouter(h).ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Missing file field")
	})

	t.Run("maps service errors", func(t *testing.T) {
		t.Parallel()
		svc := &fakeDocumentService{
			OnUploadFn: func(_ context.Context, u service.Upload) (*domain.Document, error) {
				_, _ = io.Copy(io.Discard, u.Body)
				return nil, domain.ErrInvalidArgument
			},
		}
		h := NewDocumentHandler(svc, 0, discardLogger())
		body, ct := multipartBody(t, "file", "notes.txt", "text/plain", []byte("hello"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		documentRouter(h).ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDocumentHandlerReads(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &fakeDocumentService{
		ListDocumentsFn: func(context.Context) ([]*domain.Document, error) {
			return nil, nil
		},
		GetDocumentFn: func(_ context.Context, got uuid.UUID) (*domain.Document, error) {
			if got != id {
				return nil, domain.ErrDocumentNotFound
			}
			return testDocument(id), nil
		},
	}
	router := documentRouter(NewDocumentHandler(svc, 0, discardLogger()))

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"empty list", "/api/documents", http.StatusOK, `"documents":[]`},
		{"found", "/api/documents/" + id.String(), http.StatusOK, id.String()},
		{"missing", "/api/documents/" + uuid.NewString(), http.StatusNotFound, "Document not found"},
		{"bad id", "/api/documents/not-a-uuid", http.StatusBadRequest, "Invalid id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestDocumentHandlerDelete(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &fakeDocumentService{
		OnDeleteFn: func(_ context.Context, got uuid.UUID) (service.DeleteResult, error) {
			assert.Equal(t, id, got)
			return service.DeleteResult{ReviewsCancelled: 5, ArtifactsRemoved: 2}, nil
		},
	}
	w := httptest.NewRecorder()
	documentRouter(NewDocumentHandler(svc, 0, discardLogger())).
		ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/documents/"+id.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp DeleteDocumentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, DeleteDocumentResponse{
		DocumentID:       id.String(),
		ReviewsCancelled: 5,
		ArtifactsRemoved: 2,
	}, resp)
}

func TestDocumentHandlerRetryExtraction(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	svc := &fakeDocumentService{
		RetryExtractionFn: func(_ context.Context, got uuid.UUID) (*domain.Document, error) {
			if got != id {
				return nil, domain.ErrInvalidTransition
			}
			return testDocument(id), nil
		},
	}
	router := documentRouter(NewDocumentHandler(svc, 0, discardLogger()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/documents/"+id.String()+"/extraction/retry", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/documents/"+uuid.NewString()+"/extraction/retry", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDocumentHandlerReviews(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	due := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	entries := []domain.ReviewEntry{
		{ID: uuid.New(), DocumentID: id, DueDate: due, Stage: 1, Priority: 3},
	}

	var gotOn time.Time
	svc := &fakeDocumentService{
		ReviewsForDocumentFn: func(context.Context, uuid.UUID) ([]domain.ReviewEntry, error) {
			return entries, nil
		},
		DueReviewsFn: func(_ context.Context, on time.Time) ([]domain.ReviewEntry, error) {
			gotOn = on
			return entries, nil
		},
	}
	h := NewDocumentHandler(svc, 0, discardLogger())
	h.now = func() time.Time { return due.Add(15 * time.Hour) }
	router := documentRouter(h)

	t.Run("per document", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/"+id.String()+"/reviews", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp ReviewListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Reviews, 1)
		assert.Equal(t, "2025-03-02", resp.Reviews[0].DueDate)
		assert.Equal(t, 1, resp.Reviews[0].Stage)
	})

	t.Run("due defaults to today", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reviews/due", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2025-03-02", gotOn.Format(domain.DateLayout))
	})

	t.Run("due on explicit date", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reviews/due?date=2025-04-10", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2025-04-10", gotOn.Format(domain.DateLayout))
	})

	t.Run("due rejects malformed date", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reviews/due?date=10/04/2025", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
