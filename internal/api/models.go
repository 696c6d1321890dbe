package api

import (
	"time"

	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// GenerateQuizRequest is the body of POST /api/generate-quiz.
type GenerateQuizRequest struct {
	Text         string `json:"text" validate:"required"`
	NumQuestions int    `json:"numQuestions" validate:"omitempty,min=1,max=20"`
	Difficulty   string `json:"difficulty" validate:"omitempty,max=32"`
	Force        bool   `json:"force"`
}

// GenerateQuizFromFileRequest is the body of POST /api/generate-quiz-from-file.
type GenerateQuizFromFileRequest struct {
	DocumentID   string `json:"documentId" validate:"required,uuid"`
	NumQuestions int    `json:"numQuestions" validate:"omitempty,min=1,max=20"`
	Difficulty   string `json:"difficulty" validate:"omitempty,max=32"`
	Force        bool   `json:"force"`
}

// GenerateLearningNoteRequest is the body of POST /api/generate-learning-note.
type GenerateLearningNoteRequest struct {
	DocumentID string `json:"documentId" validate:"required,uuid"`
	WindowSize int    `json:"windowSize" validate:"omitempty,min=1,max=7"`
	Force      bool   `json:"force"`
}

// ArtifactResponse describes an artifact. Payload is set once the artifact
// is ready; a 202 response carries the status of a build still running.
type ArtifactResponse struct {
	Key        string                 `json:"key"`
	DocumentID string                 `json:"document_id"`
	Kind       domain.ArtifactKind    `json:"kind"`
	Status     domain.ArtifactStatus  `json:"status"`
	Generation int64                  `json:"generation"`
	Payload    domain.ArtifactPayload `json:"payload,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// DocumentListResponse wraps the document list.
type DocumentListResponse struct {
	Documents []*domain.Document `json:"documents"`
}

// DeleteDocumentResponse reports what a delete removed.
type DeleteDocumentResponse struct {
	DocumentID       string `json:"document_id"`
	ReviewsCancelled int    `json:"reviews_cancelled"`
	ArtifactsRemoved int    `json:"artifacts_removed"`
}

// ReviewResponse is one scheduled review.
type ReviewResponse struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	DueDate    string `json:"due_date"`
	Stage      int    `json:"stage"`
	Priority   int    `json:"priority"`
}

// ReviewListResponse wraps a review list.
type ReviewListResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string    `json:"status"`
	Model  string    `json:"model"`
	Time   time.Time `json:"time"`
}

func reviewsToResponse(entries []domain.ReviewEntry) ReviewListResponse {
	out := ReviewListResponse{Reviews: make([]ReviewResponse, 0, len(entries))}
	for _, e := range entries {
		out.Reviews = append(out.Reviews, ReviewResponse{
			ID:         e.ID.String(),
			DocumentID: e.DocumentID.String(),
			DueDate:    e.DueDate.Format(domain.DateLayout),
			Stage:      e.Stage,
			Priority:   e.Priority,
		})
	}
	return out
}
