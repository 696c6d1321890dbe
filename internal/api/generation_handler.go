package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/api/shared"
	"github.com/phrazzld/mornoningo-api/internal/artifact"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/platform/logger"
	"github.com/phrazzld/mornoningo-api/internal/service"
)

// DefaultWaitTimeout is how long a generation request waits for its build
// before answering 202.
const DefaultWaitTimeout = 30 * time.Second

// GenerationService is the part of the orchestrator serving artifact
// generation endpoints.
type GenerationService interface {
	EnsureQuizFromText(ctx context.Context, text string, params domain.QuizParams, force bool) (*artifact.Handle, error)
	EnsureQuiz(ctx context.Context, documentID uuid.UUID, params domain.QuizParams, force bool) (*artifact.Handle, error)
	EnsureLearningNote(ctx context.Context, documentID uuid.UUID, windowSize int, force bool) (*artifact.Handle, error)
	Artifact(ctx context.Context, key domain.ArtifactKey) (*domain.ArtifactRecord, error)
	GetLearningNote(ctx context.Context, documentID uuid.UUID) (*domain.LearningNotePayload, error)
}

var _ GenerationService = (*service.Orchestrator)(nil)

// GenerationHandler handles quiz and learning note requests.
type GenerationHandler struct {
	svc         GenerationService
	waitTimeout time.Duration
	logger      *slog.Logger
}

// NewGenerationHandler creates a GenerationHandler. A non-positive
// waitTimeout uses DefaultWaitTimeout.
func NewGenerationHandler(svc GenerationService, waitTimeout time.Duration, logger *slog.Logger) *GenerationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for GenerationHandler")
	}
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &GenerationHandler{
		svc:         svc,
		waitTimeout: waitTimeout,
		logger:      logger.With(slog.String("component", "generation_handler")),
	}
}

// GenerateQuiz handles POST /api/generate-quiz.
func (h *GenerationHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req GenerateQuizRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	params := domain.QuizParams{NumQuestions: req.NumQuestions, Difficulty: req.Difficulty}
	handle, err := h.svc.EnsureQuizFromText(r.Context(), req.Text, params.WithDefaults(), req.Force)
	h.respond(w, r, handle, err)
}

// GenerateQuizFromFile handles POST /api/generate-quiz-from-file.
func (h *GenerationHandler) GenerateQuizFromFile(w http.ResponseWriter, r *http.Request) {
	var req GenerateQuizFromFileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	// validated as a UUID above
	id := uuid.MustParse(req.DocumentID)
	params := domain.QuizParams{NumQuestions: req.NumQuestions, Difficulty: req.Difficulty}
	handle, err := h.svc.EnsureQuiz(r.Context(), id, params.WithDefaults(), req.Force)
	h.respond(w, r, handle, err)
}

// GenerateLearningNote handles POST /api/generate-learning-note.
func (h *GenerationHandler) GenerateLearningNote(w http.ResponseWriter, r *http.Request) {
	var req GenerateLearningNoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id := uuid.MustParse(req.DocumentID)
	handle, err := h.svc.EnsureLearningNote(r.Context(), id, req.WindowSize, req.Force)
	h.respond(w, r, handle, err)
}

// GetLearningNote handles GET /api/learning-note/{id}.
func (h *GenerationHandler) GetLearningNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	note, err := h.svc.GetLearningNote(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, note)
}

// respond waits up to the handler's wait timeout for the build behind
// handle. A build still running when the timeout fires is answered with 202
// and the current record; the build itself carries on.
func (h *GenerationHandler) respond(w http.ResponseWriter, r *http.Request, handle *artifact.Handle, err error) {
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	key := handle.Key()

	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()

	res, err := handle.WaitResult(ctx)
	switch {
	case err == nil:
		shared.RespondWithJSON(w, r, http.StatusOK, ArtifactResponse{
			Key:        key.String(),
			DocumentID: key.DocumentID.String(),
			Kind:       key.Kind,
			Status:     domain.ArtifactStatusReady,
			Generation: res.Generation,
			Payload:    res.Payload,
		})
	case ctx.Err() != nil && r.Context().Err() == nil:
		log.Debug("artifact build still running",
			slog.String("artifact_key", key.String()),
			slog.Int64("generation", handle.Generation()))
		shared.RespondWithJSON(w, r, http.StatusAccepted, h.pending(r.Context(), handle))
	case r.Context().Err() != nil:
		log.Debug("client went away while waiting for artifact",
			slog.String("artifact_key", key.String()))
	default:
		HandleAPIError(w, r, err, "")
	}
}

// pending describes an artifact whose build has not finished.
func (h *GenerationHandler) pending(ctx context.Context, handle *artifact.Handle) ArtifactResponse {
	key := handle.Key()
	resp := ArtifactResponse{
		Key:        key.String(),
		DocumentID: key.DocumentID.String(),
		Kind:       key.Kind,
		Status:     domain.ArtifactStatusProcessing,
		Generation: handle.Generation(),
	}

	rec, err := h.svc.Artifact(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrArtifactNotFound) {
			logger.FromContextOrDefault(ctx, h.logger).Warn("failed to read artifact record",
				slog.String("artifact_key", key.String()),
				slog.String("error", err.Error()))
		}
		return resp
	}
	resp.Status = rec.Status
	resp.Generation = rec.Generation
	resp.Error = rec.Error
	return resp
}
