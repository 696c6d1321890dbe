package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/window"
)

// Quiz source types recorded on the payload
const (
	QuizSourceFile = "file"
	QuizSourceText = "text"
)

// QuizBuilder builds multiple-choice quizzes with one generator call over the
// document's full text.
type QuizBuilder struct {
	builderBase
}

// NewQuizBuilder creates a QuizBuilder.
func NewQuizBuilder(gen Generator, source PageSource, cfg BuilderConfig, logger *slog.Logger) *QuizBuilder {
	return &QuizBuilder{
		builderBase: newBuilderBase(gen, source, cfg, logger, "quiz_builder"),
	}
}

// Build implements artifact.Builder.
func (b *QuizBuilder) Build(ctx context.Context, key domain.ArtifactKey) (domain.ArtifactPayload, error) {
	if key.Kind != domain.ArtifactKindQuiz {
		return nil, fmt.Errorf("%w: %s key for quiz builder", domain.ErrInvalidArgument, key.Kind)
	}

	src, err := b.source.Source(ctx, key.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	text := strings.TrimSpace(strings.Join(src.Pages, window.Separator))
	if text == "" {
		return nil, ErrNoContent
	}

	prompt, err := quizPrompt(src.Kind, text, key.Params.NumQuestions, key.Params.Difficulty)
	if err != nil {
		return nil, err
	}
	raw, err := complete(ctx, b.gen, b.cfg.Retry, b.logger, Request{Prompt: prompt, JSON: true})
	if err != nil {
		return nil, err
	}

	questions, notes, err := parseQuiz(raw, key.Params.NumQuestions)
	if err != nil {
		b.logger.WarnContext(ctx, "malformed quiz response",
			"document_id", key.DocumentID,
			"response_length", len(raw),
			"error", err)
		return nil, err
	}
	if len(questions) < key.Params.NumQuestions {
		b.logger.InfoContext(ctx, "generator returned fewer questions than requested",
			"document_id", key.DocumentID,
			"requested", key.Params.NumQuestions,
			"received", len(questions))
	}

	sourceType := QuizSourceFile
	if src.Kind == SourceText {
		sourceType = QuizSourceText
	}
	return &domain.QuizPayload{
		Questions:   questions,
		Notes:       notes,
		SourceType:  sourceType,
		GeneratedAt: b.now(),
	}, nil
}
