package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/window"
	"golang.org/x/sync/errgroup"
)

// LearningNoteBuilder builds learning notes: one structured summary per page
// plus one markdown summary per window of pages.
type LearningNoteBuilder struct {
	builderBase
}

// NewLearningNoteBuilder creates a LearningNoteBuilder.
func NewLearningNoteBuilder(
	gen Generator,
	source PageSource,
	cfg BuilderConfig,
	logger *slog.Logger,
) *LearningNoteBuilder {
	return &LearningNoteBuilder{
		builderBase: newBuilderBase(gen, source, cfg, logger, "learning_note_builder"),
	}
}

// Build implements artifact.Builder. Page and window requests run
// concurrently; results are placed by index so the payload is always in page
// order. Any request failing after its retries fails the build.
func (b *LearningNoteBuilder) Build(ctx context.Context, key domain.ArtifactKey) (domain.ArtifactPayload, error) {
	if key.Kind != domain.ArtifactKindLearningNote {
		return nil, fmt.Errorf("%w: %s key for learning note builder", domain.ErrInvalidArgument, key.Kind)
	}

	src, err := b.source.Source(ctx, key.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	if !hasText(src.Pages) {
		return nil, ErrNoContent
	}

	windows, err := window.Windows(src.Pages, key.Params.WindowSize)
	if err != nil {
		return nil, err
	}

	pages := make([]domain.PageNote, len(src.Pages))
	notes := make([]domain.WindowNote, window.Count(len(src.Pages), key.Params.WindowSize))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.MaxConcurrentRequests)

	calls := 0
	for p := range window.Pages(src.Pages) {
		i := p.StartPage
		label := src.PageLabel(i)
		text := strings.TrimSpace(p.Text)
		pages[i] = domain.PageNote{Index: i, Label: label, Text: clip(text, MaxPageTextChars)}
		if text == "" {
			continue
		}
		calls++
		g.Go(func() error {
			summary, err := b.summarizePage(gctx, label, text)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			pages[i].Summary = summary
			return nil
		})
	}

	slot := 0
	for w := range windows {
		i := slot
		slot++
		notes[i] = domain.WindowNote{StartPage: w.StartPage, EndPage: w.EndPage, PageIndexes: w.PageIndexes()}
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		calls++
		g.Go(func() error {
			md, err := b.summarizeWindow(gctx, w)
			if err != nil {
				return fmt.Errorf("pages %d-%d: %w", w.StartPage+1, w.EndPage+1, err)
			}
			notes[i].Markdown = md
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.logger.DebugContext(ctx, "learning note assembled",
		"document_id", key.DocumentID,
		"page_count", len(pages),
		"window_count", len(notes),
		"generator_calls", calls)

	return &domain.LearningNotePayload{
		PageCount:   len(pages),
		WindowSize:  key.Params.WindowSize,
		Pages:       pages,
		Windows:     notes,
		Markdown:    mergeMarkdown(notes),
		GeneratedAt: b.now(),
	}, nil
}

func (b *LearningNoteBuilder) summarizePage(ctx context.Context, label, text string) (domain.PageSummary, error) {
	prompt, err := pagePrompt(label, text)
	if err != nil {
		return domain.PageSummary{}, err
	}
	raw, err := complete(ctx, b.gen, b.cfg.Retry, b.logger, Request{Prompt: prompt, JSON: true})
	if err != nil {
		return domain.PageSummary{}, err
	}
	return parsePageSummary(raw)
}

func (b *LearningNoteBuilder) summarizeWindow(ctx context.Context, w window.Window) (string, error) {
	prompt, err := windowPrompt(w.StartPage, w.EndPage, w.Text)
	if err != nil {
		return "", err
	}
	raw, err := complete(ctx, b.gen, b.cfg.Retry, b.logger, Request{Prompt: prompt})
	if err != nil {
		return "", err
	}
	md := unwrapMarkdown(raw)
	if md == "" {
		return "", fmt.Errorf("%w: empty window summary", ErrInvalidResponse)
	}
	return md, nil
}

func mergeMarkdown(notes []domain.WindowNote) string {
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		if md := strings.TrimSpace(n.Markdown); md != "" {
			parts = append(parts, md)
		}
	}
	return strings.Join(parts, "\n\n")
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}
