package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/artifact"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/events"
	"github.com/phrazzld/mornoningo-api/internal/extract"
	"github.com/phrazzld/mornoningo-api/internal/generation"
	"github.com/phrazzld/mornoningo-api/internal/mocks"
	"github.com/phrazzld/mornoningo-api/internal/platform/memory"
	"github.com/phrazzld/mornoningo-api/internal/task"
	"github.com/stretchr/testify/require"
)

var numQuestionsRe = regexp.MustCompile(`(\d+) questions in total`)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// studyGenerator answers quiz prompts with the requested number of
// questions, page prompts with a three point summary and window prompts
// with markdown.
func studyGenerator() *mocks.MockGenerator {
	return &mocks.MockGenerator{
		CompleteFn: func(_ context.Context, req generation.Request) (string, error) {
			if m := numQuestionsRe.FindStringSubmatch(req.Prompt); m != nil {
				n, _ := strconv.Atoi(m[1])
				qs := make([]string, n)
				for i := range qs {
					qs[i] = fmt.Sprintf(`{"question":"Q%d?","options":["a","b","c","d"],"correctIndex":%d}`, i+1, i%4)
				}
				return `{"questions":[` + strings.Join(qs, ",") + `],"notes":[{"title":"t","summary":"s"}]}`, nil
			}
			if req.JSON {
				return `{"outline":"o","keyPoints":["k1","k2","k3"],"studyQuestion":"Why?"}`, nil
			}
			return "## Summary\n- point", nil
		},
	}
}

// staticExtractor returns the same pages for every file.
type staticExtractor struct {
	pages []string
	err   error
}

func (s staticExtractor) ExtractPages(_ context.Context, _ string, progress extract.ProgressFunc) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	progress(50)
	progress(100)
	return s.pages, nil
}

// harness wires an Orchestrator over memory stores. Extraction events are
// executed synchronously by the emitter handler.
type harness struct {
	docs      *memory.DocumentStore
	pages     *memory.PageTextStore
	blobs     *memory.BlobStore
	reviews   *memory.ReviewStore
	artifacts *memory.ArtifactStore
	tracker   *ExtractionTracker
	scheduler *ReviewScheduler
	cache     *artifact.Cache
	emitter   *events.InMemoryEventEmitter
	gen       *mocks.MockGenerator
	orch      *Orchestrator

	mu        sync.Mutex
	extractor task.PageExtractor
}

func newHarness(t *testing.T, cfg OrchestratorConfig) *harness {
	t.Helper()
	logger := discardLogger()

	h := &harness{
		docs:      memory.NewDocumentStore(),
		pages:     memory.NewPageTextStore(),
		blobs:     memory.NewBlobStore(),
		reviews:   memory.NewReviewStore(),
		artifacts: memory.NewArtifactStore(),
		emitter:   events.NewInMemoryEventEmitter(logger),
		gen:       studyGenerator(),
		extractor: staticExtractor{pages: []string{"page one text", "page two text", "page three text"}},
	}
	h.tracker = NewExtractionTracker(h.docs, h.pages, logger)
	h.scheduler = NewReviewScheduler(h.reviews, nil, logger)

	builderCfg := generation.BuilderConfig{
		MaxConcurrentRequests: 2,
		Retry:                 generation.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
	}
	h.cache = artifact.NewCache(h.artifacts, map[domain.ArtifactKind]artifact.Builder{
		domain.ArtifactKindLearningNote: generation.NewLearningNoteBuilder(h.gen, h.tracker, builderCfg, logger),
		domain.ArtifactKindQuiz:         generation.NewQuizBuilder(h.gen, h.tracker, builderCfg, logger),
	}, artifact.Config{MaxConcurrentBuilds: 2}, logger)
	t.Cleanup(func() { _ = h.cache.Close(context.Background()) })

	h.orch = NewOrchestrator(h.docs, h.pages, h.blobs, h.tracker, h.scheduler, h.cache, h.emitter, cfg, logger)

	h.emitter.RegisterHandler(events.EventHandlerFunc(func(ctx context.Context, e *events.TaskRequestEvent) error {
		var p events.DocumentPayload
		if err := e.UnmarshalPayload(&p); err != nil {
			return err
		}
		h.mu.Lock()
		ex := h.extractor
		h.mu.Unlock()
		tk, err := task.NewExtractionTask(p.DocumentID, h.tracker, ex, h.orch.OnExtractionComplete, logger)
		if err != nil {
			return err
		}
		_ = tk.Execute(ctx)
		return nil
	}), events.TypeDocumentExtraction)

	return h
}

func (h *harness) setExtractor(ex task.PageExtractor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.extractor = ex
}

func (h *harness) upload(t *testing.T, name string) *domain.Document {
	t.Helper()
	doc, err := h.orch.OnUpload(context.Background(), Upload{
		Name:        name,
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.4 fake"),
	})
	require.NoError(t, err)
	return doc
}

// newDocument stores a pending document directly.
func newDocument(t *testing.T, docs *memory.DocumentStore, name string) *domain.Document {
	t.Helper()
	doc, err := domain.NewDocument(uuid.NewString(), name, "", 1)
	require.NoError(t, err)
	require.NoError(t, docs.Create(context.Background(), doc))
	return doc
}
