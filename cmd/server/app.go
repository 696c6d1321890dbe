package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/mornoningo-api/internal/artifact"
	"github.com/phrazzld/mornoningo-api/internal/config"
	"github.com/phrazzld/mornoningo-api/internal/domain"
	"github.com/phrazzld/mornoningo-api/internal/domain/srs"
	"github.com/phrazzld/mornoningo-api/internal/events"
	"github.com/phrazzld/mornoningo-api/internal/extract"
	"github.com/phrazzld/mornoningo-api/internal/generation"
	"github.com/phrazzld/mornoningo-api/internal/platform/filestore"
	"github.com/phrazzld/mornoningo-api/internal/platform/gcs"
	"github.com/phrazzld/mornoningo-api/internal/platform/gemini"
	"github.com/phrazzld/mornoningo-api/internal/platform/memory"
	"github.com/phrazzld/mornoningo-api/internal/platform/postgres"
	platformredis "github.com/phrazzld/mornoningo-api/internal/platform/redis"
	"github.com/phrazzld/mornoningo-api/internal/service"
	"github.com/phrazzld/mornoningo-api/internal/store"
	"github.com/phrazzld/mornoningo-api/internal/task"
	goredis "github.com/redis/go-redis/v9"
)

// shutdownTimeout bounds how long running builds get to stop on shutdown.
const shutdownTimeout = 10 * time.Second

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Connections owned by the application
	db        *sql.DB
	redis     *goredis.Client
	gcsClient *storage.Client

	// Stores
	documentStore store.DocumentStore
	pageStore     store.PageTextStore
	reviewStore   store.ReviewStore
	artifactStore store.ArtifactStore
	blobStore     store.BlobStore
	taskStore     task.TaskStore

	// Services
	generator    generation.Generator
	cache        *artifact.Cache
	orchestrator *service.Orchestrator
	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication connects the configured backends, creates the Gemini
// client and wires the services.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	if err := app.setupStores(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	gen, err := gemini.NewClient(ctx, cfg.LLM, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized successfully", "model", cfg.LLM.ModelName)

	if err := app.setupServices(gen); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupStores selects the store implementations from the configuration.
// Without a database URL all records live in process memory.
func (app *application) setupStores(ctx context.Context) error {
	cfg := app.config

	if cfg.Database.URL == "" {
		app.logger.Warn("No database configured; records are kept in memory only")
		app.documentStore = memory.NewDocumentStore()
		app.pageStore = memory.NewPageTextStore()
		app.reviewStore = memory.NewReviewStore()
		app.artifactStore = memory.NewArtifactStore()
		app.taskStore = task.NewMemoryTaskStore()
	} else {
		db, err := setupAppDatabase(ctx, cfg.Database, app.logger)
		if err != nil {
			return err
		}
		app.db = db
		if cfg.Database.MigrateOnStart {
			if err := postgres.Migrate(ctx, db, postgres.MigrateUp, app.logger); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
		}
		app.documentStore = postgres.NewPostgresDocumentStore(db, app.logger)
		app.pageStore = postgres.NewPostgresPageTextStore(db, app.logger)
		app.reviewStore = postgres.NewPostgresReviewStore(db, app.logger)
		app.artifactStore = postgres.NewPostgresArtifactStore(db, app.logger)
		app.taskStore = postgres.NewPostgresTaskStore(db, app.logger)
	}

	// Redis takes over artifact records when configured.
	if cfg.Redis.URL != "" {
		rdb, err := platformredis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = rdb
		app.artifactStore = platformredis.NewArtifactStore(rdb, cfg.Redis.KeyPrefix, app.logger)
		app.logger.Info("Artifact records stored in redis")
	}

	switch cfg.Storage.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		app.gcsClient = client
		blobs, err := gcs.New(client, cfg.Storage.GCSBucket, gcs.DefaultPrefix, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create gcs blob store: %w", err)
		}
		app.blobStore = blobs
	default:
		blobs, err := filestore.New(cfg.Storage.UploadDir, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create upload directory store: %w", err)
		}
		app.blobStore = blobs
	}
	app.logger.Info("Stores initialized",
		"database", app.db != nil,
		"redis", app.redis != nil,
		"storage_backend", cfg.Storage.Backend)
	return nil
}

// setupServices wires the cache, orchestrator, event emitter and task
// runner around gen, then starts the runner.
func (app *application) setupServices(gen generation.Generator) error {
	cfg := app.config
	logger := app.logger
	app.generator = gen

	tracker := service.NewExtractionTracker(app.documentStore, app.pageStore, logger)
	scheduler := service.NewReviewScheduler(app.reviewStore, srs.NewDefaultService(), logger)

	builderCfg := generation.BuilderConfig{
		MaxConcurrentRequests: cfg.Generation.MaxConcurrentRequests,
		Retry: generation.RetryPolicy{
			MaxRetries: cfg.LLM.MaxRetries,
			BaseDelay:  time.Duration(cfg.LLM.RetryBaseDelayMs) * time.Millisecond,
		},
	}
	app.cache = artifact.NewCache(app.artifactStore, map[domain.ArtifactKind]artifact.Builder{
		domain.ArtifactKindQuiz:         generation.NewQuizBuilder(gen, tracker, builderCfg, logger),
		domain.ArtifactKindLearningNote: generation.NewLearningNoteBuilder(gen, tracker, builderCfg, logger),
	}, artifact.Config{MaxConcurrentBuilds: cfg.Generation.MaxConcurrentBuilds}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.orchestrator = service.NewOrchestrator(
		app.documentStore,
		app.pageStore,
		app.blobStore,
		tracker,
		scheduler,
		app.cache,
		app.eventEmitter,
		service.OrchestratorConfig{
			DefaultWindowSize: cfg.Generation.DefaultWindowSize,
			WarmLearningNote:  cfg.Generation.WarmLearningNote,
			MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
		},
		logger,
	)

	extractor := extract.NewExtractor(app.blobStore, cfg.Storage.MaxUploadBytes, logger)
	factory := task.NewExtractionTaskFactory(tracker, extractor, app.orchestrator.OnExtractionComplete, logger)

	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:    cfg.Task.QueueSize,
		WorkerCount:  cfg.Task.WorkerCount,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)
	app.taskRunner.RegisterRestorer(task.TaskTypeExtraction, factory.Restore)

	app.eventEmitter.RegisterHandler(
		task.NewTaskFactoryEventHandler(events.TypeDocumentExtraction, factory, app.taskRunner, logger),
		events.TypeDocumentExtraction,
	)

	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	return nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
// Builds cancelled here leave processing records that the next start rebuilds.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := app.cache.Close(ctx); err != nil {
			app.logger.Error("Artifact builds did not stop in time", "error", err)
		}
		cancel()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}

	if app.gcsClient != nil {
		if err := app.gcsClient.Close(); err != nil {
			app.logger.Error("Error closing storage client", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
