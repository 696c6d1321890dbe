package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/mornoningo-api/internal/api"
	apiMiddleware "github.com/phrazzld/mornoningo-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(app.logger))

	documentHandler := api.NewDocumentHandler(app.orchestrator, app.config.Storage.MaxUploadBytes, app.logger)
	generationHandler := api.NewGenerationHandler(
		app.orchestrator,
		time.Duration(app.config.Server.RequestTimeoutSeconds)*time.Second,
		app.logger,
	)
	healthHandler := api.NewHealthHandler(app.config.LLM.ModelName)

	r.Route("/api", func(r chi.Router) {
		// Documents
		r.Post("/upload", documentHandler.Upload)
		r.Get("/documents", documentHandler.ListDocuments)
		r.Get("/documents/{id}", documentHandler.GetDocument)
		r.Delete("/documents/{id}", documentHandler.DeleteDocument)
		r.Post("/documents/{id}/extraction/retry", documentHandler.RetryExtraction)

		// Reviews
		r.Get("/documents/{id}/reviews", documentHandler.DocumentReviews)
		r.Get("/reviews/due", documentHandler.DueReviews)

		// Generation
		r.Post("/generate-quiz", generationHandler.GenerateQuiz)
		r.Post("/generate-quiz-from-file", generationHandler.GenerateQuizFromFile)
		r.Post("/generate-learning-note", generationHandler.GenerateLearningNote)
		r.Get("/learning-note/{id}", generationHandler.GetLearningNote)
	})

	r.Get("/health", healthHandler.Health)

	return r
}
