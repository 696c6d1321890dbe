// Package service contains the application use cases: tracking document
// extraction, scheduling reviews and orchestrating artifact generation.
//
// Services coordinate the stores defined in internal/store, the artifact
// build-cache and the background task runner. They never depend on a
// concrete infrastructure implementation.
//
// Key components:
//
//   - ExtractionTracker owns the extraction state machine of documents and
//     the page texts that become visible once a document is ready.
//   - ReviewScheduler persists the spaced-repetition review entries of
//     documents.
//   - Orchestrator is the entry point used by the API: uploads, artifact
//     requests, retries and deletion.
//
// Errors returned by services wrap the sentinels of internal/domain, so
// callers classify them with errors.Is.
package service
