// Package api exposes the orchestrator over HTTP: document upload and
// lifecycle, review schedules, and quiz and learning-note generation.
// Handlers translate requests into service calls and map domain errors to
// status codes.
package api
