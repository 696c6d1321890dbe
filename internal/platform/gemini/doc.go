// Package gemini provides an implementation of the generation.Generator
// interface backed by Google's Gemini API.
//
// This package is an infrastructure adapter: it translates a generation
// Request into a GenerateContent call and maps the SDK's failures onto the
// generation error sentinels so the rest of the application never sees
// Gemini specific types.
//
// Every call passes through a token bucket sized from the configured
// requests-per-minute and a circuit breaker that fails fast while the API is
// unhealthy. Retrying is left to the caller (see generation.RetryPolicy).
package gemini
