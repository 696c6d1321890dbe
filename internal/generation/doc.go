// Package generation turns extracted document text into study artifacts by
// talking to a language model through the Generator interface.
//
// It owns the prompts, the parsing of model output into typed payloads and
// the local retry policy for transient model failures. The two builders,
// LearningNoteBuilder and QuizBuilder, implement artifact.Builder and are
// registered with the artifact build-cache at startup. The concrete model
// client lives in internal/platform/gemini.
package generation
