// Package events decouples request-side services from background work.
//
// Services publish a TaskRequestEvent describing the work they need done;
// handlers registered on the emitter (typically in internal/task) turn the
// event into a task. The emitter routes each event only to the handlers
// registered for its type.
package events
