// Package task runs background work such as document text extraction.
//
// Tasks are persisted through a TaskStore before they are queued so that
// work interrupted by a restart can be restored and requeued by the
// TaskRunner on the next start.
package task
