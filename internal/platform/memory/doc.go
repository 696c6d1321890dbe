// Package memory provides process-local implementations of the store
// interfaces. They are used when no database is configured and as fakes in
// tests. Every value is copied on the way in and out so callers never share
// mutable state with the store.
package memory
