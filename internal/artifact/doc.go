// Package artifact implements the single-flight build cache for generated
// document artifacts.
//
// A Cache maps an ArtifactKey to an ArtifactRecord and runs at most one
// build per key at a time. Forced rebuilds advance the record's generation;
// results of superseded builds are discarded when they arrive instead of
// being written back. Builds run detached from the requesting context and
// are bounded by a process-wide concurrency limit.
package artifact
