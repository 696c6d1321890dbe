package artifact

import (
	"context"

	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// Builder produces the payload for one artifact key. Implementations must be
// safe for concurrent use; the cache never runs two builds of the same key at
// once but does run builds of different keys in parallel.
type Builder interface {
	Build(ctx context.Context, key domain.ArtifactKey) (domain.ArtifactPayload, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, key domain.ArtifactKey) (domain.ArtifactPayload, error)

// Build implements Builder.
func (f BuilderFunc) Build(ctx context.Context, key domain.ArtifactKey) (domain.ArtifactPayload, error) {
	return f(ctx, key)
}

// Transition describes one status change of an artifact record.
type Transition struct {
	Key        domain.ArtifactKey
	From       domain.ArtifactStatus
	To         domain.ArtifactStatus
	Generation int64
	Payload    domain.ArtifactPayload
	Err        error
}

// TransitionListener is notified after a transition has been committed.
// Listeners run outside the cache's locks, on the goroutine that caused the
// transition, and must not block for long.
type TransitionListener func(ctx context.Context, t Transition)
