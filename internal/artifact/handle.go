package artifact

import (
	"context"

	"github.com/phrazzld/mornoningo-api/internal/domain"
)

// Handle is a caller's view of one Ensure call. If the build it refers to is
// superseded by a forced rebuild or a removal, Wait follows the newer attempt,
// so a handle never yields a payload older than its own generation.
type Handle struct {
	key    domain.ArtifactKey
	entry  *entry
	flight *flight
}

// Key returns the artifact key of the handle.
func (h *Handle) Key() domain.ArtifactKey { return h.key }

// Generation returns the record generation the handle was issued for.
func (h *Handle) Generation() int64 { return h.flight.generation }

// Result is the outcome of the build a handle finally resolved to.
type Result struct {
	Payload domain.ArtifactPayload
	// Generation of the attempt that produced Payload. It is higher than
	// the handle's own generation when a forced rebuild took over.
	Generation int64
}

// Wait blocks until the artifact is ready or its build fails, or until ctx
// is done. A ctx error leaves the build running and the record unchanged.
func (h *Handle) Wait(ctx context.Context) (domain.ArtifactPayload, error) {
	res, err := h.WaitResult(ctx)
	return res.Payload, err
}

// WaitResult is Wait reporting which generation resolved the handle.
func (h *Handle) WaitResult(ctx context.Context) (Result, error) {
	f := h.flight
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-f.done:
		}
		if !f.superseded {
			if f.err != nil {
				return Result{Generation: f.generation}, f.err
			}
			return Result{Payload: f.payload, Generation: f.generation}, nil
		}
		h.entry.mu.Lock()
		f = h.entry.flight
		h.entry.mu.Unlock()
	}
}

// Done returns a channel that is closed once Wait would not block.
// The channel belongs to the attempt current at the time of the call.
func (h *Handle) Done() <-chan struct{} {
	h.entry.mu.Lock()
	defer h.entry.mu.Unlock()
	f := h.flight
	for f.superseded {
		f = h.entry.flight
	}
	return f.done
}
