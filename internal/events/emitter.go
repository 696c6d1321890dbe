package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type registration struct {
	handler EventHandler
	types   map[string]bool
}

func (r registration) accepts(eventType string) bool {
	return len(r.types) == 0 || r.types[eventType]
}

// InMemoryEventEmitter dispatches events synchronously to registered handlers.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []registration
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler adds a handler for the given event types. With no types
// the handler receives every event.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...string) {
	reg := registration{handler: handler, types: make(map[string]bool, len(types))}
	for _, t := range types {
		reg.types[t] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, reg)
	e.logger.Debug("registered event handler", "handler_count", len(e.handlers), "types", types)
}

// EmitEvent publishes the event to every matching handler. All matching
// handlers run even if one fails; the first error is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskRequestEvent) error {
	e.mu.RLock()
	var handlers []EventHandler
	for _, reg := range e.handlers {
		if reg.accepts(event.Type) {
			handlers = append(handlers, reg.handler)
		}
	}
	e.mu.RUnlock()

	if len(handlers) == 0 {
		e.logger.WarnContext(ctx, "no handlers registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := dispatch(ctx, handler, event); err != nil {
			e.logger.ErrorContext(ctx, "handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func dispatch(ctx context.Context, handler EventHandler, event *TaskRequestEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("event handler panic: %v", p)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
