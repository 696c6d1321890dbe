package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/events"
)

// Factory creates a task for a document.
type Factory interface {
	CreateTask(documentID uuid.UUID) (Task, error)
}

// Submitter accepts tasks for execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to handle task creation events and delegate them to the appropriate task factory.
type TaskFactoryEventHandler struct {
	eventType   string
	taskFactory Factory
	taskRunner  Submitter
	logger      *slog.Logger
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

// NewTaskFactoryEventHandler creates a handler that turns document events
// of eventType into tasks and submits them to the runner.
func NewTaskFactoryEventHandler(
	eventType string,
	taskFactory Factory,
	taskRunner Submitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		eventType:   eventType,
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent creates a task for the document named in the event payload
// and submits it. Events of other types are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != h.eventType {
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.DocumentPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.DocumentID == uuid.Nil {
		return fmt.Errorf("event %s has no document ID", event.ID)
	}

	task, err := h.taskFactory.CreateTask(payload.DocumentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create task",
			"error", err,
			"document_id", payload.DocumentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.taskRunner.Submit(ctx, task); err != nil {
		h.logger.ErrorContext(ctx, "failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"document_id", payload.DocumentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.InfoContext(ctx, "task created and submitted successfully",
		"task_id", task.ID(),
		"task_type", task.Type(),
		"document_id", payload.DocumentID,
		"event_id", event.ID)
	return nil
}
