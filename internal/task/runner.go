package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoRestorer is recorded on persisted tasks whose type has no registered Restorer.
var ErrNoRestorer = errors.New("no restorer registered for task type")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner persists submitted tasks and executes them on a worker pool.
// On Start it restores tasks left pending or processing by a previous run.
type TaskRunner struct {
	store      TaskStore
	queue      *TaskQueue
	pool       *WorkerPool
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	mu        sync.Mutex
	restorers map[string]Restorer
	running   map[uuid.UUID]bool

	monitorStop chan struct{}
	monitorDone chan struct{}
	stopOnce    sync.Once
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	queue := NewTaskQueue(config.QueueSize, logger)
	r := &TaskRunner{
		store:     store,
		queue:     queue,
		pool:      NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger),
		config:    config,
		logger:    logger,
		restorers: make(map[string]Restorer),
		running:   make(map[uuid.UUID]bool),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
	r.pool.SetProcessFunc(r.processTask)
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// RegisterRestorer installs the function used to rebuild persisted tasks of
// taskType during recovery.
func (r *TaskRunner) RegisterRestorer(taskType string, restore Restorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restorers[taskType] = restore
}

// Submit persists the task and adds it to the queue.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		// Leave no pending record behind that nothing will pick up.
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.ErrorContext(ctx, "failed to mark rejected task as failed",
				"task_id", task.ID(),
				"error", updateErr)
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the stuck
// task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(context.Background()); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.monitorStop = make(chan struct{})
	r.monitorDone = make(chan struct{})
	go r.stuckTaskMonitor()

	return nil
}

// Stop gracefully shuts down the task runner. Tasks interrupted by the
// shutdown stay in processing state and are recovered on the next Start.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		if r.monitorStop != nil {
			close(r.monitorStop)
			<-r.monitorDone
		}
		r.pool.Stop()
		r.queue.Close()
	})
}

// Recover loads unfinished tasks from the store and queues them again.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Tasks in processing were interrupted by a crash or shutdown.
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.InfoContext(ctx, "recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
	for _, rec := range processing {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.ErrorContext(ctx, "failed to reset processing task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
	return nil
}

func (r *TaskRunner) restore(rec Record) (Task, error) {
	r.mu.Lock()
	restore, ok := r.restorers[rec.Type]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRestorer, rec.Type)
	}
	return restore(rec)
}

func (r *TaskRunner) requeue(ctx context.Context, rec Record) bool {
	logger := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	task, err := r.restore(rec)
	if err != nil {
		logger.ErrorContext(ctx, "failed to restore task", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			logger.ErrorContext(ctx, "failed to mark unrestorable task as failed", "error", updateErr)
		}
		return false
	}

	if err := r.queue.Enqueue(task); err != nil {
		logger.ErrorContext(ctx, "failed to requeue task", "error", err)
		return false
	}
	return true
}

func (r *TaskRunner) markRunning(id uuid.UUID, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if running {
		r.running[id] = true
	} else {
		delete(r.running, id)
	}
}

func (r *TaskRunner) isRunning(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[id]
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)
	// Status writes must land even when the pool is stopping.
	storeCtx := context.WithoutCancel(ctx)

	if err := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	r.markRunning(task.ID(), true)
	defer r.markRunning(task.ID(), false)

	logger.Info("processing task")
	start := time.Now()
	err := task.Execute(ctx)

	switch {
	case err != nil && ctx.Err() != nil:
		logger.Warn("task interrupted by shutdown", "error", err)
	case err != nil:
		logger.Error("task execution failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		r.errHandler(task, err)
	default:
		logger.Info("task completed successfully", "duration_ms", time.Since(start).Milliseconds())
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
			logger.Error("failed to update task status to completed", "error", updateErr)
		}
	}
}

// stuckTaskMonitor periodically resets tasks that have been in
// "processing" state for too long and are not running in this process.
func (r *TaskRunner) stuckTaskMonitor() {
	defer close(r.monitorDone)

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.monitorStop:
			return
		case <-ticker.C:
			r.resetStuckTasks(context.Background())
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) int {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to check for stuck tasks", "error", err)
		return 0
	}

	reset := 0
	for _, rec := range stuck {
		if r.isRunning(rec.ID) {
			continue
		}
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending,
			"Reset after being stuck in processing state"); err != nil {
			r.logger.ErrorContext(ctx, "failed to reset stuck task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		if r.requeue(ctx, rec) {
			reset++
			r.logger.InfoContext(ctx, "requeued stuck task",
				"task_id", rec.ID,
				"task_type", rec.Type)
		}
	}
	if reset > 0 {
		r.logger.InfoContext(ctx, "reset stuck tasks", "count", reset)
	}
	return reset
}
