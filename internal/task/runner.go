package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// TaskTimeout bounds each task execution
	TaskTimeout time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
		TaskTimeout: 30 * time.Second,
	}
}

// ErrRunnerNotStarted is returned by Submit before Start has been called.
var ErrRunnerNotStarted = errors.New("task runner not started")

// TaskRunner owns a queue and the worker pool consuming it.
type TaskRunner struct {
	queue  *TaskQueue
	pool   *WorkerPool
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{
		WorkerCount: config.WorkerCount,
		TaskTimeout: config.TaskTimeout,
	}, logger)

	return &TaskRunner{
		queue:  queue,
		pool:   pool,
		logger: logger.With(slog.String("component", "task_runner")),
	}
}

// SetErrorHandler allows setting a custom error handler function.
// It must be called before Start.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Submit adds a new task to the queue without blocking.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return ErrRunnerNotStarted
	}

	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}
	return nil
}

// Start begins processing tasks
func (r *TaskRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New("task runner already started")
	}
	r.started = true
	r.pool.Start()
	return nil
}

// Stop closes the queue and waits for queued tasks to finish. If ctx ends
// first, the remaining tasks are abandoned and ctx's error is returned.
func (r *TaskRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	r.logger.Info("stopping task runner", slog.Int("pending", r.queue.Len()))
	r.queue.Close()

	if err := r.pool.Wait(ctx); err != nil {
		r.pool.Abort()
		r.logger.Warn("task runner stopped before draining the queue",
			slog.Int("abandoned", r.queue.Len()),
			slog.String("error", err.Error()))
		return err
	}
	r.logger.Info("task runner stopped")
	return nil
}
