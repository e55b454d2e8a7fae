package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeEmail represents the task type for delivering one e-mail
	TaskTypeEmail = "email"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// StatusSetter is implemented by tasks whose status the worker pool records.
type StatusSetter interface {
	SetStatus(status TaskStatus)
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// BaseTask carries the identity and status bookkeeping shared by concrete tasks.
type BaseTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte

	mu     sync.RWMutex
	status TaskStatus
}

// NewBaseTask creates a pending task identity.
func NewBaseTask(taskType string, payload []byte) BaseTask {
	return BaseTask{
		id:       uuid.New(),
		taskType: taskType,
		payload:  payload,
		status:   TaskStatusPending,
	}
}

// ID returns the task's unique identifier
func (t *BaseTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *BaseTask) Type() string {
	return t.taskType
}

// Payload returns the task data as a byte slice
func (t *BaseTask) Payload() []byte {
	return t.payload
}

// Status returns the current task status
func (t *BaseTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// SetStatus implements StatusSetter
func (t *BaseTask) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}
