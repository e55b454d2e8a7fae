package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pantognostis-api/internal/events"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
)

// TaskFactory builds the background task for one event.
type TaskFactory func(event *events.Event) (Task, error)

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to turn events of one type into background tasks.
type TaskFactoryEventHandler struct {
	eventType string
	factory   TaskFactory
	submitter Submitter
	logger    *slog.Logger
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

// NewTaskFactoryEventHandler creates a new event handler that uses factory
// to create tasks for eventType, and submits them to submitter.
func NewTaskFactoryEventHandler(
	eventType string,
	factory TaskFactory,
	submitter Submitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		eventType: eventType,
		factory:   factory,
		submitter: submitter,
		logger:    logger.With(slog.String("component", "task_factory_event_handler")),
	}
}

// HandleEvent processes events by creating and submitting tasks.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	if event.Type != h.eventType {
		log.Debug("ignoring event with unsupported type",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}

	task, err := h.factory(event)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.submitter.Submit(ctx, task); err != nil {
		log.Error("failed to submit task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID().String()),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Debug("task created and submitted",
		slog.String("task_id", task.ID().String()),
		slog.String("task_type", task.Type()),
		slog.String("event_id", event.ID.String()))
	return nil
}
