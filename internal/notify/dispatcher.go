package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pantognostis-api/internal/events"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/task"
)

// EmailTask delivers one message through a Mailer.
type EmailTask struct {
	task.BaseTask
	mailer Mailer
	msg    Message
}

var _ task.Task = (*EmailTask)(nil)

// NewEmailTask creates a pending e-mail task.
func NewEmailTask(mailer Mailer, msg Message) *EmailTask {
	payload, _ := json.Marshal(msg)
	return &EmailTask{
		BaseTask: task.NewBaseTask(task.TaskTypeEmail, payload),
		mailer:   mailer,
		msg:      msg,
	}
}

// Execute implements task.Task
func (t *EmailTask) Execute(ctx context.Context) error {
	if err := t.mailer.Send(ctx, t.msg); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", t.msg.Subject, t.msg.To, err)
	}
	return nil
}

// Sender is the fire-and-forget e-mail capability used by services.
type Sender interface {
	Send(ctx context.Context, to, subject, html string)
}

// Dispatcher queues e-mail for background delivery.
type Dispatcher struct {
	submitter task.Submitter
	mailer    Mailer
	logger    *slog.Logger
}

var _ Sender = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher that submits e-mail tasks to submitter.
func NewDispatcher(submitter task.Submitter, mailer Mailer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		submitter: submitter,
		mailer:    mailer,
		logger:    logger.With(slog.String("component", "email_dispatcher")),
	}
}

// Send queues the message. Failures are logged only.
func (d *Dispatcher) Send(ctx context.Context, to, subject, html string) {
	d.SendMessage(ctx, Message{To: to, Subject: subject, HTML: html})
}

// SendMessage queues msg. Failures are logged only.
func (d *Dispatcher) SendMessage(ctx context.Context, msg Message) {
	log := logger.FromContextOrDefault(ctx, d.logger)

	if msg.To == "" {
		log.Warn("dropping e-mail without recipient", slog.String("subject", msg.Subject))
		return
	}
	t := NewEmailTask(d.mailer, msg)
	if err := d.submitter.Submit(ctx, t); err != nil {
		log.Error("failed to queue e-mail",
			slog.String("error", err.Error()),
			slog.String("subject", msg.Subject))
		return
	}
	log.Debug("e-mail queued",
		slog.String("task_id", t.ID().String()),
		slog.String("subject", msg.Subject))
}

// EnrollmentEmailFactory builds the purchase confirmation e-mail task for an
// events.EnrollmentConfirmed event.
func EnrollmentEmailFactory(mailer Mailer) task.TaskFactory {
	return func(event *events.Event) (task.Task, error) {
		var payload events.EnrollmentConfirmedPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			return nil, fmt.Errorf("invalid enrollment payload: %w", err)
		}
		if payload.UserEmail == "" {
			return nil, fmt.Errorf("enrollment event %s has no recipient", event.ID)
		}
		subject, body, err := EnrollmentConfirmation(payload.UserName, payload.CourseTitle)
		if err != nil {
			return nil, err
		}
		return NewEmailTask(mailer, Message{
			To:      payload.UserEmail,
			ToName:  payload.UserName,
			Subject: subject,
			HTML:    body,
		}), nil
	}
}
