// Package notification manages in-app notifications and pushes each new one
// to the recipient's open websocket connections.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/events"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/realtime"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// ErrNotRecipient is returned when a user touches someone else's notification.
var ErrNotRecipient = fmt.Errorf("%w: notification belongs to another user", domain.ErrUnauthorized)

// Pusher delivers realtime messages to a user's connections.
type Pusher interface {
	Push(userID uuid.UUID, msg realtime.Message) int
}

// Service implements notification use cases.
type Service struct {
	uow    store.UnitOfWork
	pusher Pusher
	logger *slog.Logger
}

// NewService creates a notification service. pusher may be nil.
func NewService(uow store.UnitOfWork, pusher Pusher, logger *slog.Logger) *Service {
	if uow == nil {
		panic("unit of work cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, pusher: pusher, logger: logger.With(slog.String("component", "notification_service"))}
}

// Notify stores n and pushes it to the recipient. Failures are logged only.
func (s *Service) Notify(ctx context.Context, n *domain.Notification) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.uow.Repositories().Notifications.Create(ctx, n); err != nil {
		log.Error("failed to store notification",
			slog.String("error", err.Error()),
			slog.String("type", string(n.Type)),
			slog.String("recipient_id", n.RecipientID.String()))
		return
	}
	if s.pusher != nil {
		delivered := s.pusher.Push(n.RecipientID, realtime.Message{Type: "notification", Data: n})
		log.Debug("notification pushed",
			slog.String("notification_id", n.ID.String()),
			slog.Int("connections", delivered))
	}
}

// NotifyUsers sends the same message to every recipient.
func (s *Service) NotifyUsers(ctx context.Context, recipients []uuid.UUID, typ domain.NotificationType, message string, actorID, courseID, webinarID *uuid.UUID) {
	for _, id := range recipients {
		n, err := domain.NewNotification(id, typ, message)
		if err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Error("invalid notification",
				slog.String("error", err.Error()),
				slog.String("type", string(typ)))
			return
		}
		n.ActorID, n.CourseID, n.WebinarID = actorID, courseID, webinarID
		s.Notify(ctx, n)
	}
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) (domain.Page[*domain.Notification], error) {
	page, limit, offset := domain.NormalizePage(page, limit)
	items, total, err := s.uow.Repositories().Notifications.ListForRecipient(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return domain.Page[*domain.Notification]{}, fmt.Errorf("failed to list notifications: %w", err)
	}
	return domain.NewPage(items, page, limit, total), nil
}

// ListAll returns every notification for administrators.
func (s *Service) ListAll(ctx context.Context, page, limit int) (domain.Page[*domain.Notification], error) {
	page, limit, offset := domain.NormalizePage(page, limit)
	items, total, err := s.uow.Repositories().Notifications.ListAll(ctx, limit, offset)
	if err != nil {
		return domain.Page[*domain.Notification]{}, fmt.Errorf("failed to list notifications: %w", err)
	}
	return domain.NewPage(items, page, limit, total), nil
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		n, err := repos.Notifications.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if n.RecipientID != userID {
			return ErrNotRecipient
		}
		return repos.Notifications.MarkRead(ctx, id)
	})
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.uow.Repositories().Notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

// EnrollmentHandler tells the instructor about a confirmed purchase.
func (s *Service) EnrollmentHandler() events.EventHandler {
	return events.EventHandlerFunc(func(ctx context.Context, event *events.Event) error {
		if event.Type != events.EnrollmentConfirmed {
			return nil
		}
		var p events.EnrollmentConfirmedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("invalid enrollment payload: %w", err)
		}
		if p.InstructorID == uuid.Nil {
			return errors.New("enrollment event has no instructor")
		}
		actor, course := p.UserID, p.CourseID
		s.NotifyUsers(ctx, []uuid.UUID{p.InstructorID}, domain.NotifyEnrollment,
			fmt.Sprintf("%s enrolled in %s", p.UserName, p.CourseTitle),
			&actor, &course, nil)
		return nil
	})
}
