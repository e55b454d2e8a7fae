// Package webinar manages scheduled live sessions, watcher registration and
// the reminder job run by the scheduler.
package webinar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/notify"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

var (
	// ErrNotHost is returned when a user without the instructor role creates a webinar.
	ErrNotHost = fmt.Errorf("%w: instructor role required", domain.ErrUnauthorized)

	// ErrNotCreator is returned when someone other than the creator or an admin changes a webinar.
	ErrNotCreator = fmt.Errorf("%w: webinar belongs to another user", domain.ErrUnauthorized)

	// ErrAlreadyStarted is returned when registering for a webinar that has begun.
	ErrAlreadyStarted = fmt.Errorf("%w: webinar has already started", domain.ErrConflict)
)

// Notifier creates in-app notifications.
type Notifier interface {
	NotifyUsers(ctx context.Context, recipients []uuid.UUID, typ domain.NotificationType, message string, actorID, courseID, webinarID *uuid.UUID)
}

// Input carries the editable webinar fields.
type Input struct {
	Title       string
	Description string
	StartsAt    time.Time
	HostName    string
	HostTitle   string
	Link        string
	PromoCode   string
}

func (in Input) apply(w *domain.Webinar) {
	w.Title = strings.TrimSpace(in.Title)
	w.Description = in.Description
	w.StartsAt = in.StartsAt.UTC()
	w.HostName = strings.TrimSpace(in.HostName)
	w.HostTitle = strings.TrimSpace(in.HostTitle)
	w.Link = strings.TrimSpace(in.Link)
	w.PromoCode = strings.TrimSpace(in.PromoCode)
}

// Service implements the webinar operations.
type Service struct {
	uow      store.UnitOfWork
	mail     notify.Sender
	notifier Notifier
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a webinar service. Reminders go out for webinars
// starting within window of the job run.
func NewService(uow store.UnitOfWork, mail notify.Sender, notifier Notifier, window time.Duration, logger *slog.Logger, opts ...Option) *Service {
	if uow == nil || mail == nil || notifier == nil {
		panic("webinar service dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	s := &Service{
		uow:      uow,
		mail:     mail,
		notifier: notifier,
		window:   window,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "webinar_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create schedules a webinar hosted by the actor.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in Input) (*domain.Webinar, error) {
	if !actor.Roles.Has(domain.RoleInstructor) && !actor.IsAdmin() {
		return nil, ErrNotHost
	}
	if err := s.checkStart(in.StartsAt); err != nil {
		return nil, err
	}
	w, err := domain.NewWebinar(actor.ID, in.Title, in.StartsAt)
	if err != nil {
		return nil, domain.NewValidationError("", err.Error(), err)
	}
	in.apply(w)
	if err := s.uow.Repositories().Webinars.Create(ctx, w); err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("webinar created",
		slog.String("webinar_id", w.ID.String()),
		slog.String("creator_id", actor.ID.String()),
		slog.Time("starts_at", w.StartsAt))
	return w, nil
}

// Update replaces the editable fields. Moving the start time re-arms the reminder.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in Input) (*domain.Webinar, error) {
	var out *domain.Webinar
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		w, err := managed(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		if !in.StartsAt.Equal(w.StartsAt) {
			if err := s.checkStart(in.StartsAt); err != nil {
				return err
			}
			w.ReminderSent = false
		}
		in.apply(w)
		if err := w.Validate(); err != nil {
			return domain.NewValidationError("", err.Error(), err)
		}
		w.UpdatedAt = s.now().UTC()
		out = w
		return repos.Webinars.Update(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a webinar and its registrations.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if _, err := managed(ctx, repos, actor, id); err != nil {
			return err
		}
		return repos.Webinars.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("webinar deleted",
		slog.String("webinar_id", id.String()),
		slog.String("actor_id", actor.ID.String()))
	return nil
}

// Get returns a webinar with its watcher count.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Webinar, error) {
	return s.uow.Repositories().Webinars.GetByID(ctx, id)
}

// ListUpcoming returns webinars that have not started, soonest first.
func (s *Service) ListUpcoming(ctx context.Context, page, limit int) ([]*domain.Webinar, error) {
	_, limit, offset := domain.NormalizePage(page, limit)
	return s.uow.Repositories().Webinars.ListUpcoming(ctx, s.now().UTC(), limit, offset)
}

// Register adds the user to the webinar's watchers. Registering twice is a
// no-op reported by the false result; only a new registration notifies the
// creator.
func (s *Service) Register(ctx context.Context, userID, webinarID uuid.UUID) (bool, error) {
	var (
		w     *domain.Webinar
		user  *domain.User
		added bool
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		if user, err = repos.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		if w, err = repos.Webinars.GetByID(ctx, webinarID); err != nil {
			return err
		}
		if !w.StartsAt.After(s.now()) {
			return ErrAlreadyStarted
		}
		added, err = repos.Webinars.AddWatcher(ctx, webinarID, userID)
		return err
	})
	if err != nil {
		return false, err
	}
	if !added {
		return false, nil
	}

	if w.CreatorID != userID {
		webinarID := w.ID
		s.notifier.NotifyUsers(ctx, []uuid.UUID{w.CreatorID}, domain.NotifyWebinarRegistration,
			fmt.Sprintf("%s registered for your webinar %s", user.Name, w.Title), &userID, nil, &webinarID)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("webinar registration",
		slog.String("webinar_id", webinarID.String()),
		slog.String("user_id", userID.String()))
	return true, nil
}

// SendReminders e-mails and notifies the watchers of every webinar starting
// within the reminder window, then marks each webinar reminded. A failing
// webinar does not stop the others.
func (s *Service) SendReminders(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := s.now().UTC()
	due, err := s.uow.Repositories().Webinars.ListDueForReminder(ctx, now, now.Add(s.window))
	if err != nil {
		return fmt.Errorf("failed to list webinars due for reminder: %w", err)
	}

	var errs []error
	for _, w := range due {
		n, err := s.remind(ctx, w)
		if err != nil {
			log.Error("failed to send webinar reminders",
				slog.String("error", err.Error()),
				slog.String("webinar_id", w.ID.String()))
			errs = append(errs, err)
			continue
		}
		log.Info("webinar reminders sent",
			slog.String("webinar_id", w.ID.String()),
			slog.Int("watchers", n))
	}
	return errors.Join(errs...)
}

func (s *Service) remind(ctx context.Context, w *domain.Webinar) (int, error) {
	repos := s.uow.Repositories()
	ids, err := repos.Webinars.ListWatcherIDs(ctx, w.ID)
	if err != nil {
		return 0, err
	}

	reached := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		u, err := repos.Users.GetByID(ctx, id)
		if errors.Is(err, store.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		subject, body, err := notify.WebinarReminder(u.Name, w.Title, w.Link, w.StartsAt)
		if err != nil {
			return 0, err
		}
		s.mail.Send(ctx, u.Email, subject, body)
		reached = append(reached, id)
	}

	webinarID := w.ID
	s.notifier.NotifyUsers(ctx, reached, domain.NotifyWebinarReminder,
		fmt.Sprintf("The webinar %s starts at %s", w.Title, w.StartsAt.Format(time.RFC3339)), nil, nil, &webinarID)

	if err := repos.Webinars.MarkReminderSent(ctx, w.ID); err != nil {
		return 0, err
	}
	return len(reached), nil
}

func (s *Service) checkStart(at time.Time) error {
	if at.IsZero() {
		return domain.NewValidationError("starts_at", "start time is required", domain.ErrEmptyWebinarStart)
	}
	if !at.After(s.now()) {
		return domain.NewValidationError("starts_at", "start time must be in the future", nil)
	}
	return nil
}

// managed loads a webinar the actor may change.
func managed(ctx context.Context, repos store.Repositories, actor domain.Actor, id uuid.UUID) (*domain.Webinar, error) {
	w, err := repos.Webinars.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(w.CreatorID) {
		return nil, ErrNotCreator
	}
	return w, nil
}
