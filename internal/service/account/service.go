// Package account serves the user directory, profile edits and the support
// contact form.
package account

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

// MaxSupportMessageLength bounds the body of a support request.
const MaxSupportMessageLength = 5000

var (
	// ErrAdminOnly is returned when a non-admin changes another account.
	ErrAdminOnly = fmt.Errorf("%w: admin role required", domain.ErrUnauthorized)

	// ErrSelfLockout is returned when an admin disables or locks their own account.
	ErrSelfLockout = domain.NewValidationError("active", "admins cannot disable or lock their own account", nil)

	// ErrNoSupportInbox is returned when no address receives support mail.
	ErrNoSupportInbox = errors.New("support inbox is not configured")
)

// Mailer queues outgoing e-mail.
type Mailer interface {
	SendMessage(ctx context.Context, msg notify.Message)
}

// UserQuery pages and filters a user listing.
type UserQuery struct {
	Search string
	Page   int
	Limit  int
}

// AdminUpdate is an admin's change to another account. Nil flags are left
// as they are.
type AdminUpdate struct {
	Profile domain.Profile
	Active  *bool
	Locked  *bool
}

// SupportRequest is a contact form submission.
type SupportRequest struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// Service implements the account operations.
type Service struct {
	uow          store.UnitOfWork
	mail         Mailer
	supportInbox string
	logger       *slog.Logger
}

// NewService creates an account service. supportInbox may be empty, in which
// case ContactSupport fails with ErrNoSupportInbox.
func NewService(uow store.UnitOfWork, mail Mailer, supportInbox string, logger *slog.Logger) *Service {
	if uow == nil {
		panic("unit of work cannot be nil")
	}
	if mail == nil {
		panic("mailer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:          uow,
		mail:         mail,
		supportInbox: strings.TrimSpace(supportInbox),
		logger:       logger.With(slog.String("component", "account_service")),
	}
}

// ListUsers returns a page of every account, newest first.
func (s *Service) ListUsers(ctx context.Context, q UserQuery) (domain.Page[*domain.User], error) {
	return s.list(ctx, "", q)
}

// ListInstructors returns a page of accounts holding the instructor role.
func (s *Service) ListInstructors(ctx context.Context, q UserQuery) (domain.Page[*domain.User], error) {
	return s.list(ctx, domain.RoleInstructor, q)
}

func (s *Service) list(ctx context.Context, role domain.Role, q UserQuery) (domain.Page[*domain.User], error) {
	page, limit, offset := domain.NormalizePage(q.Page, q.Limit)
	users, total, err := s.uow.Repositories().Users.List(ctx, store.UserFilter{
		Role:   role,
		Search: q.Search,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return domain.Page[*domain.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return domain.NewPage(users, page, limit, total), nil
}

// GetUser returns an account to its owner or an admin. Anyone else gets
// store.ErrUserNotFound.
func (s *Service) GetUser(ctx context.Context, viewer domain.Actor, id uuid.UUID) (*domain.User, error) {
	if viewer.ID != id && !viewer.IsAdmin() {
		return nil, store.ErrUserNotFound
	}
	return s.uow.Repositories().Users.GetByID(ctx, id)
}

// UpdateProfile changes the user's own profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, p domain.Profile) (*domain.User, error) {
	user, err := s.update(ctx, userID, func(u *domain.User) error {
		return u.ApplyProfile(p)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("profile updated",
		slog.String("user_id", userID.String()))
	return user, nil
}

// UpdateUser applies an admin's change to any account.
func (s *Service) UpdateUser(ctx context.Context, actor domain.Actor, userID uuid.UUID, in AdminUpdate) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if actor.ID == userID && ((in.Active != nil && !*in.Active) || (in.Locked != nil && *in.Locked)) {
		return nil, ErrSelfLockout
	}
	user, err := s.update(ctx, userID, func(u *domain.User) error {
		if err := u.ApplyProfile(in.Profile); err != nil {
			return err
		}
		if in.Active != nil {
			u.Active = *in.Active
		}
		if in.Locked != nil {
			u.Locked = *in.Locked
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("user updated by admin",
		slog.String("user_id", userID.String()),
		slog.String("admin_id", actor.ID.String()),
		slog.Bool("active", user.Active),
		slog.Bool("locked", user.Locked))
	return user, nil
}

func (s *Service) update(ctx context.Context, userID uuid.UUID, mutate func(*domain.User) error) (*domain.User, error) {
	var out *domain.User
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		u, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := mutate(u); err != nil {
			return err
		}
		u.UpdatedAt = time.Now().UTC()
		if err := repos.Users.Update(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ContactSupport validates a contact form submission and queues it for the
// support inbox. Replies go to the sender's address.
func (s *Service) ContactSupport(ctx context.Context, req SupportRequest) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	req.Name = strings.TrimSpace(req.Name)
	req.Email = domain.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Message = strings.TrimSpace(req.Message)

	switch {
	case req.Name == "":
		return domain.NewValidationError("name", "cannot be empty", domain.ErrEmptyUserName)
	case len(req.Name) > domain.MaxProfileFieldLength:
		return domain.NewValidationError("name", "is too long", domain.ErrProfileFieldTooLong)
	case len(req.Phone) > domain.MaxProfileFieldLength:
		return domain.NewValidationError("phone", "is too long", domain.ErrProfileFieldTooLong)
	case req.Message == "":
		return domain.NewValidationError("message", "cannot be empty", domain.ErrValidation)
	case len(req.Message) > MaxSupportMessageLength:
		return domain.NewValidationError("message", "is too long", domain.ErrValidation)
	}
	if err := domain.ValidateEmail(req.Email); err != nil {
		return domain.NewValidationError("email", err.Error(), err)
	}
	if s.supportInbox == "" {
		log.Error("support request dropped: no support inbox configured")
		return ErrNoSupportInbox
	}

	subject, body, err := notify.SupportRequest(req.Name, req.Email, req.Phone, req.Message)
	if err != nil {
		return fmt.Errorf("failed to render support request: %w", err)
	}
	s.mail.SendMessage(ctx, notify.Message{
		To:      s.supportInbox,
		ToName:  "Support",
		Subject: subject,
		HTML:    body,
		ReplyTo: req.Email,
	})
	log.Info("support request queued", slog.Int("message_bytes", len(req.Message)))
	return nil
}
