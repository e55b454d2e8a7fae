package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/notify"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// Notifier creates in-app notifications.
type Notifier interface {
	NotifyUsers(ctx context.Context, recipients []uuid.UUID, typ domain.NotificationType, message string, actorID, courseID, webinarID *uuid.UUID)
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	// Instructor also files an instructor application.
	Instructor bool
}

// Service implements the account workflows.
type Service struct {
	uow      store.UnitOfWork
	tokens   JWTService
	hasher   PasswordHasher
	codes    CodeStore
	mail     notify.Sender
	notifier Notifier
	codeTTL  time.Duration
	logger   *slog.Logger
}

// NewService creates the authentication service.
func NewService(
	uow store.UnitOfWork,
	tokens JWTService,
	hasher PasswordHasher,
	codes CodeStore,
	mail notify.Sender,
	notifier Notifier,
	codeTTL time.Duration,
	logger *slog.Logger,
) *Service {
	if uow == nil || tokens == nil || hasher == nil || codes == nil || mail == nil || notifier == nil {
		panic("auth service dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &Service{
		uow:      uow,
		tokens:   tokens,
		hasher:   hasher,
		codes:    codes,
		mail:     mail,
		notifier: notifier,
		codeTTL:  codeTTL,
		logger:   logger.With(slog.String("component", "auth_service")),
	}
}

// Signup registers a user and e-mails a verification code. Signing up again
// with an unverified address replaces the pending account details and sends
// a new code.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	candidate, err := domain.NewUser(in.Name, in.Email, in.Password)
	if err != nil {
		return nil, domain.NewValidationError("", err.Error(), err)
	}
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	applied := false
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		existing, err := repos.Users.GetByEmail(ctx, candidate.Email)
		switch {
		case err == nil && existing.EmailVerified:
			return store.ErrEmailExists
		case err == nil:
			existing.Name = candidate.Name
			existing.HashedPassword = hashed
			existing.UpdatedAt = time.Now().UTC()
			user = existing
		case errors.Is(err, store.ErrUserNotFound):
			candidate.Password = ""
			candidate.HashedPassword = hashed
			user = candidate
		default:
			return err
		}

		if in.Instructor && user.InstructorStatus != domain.InstructorPending && !user.Roles.Has(domain.RoleInstructor) {
			user.InstructorStatus = domain.InstructorPending
			applied = true
		}
		if existing != nil {
			return repos.Users.Update(ctx, user)
		}
		return repos.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	log.Info("user signed up",
		slog.String("user_id", user.ID.String()),
		slog.Bool("instructor_applicant", applied))

	if applied {
		s.notifyAdmins(ctx, user, "applied to become an instructor")
	}
	if err := s.sendCode(ctx, user, PurposeVerifyEmail); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyEmail confirms the address with the e-mailed code.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.uow.Repositories().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	ok, err := s.codes.Consume(ctx, PurposeVerifyEmail, user.Email, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	return s.updateUser(ctx, user.ID, func(u *domain.User) error {
		u.EmailVerified = true
		return nil
	})
}

// Login checks the credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.uow.Repositories().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login rejected: password mismatch", slog.String("user_id", user.ID.String()))
		return nil, nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, nil, ErrEmailNotVerified
	}
	if !user.Active || user.Locked {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh exchanges a refresh token for a new pair carrying current roles.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.uow.Repositories().Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, ErrAccountDisabled
	}
	return s.issue(ctx, user)
}

func (s *Service) issue(ctx context.Context, user *domain.User) (*TokenPair, error) {
	access, err := s.tokens.GenerateToken(ctx, user.ID, user.Roles)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().UTC().Add(s.tokens.AccessTokenLifetime()),
	}, nil
}

// Me returns the user's profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.uow.Repositories().Users.GetByID(ctx, userID)
}

// ApplyInstructor files an instructor application for the user.
func (s *Service) ApplyInstructor(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user *domain.User
	err := s.updateUser(ctx, userID, func(u *domain.User) error {
		if u.Roles.Has(domain.RoleInstructor) {
			return ErrAlreadyInstructor
		}
		if u.InstructorStatus == domain.InstructorPending {
			return ErrApplicationPending
		}
		u.InstructorStatus = domain.InstructorPending
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyAdmins(ctx, user, "applied to become an instructor")
	return user, nil
}

// ApproveInstructor grants the instructor role to an applicant.
func (s *Service) ApproveInstructor(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error) {
	return s.decideInstructor(ctx, adminID, userID, true)
}

// CancelInstructor revokes the instructor role or rejects a pending application.
func (s *Service) CancelInstructor(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error) {
	return s.decideInstructor(ctx, adminID, userID, false)
}

func (s *Service) decideInstructor(ctx context.Context, adminID, userID uuid.UUID, approve bool) (*domain.User, error) {
	var user *domain.User
	err := s.updateUser(ctx, userID, func(u *domain.User) error {
		if approve {
			if u.Roles.Has(domain.RoleInstructor) {
				return ErrAlreadyInstructor
			}
			if err := u.Roles.Add(domain.RoleInstructor); err != nil {
				return err
			}
			u.InstructorStatus = domain.InstructorApproved
		} else {
			if !u.Roles.Has(domain.RoleInstructor) && u.InstructorStatus != domain.InstructorPending {
				return ErrNotApplicant
			}
			if u.Roles.Has(domain.RoleInstructor) {
				if err := u.Roles.Remove(domain.RoleInstructor); err != nil {
					return err
				}
			}
			u.InstructorStatus = domain.InstructorCancelled
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	typ, message := domain.NotifyInstructorApproved, "Your instructor application was approved"
	if !approve {
		typ, message = domain.NotifyInstructorCancelled, "Your instructor access was cancelled"
	}
	s.notifier.NotifyUsers(ctx, []uuid.UUID{user.ID}, typ, message, &adminID, nil, nil)

	if subject, body, err := notify.InstructorDecision(user.Name, approve); err == nil {
		s.mail.Send(ctx, user.Email, subject, body)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("instructor decision recorded",
		slog.String("user_id", user.ID.String()),
		slog.String("admin_id", adminID.String()),
		slog.Bool("approved", approve))
	return user, nil
}

// ForgotPassword e-mails a reset code. Unknown addresses are ignored so the
// endpoint does not reveal which e-mails are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.uow.Repositories().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Debug("password reset for unknown e-mail")
			return nil
		}
		return err
	}
	return s.sendCode(ctx, user, PurposeResetPassword)
}

// ResetPassword sets a new password after checking the e-mailed code.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return domain.NewValidationError("password", err.Error(), err)
	}
	user, err := s.uow.Repositories().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	ok, err := s.codes.Consume(ctx, PurposeResetPassword, user.Email, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if err := domain.ValidatePassword(next); err != nil {
		return domain.NewValidationError("new_password", err.Error(), err)
	}
	user, err := s.uow.Repositories().Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.HashedPassword, current); err != nil {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, userID, next)
}

func (s *Service) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.updateUser(ctx, userID, func(u *domain.User) error {
		u.HashedPassword = hashed
		return nil
	})
}

// updateUser loads, mutates and saves a user in one transaction. The user
// passed to mutate stays valid after a successful commit.
func (s *Service) updateUser(ctx context.Context, userID uuid.UUID, mutate func(*domain.User) error) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		u, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := mutate(u); err != nil {
			return err
		}
		u.UpdatedAt = time.Now().UTC()
		return repos.Users.Update(ctx, u)
	})
}

func (s *Service) sendCode(ctx context.Context, user *domain.User, purpose string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.codes.Save(ctx, purpose, user.Email, code, s.codeTTL); err != nil {
		return fmt.Errorf("failed to store %s code: %w", purpose, err)
	}

	var subject, body string
	if purpose == PurposeResetPassword {
		subject, body, err = notify.PasswordResetCode(user.Name, code, s.codeTTL)
	} else {
		subject, body, err = notify.VerificationCode(user.Name, code, s.codeTTL)
	}
	if err != nil {
		return fmt.Errorf("failed to render %s e-mail: %w", purpose, err)
	}
	s.mail.Send(ctx, user.Email, subject, body)
	return nil
}

func (s *Service) notifyAdmins(ctx context.Context, applicant *domain.User, action string) {
	admins, err := s.uow.Repositories().Users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load admins",
			slog.String("error", err.Error()))
		return
	}
	ids := make([]uuid.UUID, len(admins))
	for i, a := range admins {
		ids[i] = a.ID
	}
	actor := applicant.ID
	s.notifier.NotifyUsers(ctx, ids, domain.NotifyInstructorApplication,
		fmt.Sprintf("%s %s", applicant.Name, action), &actor, nil, nil)
}
