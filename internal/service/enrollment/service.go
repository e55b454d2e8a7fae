// Package enrollment reconciles gateway payments with course access: it
// confirms payments into enrollments and ledger entries, runs checkout and
// answers ledger queries.
package enrollment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/events"
	"github.com/phrazzld/pantognostis-api/internal/payment"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// Metadata keys attached to every intent created by checkout.
const (
	MetadataUserID   = "user_id"
	MetadataCourseID = "course_id"
)

// Result describes the outcome of ConfirmEnrollment.
type Result struct {
	Transaction *domain.Transaction `json:"transaction"`
	// AlreadyRecorded is true when the payment reference was confirmed before.
	AlreadyRecorded bool `json:"already_recorded"`
	// NewlyEnrolled is true when either enrollment set changed.
	NewlyEnrolled bool `json:"newly_enrolled"`
}

// Service implements the enrollment orchestrator and checkout.
type Service struct {
	uow      store.UnitOfWork
	gateway  payment.Gateway
	emitter  events.EventEmitter
	currency string
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used to timestamp ledger entries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the enrollment service. An empty currency selects
// domain.DefaultCurrency.
func NewService(
	uow store.UnitOfWork,
	gateway payment.Gateway,
	emitter events.EventEmitter,
	currency string,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if uow == nil {
		panic("unit of work cannot be nil")
	}
	if gateway == nil {
		panic("payment gateway cannot be nil")
	}
	if emitter == nil {
		panic("event emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	s := &Service{
		uow:      uow,
		gateway:  gateway,
		emitter:  emitter,
		currency: currency,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "enrollment_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfirmEnrollment turns a succeeded gateway payment into course access.
//
// The payment must carry the user and course in its metadata, and a payment
// not yet on the ledger must cover the course price in the configured
// currency. Otherwise ErrPaymentMismatch is returned.
//
// Both enrollment sets and the ledger entry are written in one transaction.
// A payment reference is billed exactly once: confirming it again returns the
// existing entry with AlreadyRecorded set. The enrollment.confirmed event is
// emitted after commit, and only when a new entry was written.
func (s *Service) ConfirmEnrollment(ctx context.Context, reference string, userID, courseID uuid.UUID) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("payment_reference", reference),
		slog.String("user_id", userID.String()),
		slog.String("course_id", courseID.String()))

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.NewValidationError("payment_reference", "cannot be empty", domain.ErrEmptyPaymentReference)
	}
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "cannot be empty", domain.ErrInvalidID)
	}
	if courseID == uuid.Nil {
		return nil, domain.NewValidationError("course_id", "cannot be empty", domain.ErrInvalidID)
	}

	intent, err := s.retrieveIntent(ctx, reference)
	if err != nil {
		log.Warn("payment lookup failed", slog.String("error", err.Error()))
		return nil, err
	}
	if !intent.Succeeded() {
		log.Info("payment not confirmed", slog.String("status", string(intent.Status)))
		return nil, ErrPaymentNotConfirmed
	}
	if !metadataMatches(intent.Metadata, MetadataUserID, userID) ||
		!metadataMatches(intent.Metadata, MetadataCourseID, courseID) {
		log.Warn("payment metadata does not match the enrollment")
		return nil, ErrPaymentMismatch
	}

	var (
		result  Result
		user    *domain.User
		course  *domain.Course
		written bool
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		result = Result{}
		written = false

		var err error
		if user, err = repos.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		if course, err = repos.Courses.GetByID(ctx, courseID); err != nil {
			return err
		}

		existing, err := repos.Ledger.GetByPaymentReference(ctx, reference)
		switch {
		case err == nil:
			if existing.UserID != userID || existing.CourseID != courseID {
				return ErrPaymentMismatch
			}
		case errors.Is(err, store.ErrTransactionNotFound):
			existing = nil
			if !s.coversPrice(intent, course) {
				log.Warn("payment does not cover the course price",
					slog.Int64("amount_minor", intent.AmountMinor),
					slog.String("currency", intent.Currency))
				return ErrPaymentMismatch
			}
		default:
			return err
		}

		addedToUser, err := repos.Enrollments.AddCourseToUser(ctx, userID, courseID)
		if err != nil {
			return err
		}
		addedToCourse, err := repos.Enrollments.AddStudentToCourse(ctx, courseID, userID)
		if err != nil {
			return err
		}
		result.NewlyEnrolled = addedToUser || addedToCourse

		if existing != nil {
			result.Transaction, result.AlreadyRecorded = existing, true
			return nil
		}

		entry, err := domain.NewPaidTransaction(userID, courseID, reference, intent.AmountMinor, intent.Currency, s.now())
		if err != nil {
			return domain.NewValidationError("transaction", err.Error(), err)
		}
		created, err := repos.Ledger.Create(ctx, entry)
		if err != nil {
			return err
		}
		if !created {
			// Recorded by a concurrent confirmation since the lookup above.
			if entry, err = repos.Ledger.GetByPaymentReference(ctx, reference); err != nil {
				return err
			}
			result.AlreadyRecorded = true
		}
		result.Transaction = entry
		written = created
		return nil
	})
	if err != nil {
		return nil, s.wrapStoreError("confirm", err)
	}

	log.Info("enrollment confirmed",
		slog.String("transaction_id", result.Transaction.ID.String()),
		slog.Bool("already_recorded", result.AlreadyRecorded),
		slog.Bool("newly_enrolled", result.NewlyEnrolled))

	if written {
		s.emitConfirmed(ctx, result.Transaction, user, course)
	}
	return &result, nil
}

func (s *Service) emitConfirmed(ctx context.Context, tx *domain.Transaction, user *domain.User, course *domain.Course) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(events.EnrollmentConfirmed, events.EnrollmentConfirmedPayload{
		TransactionID: tx.ID,
		UserID:        user.ID,
		UserName:      user.Name,
		UserEmail:     user.Email,
		CourseID:      course.ID,
		CourseTitle:   course.Title,
		InstructorID:  course.InstructorID,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
	})
	if err != nil {
		log.Error("failed to build enrollment event", slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit enrollment event",
			slog.String("error", err.Error()),
			slog.String("transaction_id", tx.ID.String()))
	}
}

// retrieveIntent maps gateway lookup failures onto the enrollment errors.
func (s *Service) retrieveIntent(ctx context.Context, reference string) (*payment.Intent, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, reference)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return intent, nil
}

// wrapStoreError passes expected failures through and tags the rest.
func (s *Service) wrapStoreError(op string, err error) error {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, payment.ErrGateway),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return NewServiceError(op, "store operation failed", err)
}

// coversPrice reports whether intent paid at least the course price in the
// service currency.
func (s *Service) coversPrice(intent *payment.Intent, course *domain.Course) bool {
	if !strings.EqualFold(strings.TrimSpace(intent.Currency), s.currency) {
		return false
	}
	return intent.AmountMinor >= domain.MajorToMinor(course.Price)
}

func metadataMatches(metadata map[string]string, key string, id uuid.UUID) bool {
	parsed, err := uuid.Parse(metadata[key])
	return err == nil && parsed == id
}
