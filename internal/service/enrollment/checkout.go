package enrollment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/payment"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// checkout is a validated purchase of one course by one user.
type checkout struct {
	user     *domain.User
	course   *domain.Course
	amount   int64
	metadata map[string]string
}

func (s *Service) prepareCheckout(ctx context.Context, userID, courseID uuid.UUID) (*checkout, error) {
	repos := s.uow.Repositories()

	user, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	course, err := repos.Courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPurchasable() {
		return nil, ErrCourseUnavailable
	}
	if course.IsOwnedBy(userID) {
		return nil, ErrOwnCourse
	}
	enrolled, err := repos.Enrollments.IsUserEnrolled(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	amount := domain.MajorToMinor(course.Price)
	if amount <= 0 {
		return nil, domain.NewValidationError("course_id", "free courses cannot be checked out", domain.ErrValidation)
	}
	return &checkout{
		user:   user,
		course: course,
		amount: amount,
		metadata: map[string]string{
			MetadataUserID:   userID.String(),
			MetadataCourseID: courseID.String(),
		},
	}, nil
}

// CreateIntent opens a payment intent for the course's price. The client
// confirms it with the gateway and then calls ConfirmEnrollment.
func (s *Service) CreateIntent(ctx context.Context, userID, courseID uuid.UUID) (*payment.Intent, error) {
	co, err := s.prepareCheckout(ctx, userID, courseID)
	if err != nil {
		return nil, s.wrapStoreError("create intent", err)
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.CreateIntentParams{
		AmountMinor: co.amount,
		Currency:    s.currency,
		CustomerID:  co.user.PaymentCustomerID,
		Metadata:    co.metadata,
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("payment intent created",
		slog.String("payment_reference", intent.ID),
		slog.String("user_id", userID.String()),
		slog.String("course_id", courseID.String()),
		slog.Int64("amount_minor", co.amount))
	return intent, nil
}

// GetIntent returns the gateway's view of a payment.
func (s *Service) GetIntent(ctx context.Context, reference string) (*payment.Intent, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.NewValidationError("payment_reference", "cannot be empty", domain.ErrEmptyPaymentReference)
	}
	return s.retrieveIntent(ctx, reference)
}

// ListIntents returns the most recent payment intents.
func (s *Service) ListIntents(ctx context.Context, limit int) ([]*payment.Intent, error) {
	return s.gateway.ListIntents(ctx, limit)
}

// SaveCard attaches a card token to the user's gateway customer, creating
// the customer on first use.
func (s *Service) SaveCard(ctx context.Context, userID uuid.UUID, token string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError("token", "cannot be empty", domain.ErrValidation)
	}
	user, err := s.uow.Repositories().Users.GetByID(ctx, userID)
	if err != nil {
		return s.wrapStoreError("save card", err)
	}

	customerID := user.PaymentCustomerID
	if customerID == "" {
		customer, err := s.gateway.CreateCustomer(ctx, user.Email)
		if err != nil {
			return err
		}
		customerID = customer.ID
		err = s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
			u, err := repos.Users.GetByID(ctx, userID)
			if err != nil {
				return err
			}
			u.PaymentCustomerID = customerID
			u.UpdatedAt = time.Now().UTC()
			return repos.Users.Update(ctx, u)
		})
		if err != nil {
			return s.wrapStoreError("save card", err)
		}
		log.Info("payment customer created",
			slog.String("user_id", userID.String()))
	}

	if err := s.gateway.AttachPaymentSource(ctx, customerID, token); err != nil {
		return err
	}
	log.Info("card saved", slog.String("user_id", userID.String()))
	return nil
}

// ConfirmWithSavedCard charges the user's saved card for the course and
// confirms the enrollment.
func (s *Service) ConfirmWithSavedCard(ctx context.Context, userID, courseID uuid.UUID) (*Result, error) {
	co, err := s.prepareCheckout(ctx, userID, courseID)
	if err != nil {
		return nil, s.wrapStoreError("confirm saved card", err)
	}
	if co.user.PaymentCustomerID == "" {
		return nil, ErrNoSavedCard
	}

	intent, err := s.gateway.ConfirmWithSavedCustomer(ctx, co.user.PaymentCustomerID, co.amount, s.currency, co.metadata)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return s.ConfirmEnrollment(ctx, intent.ID, userID, courseID)
}
