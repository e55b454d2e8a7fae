package enrollment

import (
	"errors"
	"fmt"

	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// Expected failures of the enrollment workflows. Gateway failures other than
// an unknown reference are returned as *payment.GatewayError, and missing
// users or courses as store.ErrUserNotFound and store.ErrCourseNotFound.
var (
	// ErrPaymentNotFound indicates the gateway cannot resolve the payment reference.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentNotConfirmed indicates the payment exists but has not succeeded.
	ErrPaymentNotConfirmed = errors.New("payment has not been confirmed")

	// ErrPaymentMismatch indicates the payment was made for another user or
	// course, or does not cover the course price.
	ErrPaymentMismatch = fmt.Errorf("%w: payment does not match the enrollment", domain.ErrConflict)

	// ErrAlreadyEnrolled is returned when checking out a course the user owns.
	ErrAlreadyEnrolled = fmt.Errorf("%w: user is already enrolled in the course", domain.ErrConflict)

	// ErrCourseUnavailable is returned for courses that cannot be bought.
	ErrCourseUnavailable = fmt.Errorf("%w: course is not available for purchase", domain.ErrConflict)

	// ErrOwnCourse is returned when instructors try to buy their own course.
	ErrOwnCourse = fmt.Errorf("%w: instructors cannot buy their own course", domain.ErrUnauthorized)

	// ErrNoSavedCard is returned when charging a user who never saved a card.
	ErrNoSavedCard = domain.NewValidationError("card", "no saved card on file", nil)
)

// ServiceError wraps unexpected failures with the operation that hit them.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("enrollment %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("enrollment %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
