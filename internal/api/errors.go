package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/payment"
	"github.com/phrazzld/pantognostis-api/internal/service/account"
	"github.com/phrazzld/pantognostis-api/internal/service/auth"
	"github.com/phrazzld/pantognostis-api/internal/service/enrollment"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes. More
// specific errors are checked before the categories they wrap.
func MapErrorToStatusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusOK

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, auth.ErrEmailNotVerified),
		errors.Is(err, auth.ErrAccountDisabled):
		return http.StatusForbidden

	// Bad request errors
	case domain.IsValidationError(err),
		errors.As(err, &verrs),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest

	case errors.Is(err, enrollment.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired

	// Not found errors
	case errors.Is(err, enrollment.ErrPaymentNotFound),
		errors.Is(err, payment.ErrIntentNotFound),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, domain.ErrConflict),
		store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.Is(err, payment.ErrGateway):
		return http.StatusBadGateway

	case store.IsTransientError(err),
		errors.Is(err, account.ErrNoSupportInbox),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Messages of
// validation errors are authored by the domain and safe to show; every
// other message is fixed here so driver and gateway details never leak.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var (
		verr *domain.ValidationError
		verrs validator.ValidationErrors
	)
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, auth.ErrEmailNotVerified):
		return "Email address is not verified"
	case errors.Is(err, auth.ErrAccountDisabled):
		return "Account is disabled"
	case errors.Is(err, auth.ErrInvalidCode):
		return "Invalid or expired code"

	case errors.As(err, &verrs):
		return SanitizeValidationError(verrs)
	case errors.As(err, &verr):
		if verr.Field == "" {
			return "Invalid request: " + verr.Message
		}
		return fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message)
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidFormat):
		return "Invalid request"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, enrollment.ErrPaymentNotConfirmed):
		return "Payment has not been confirmed"
	case errors.Is(err, enrollment.ErrPaymentNotFound),
		errors.Is(err, payment.ErrIntentNotFound):
		return "Payment not found"
	case errors.Is(err, enrollment.ErrPaymentMismatch):
		return "Payment does not match the enrollment"
	case errors.Is(err, enrollment.ErrAlreadyEnrolled):
		return "Already enrolled in this course"
	case errors.Is(err, enrollment.ErrCourseUnavailable):
		return "Course is not available for purchase"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrCourseNotFound):
		return "Course not found"
	case errors.Is(err, store.ErrSectionNotFound):
		return "Section not found"
	case errors.Is(err, store.ErrLectureNotFound):
		return "Lecture not found"
	case errors.Is(err, store.ErrReviewNotFound):
		return "Review not found"
	case errors.Is(err, store.ErrTransactionNotFound):
		return "Transaction not found"
	case errors.Is(err, store.ErrNotificationNotFound):
		return "Notification not found"
	case errors.Is(err, store.ErrWebinarNotFound):
		return "Webinar not found"
	case store.IsNotFoundError(err):
		return "Not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrReviewExists):
		return "You have already reviewed this course"
	case errors.Is(err, domain.ErrConflict):
		return detail(err, domain.ErrConflict, "Request conflicts with the current state")
	case store.IsDuplicateError(err):
		return "Already exists"

	case errors.Is(err, domain.ErrUnauthorized):
		return detail(err, domain.ErrUnauthorized, "You are not allowed to do this")

	case errors.Is(err, payment.ErrGateway):
		return "Payment provider error"
	case errors.Is(err, account.ErrNoSupportInbox):
		return "Support is not available right now"
	case store.IsTransientError(err),
		errors.Is(err, context.DeadlineExceeded):
		return "Service temporarily unavailable, please retry"

	default:
		return "An unexpected error occurred"
	}
}

// detail returns the text services append to a category error, as in
// "conflict with current state: user is already an instructor". Errors
// wrapped any further fall back to the fixed message.
func detail(err, category error, fallback string) string {
	if msg, ok := strings.CutPrefix(err.Error(), category.Error()+": "); ok && msg != "" {
		return msg
	}
	return fallback
}

// SanitizeValidationError turns validator errors into a message naming the
// first offending field, e.g. "Invalid email: invalid email format".
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "too short or too small"
	case "max", "lte":
		return "too long or too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid ID"
	case "url":
		return "invalid URL"
	case "numeric":
		return "must be a number"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the mapped status and safe message for err. A
// non-empty fallback replaces the generic message of unexpected 500s.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}
	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
