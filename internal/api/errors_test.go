package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/payment"
	"github.com/phrazzld/pantognostis-api/internal/service/account"
	"github.com/phrazzld/pantognostis-api/internal/service/auth"
	"github.com/phrazzld/pantognostis-api/internal/service/enrollment"
	"github.com/phrazzld/pantognostis-api/internal/service/review"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"authentication error", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"wrapped authentication error", fmt.Errorf("failed to authenticate: %w", auth.ErrExpiredToken), http.StatusUnauthorized},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unverified account", auth.ErrEmailNotVerified, http.StatusForbidden},
		{"validation error", domain.NewValidationError("title", "cannot be empty", nil), http.StatusBadRequest},
		{"invalid code", auth.ErrInvalidCode, http.StatusBadRequest},
		{"no saved card", enrollment.ErrNoSavedCard, http.StatusBadRequest},
		{"unconfirmed payment", enrollment.ErrPaymentNotConfirmed, http.StatusPaymentRequired},
		{"unknown payment", enrollment.ErrPaymentNotFound, http.StatusNotFound},
		{"wrapped store not found", enrollment.NewServiceError("confirm", "lookup", store.ErrCourseNotFound), http.StatusNotFound},
		{"ownership", review.ErrNotAuthor, http.StatusForbidden},
		{"own course", enrollment.ErrOwnCourse, http.StatusForbidden},
		{"duplicate review", store.ErrReviewExists, http.StatusConflict},
		{"payment mismatch", enrollment.ErrPaymentMismatch, http.StatusConflict},
		{"duplicate e-mail", store.ErrEmailExists, http.StatusConflict},
		{"gateway failure", payment.NewGatewayError(500, "api_error", "boom", nil), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"admin only", account.ErrAdminOnly, http.StatusForbidden},
		{"self lockout", account.ErrSelfLockout, http.StatusBadRequest},
		{"no support inbox", account.ErrNoSupportInbox, http.StatusServiceUnavailable},
		{"unknown error", errors.New("unknown error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"validation error with field", domain.NewValidationError("title", "cannot be empty", nil), "Invalid title: cannot be empty"},
		{"conflict detail", enrollment.ErrAlreadyEnrolled, "Already enrolled in this course"},
		{"service conflict detail", auth.ErrAlreadyInstructor, "user is already an instructor"},
		{"authorization detail", enrollment.ErrOwnCourse, "instructors cannot buy their own course"},
		{"not found", store.ErrReviewNotFound, "Review not found"},
		{"admin detail", account.ErrAdminOnly, "admin role required"},
		{"support unavailable", account.ErrNoSupportInbox, "Support is not available right now"},
		{"gateway details stay hidden", payment.NewGatewayError(500, "api_error", "card_declined for sk_live_x", nil), "Payment provider error"},
		{"driver details stay hidden", errors.New("pq: relation \"users\" does not exist"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(&ReviewRequest{Rating: 9})
	require.Error(t, err)

	status := MapErrorToStatusCode(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid rating: too long or too large", GetSafeErrorMessage(err))
}

func TestHandleAPIError(t *testing.T) {
	t.Run("fallback replaces generic 500 message", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(shared.WithTraceID(r.Context(), "trace-123"))
		w := httptest.NewRecorder()

		HandleAPIError(w, r, errors.New("db exploded"), "Failed to list courses")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body shared.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Failed to list courses", body.Error)
		assert.Equal(t, "trace-123", body.TraceID)
	})

	t.Run("fallback does not hide mapped errors", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		HandleAPIError(w, r, store.ErrCourseNotFound, "Failed to get course")

		assert.Equal(t, http.StatusNotFound, w.Code)
		var body shared.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Course not found", body.Error)
	})
}
