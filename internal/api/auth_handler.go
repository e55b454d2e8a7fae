package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/service/auth"
)

// AuthHandler handles account and authentication requests.
type AuthHandler struct {
	auth   *auth.Service
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	if authService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("auth service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{auth: authService, logger: logger.With(slog.String("component", "auth_handler"))}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, false)
}

// SignupInstructor handles POST /api/auth/signup-instructor. The account is
// created with a pending instructor application.
func (h *AuthHandler) SignupInstructor(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, true)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request, instructor bool) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.auth.Signup(r.Context(), auth.SignupInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Instructor: instructor,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create account")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("account created",
		slog.String("user_id", user.ID.String()),
		slog.Bool("instructor_applicant", instructor))
	shared.RespondWithJSON(w, r, http.StatusCreated, user)
}

// VerifyEmail handles POST /api/auth/verify-email.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.auth.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		HandleAPIError(w, r, err, "Failed to verify e-mail")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "E-mail verified"})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to log in")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	})
}

// RefreshToken handles POST /api/auth/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, pair)
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is the
// same whether or not the address is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		HandleAPIError(w, r, err, "Failed to send reset code")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK,
		MessageResponse{Message: "If the address is registered, a reset code has been sent"})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Email, req.Code, req.Password); err != nil {
		HandleAPIError(w, r, err, "Failed to reset password")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Password updated"})
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.auth.ChangePassword(r.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		HandleAPIError(w, r, err, "Failed to change password")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Password updated"})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	user, err := h.auth.Me(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load account")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// ApplyInstructor handles POST /api/instructor/apply.
func (h *AuthHandler) ApplyInstructor(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	user, err := h.auth.ApplyInstructor(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit application")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// ApproveInstructor handles POST /api/admin/instructors/{id}/approve.
func (h *AuthHandler) ApproveInstructor(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.auth.ApproveInstructor)
}

// CancelInstructor handles POST /api/admin/instructors/{id}/cancel.
func (h *AuthHandler) CancelInstructor(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.auth.CancelInstructor)
}

func (h *AuthHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	decision func(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error),
) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	user, err := decision(r.Context(), actor.ID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record decision")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}
