package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/service/account"
)

// UserHandler handles the user directory, profile and support requests.
type UserHandler struct {
	accounts *account.Service
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accountService *account.Service, logger *slog.Logger) *UserHandler {
	if accountService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("account service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{accounts: accountService, logger: logger.With(slog.String("component", "user_handler"))}
}

// ListUsers handles GET /api/admin/users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q, ok := userQuery(w, r)
	if !ok {
		return
	}
	result, err := h.accounts.ListUsers(r.Context(), q)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list users")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ListInstructors handles GET /api/admin/instructors.
func (h *UserHandler) ListInstructors(w http.ResponseWriter, r *http.Request) {
	q, ok := userQuery(w, r)
	if !ok {
		return
	}
	result, err := h.accounts.ListInstructors(r.Context(), q)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list instructors")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

func userQuery(w http.ResponseWriter, r *http.Request) (account.UserQuery, bool) {
	page, limit, err := pageParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return account.UserQuery{}, false
	}
	return account.UserQuery{Search: r.URL.Query().Get("search"), Page: page, Limit: limit}, true
}

// GetUser handles GET /api/users/{id}. Only the account owner and admins
// see an account.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.accounts.GetUser(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/me.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := h.accounts.UpdateProfile(r.Context(), actor.ID, req.profile())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update profile")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// UpdateUser handles PATCH /api/admin/users/{id}.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AdminUpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateUser(r.Context(), actor, id, account.AdminUpdate{
		Profile: req.profile(),
		Active:  req.Active,
		Locked:  req.Locked,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// ContactSupport handles POST /api/support.
func (h *UserHandler) ContactSupport(w http.ResponseWriter, r *http.Request) {
	var req ContactSupportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	err := h.accounts.ContactSupport(r.Context(), account.SupportRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to contact support")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("support request accepted")
	shared.RespondWithJSON(w, r, http.StatusAccepted,
		MessageResponse{Message: "Your message has been sent to support"})
}
