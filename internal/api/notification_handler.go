package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/service/notification"
)

// Connector upgrades a request into a realtime connection for a user and
// blocks until it closes. *realtime.Hub implements it.
type Connector interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

// NotificationHandler handles in-app notification requests and the realtime
// websocket endpoint.
type NotificationHandler struct {
	notifications *notification.Service
	hub           Connector
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(svc *notification.Service, hub Connector, logger *slog.Logger) *NotificationHandler {
	if svc == nil || hub == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("notification handler dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		notifications: svc,
		hub:           hub,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// List handles GET /api/notifications?unread=true&page=&limit=.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	result, err := h.notifications.ListForUser(r.Context(), actor.ID, unreadOnly, page, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ListAll handles GET /api/admin/notifications.
func (h *NotificationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	result, err := h.notifications.ListAll(r.Context(), page, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// MarkRead handles PATCH /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(r.Context(), actor.ID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to update notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles PATCH /api/notifications/read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update notifications")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MarkAllReadResponse{Updated: n})
}

// Connect handles GET /api/ws?token=. Browsers cannot set headers on a
// websocket handshake, so the access token travels in the query string and
// is checked by the QueryToken middleware.
func (h *NotificationHandler) Connect(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	// The upgrader has already answered the request when Serve fails.
	if err := h.hub.Serve(w, r, actor.ID); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("websocket session ended with error",
			slog.String("error", err.Error()),
			slog.String("user_id", actor.ID.String()))
	}
}
