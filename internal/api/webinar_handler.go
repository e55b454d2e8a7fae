package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/service/webinar"
)

// WebinarHandler handles webinar requests.
type WebinarHandler struct {
	webinars *webinar.Service
	logger   *slog.Logger
}

// NewWebinarHandler creates a new WebinarHandler.
func NewWebinarHandler(svc *webinar.Service, logger *slog.Logger) *WebinarHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("webinar service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebinarHandler{webinars: svc, logger: logger.With(slog.String("component", "webinar_handler"))}
}

// ListUpcoming handles GET /api/webinars.
func (h *WebinarHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	items, err := h.webinars.ListUpcoming(r.Context(), page, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list webinars")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, items)
}

// Get handles GET /api/webinars/{id}.
func (h *WebinarHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.webinars.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get webinar")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, item)
}

// Create handles POST /api/webinars.
func (h *WebinarHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req WebinarRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	item, err := h.webinars.Create(r.Context(), actor, req.input())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create webinar")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, item)
}

// Update handles PUT /api/webinars/{id}.
func (h *WebinarHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req WebinarRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	item, err := h.webinars.Update(r.Context(), actor, id, req.input())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update webinar")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, item)
}

// Delete handles DELETE /api/webinars/{id}.
func (h *WebinarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.webinars.Delete(r.Context(), actor, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete webinar")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register handles POST /api/webinars/{id}/register. Registering twice
// succeeds with already_registered set.
func (h *WebinarHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	added, err := h.webinars.Register(r.Context(), actor.ID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to register for webinar")
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	shared.RespondWithJSON(w, r, status, RegistrationResponse{Registered: true, AlreadyRegistered: !added})
}
