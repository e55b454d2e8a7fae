package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/service/review"
)

// ReviewHandler handles course review requests.
type ReviewHandler struct {
	reviews *review.Service
	logger  *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *review.Service, logger *slog.Logger) *ReviewHandler {
	if reviewService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("review service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{reviews: reviewService, logger: logger.With(slog.String("component", "review_handler"))}
}

// ListReviews handles GET /api/courses/{id}/reviews.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	result, err := h.reviews.ListReviews(r.Context(), courseID, page, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list reviews")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GetReview handles GET /api/reviews/{id}.
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	rev, err := h.reviews.GetReview(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get review")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rev)
}

// ListUserReviews handles GET /api/users/{id}/reviews.
func (h *ReviewHandler) ListUserReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	result, err := h.reviews.ListUserReviews(r.Context(), userID, page, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list reviews")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// AddReview handles POST /api/courses/{id}/reviews. The response carries the
// review and the course's updated rating.
func (h *ReviewHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	courseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := h.reviews.AddReview(r.Context(), actor.ID, courseID, req.Rating, req.Comment)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add review")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("review added",
		slog.String("review_id", outcome.Review.ID.String()),
		slog.String("course_id", courseID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, outcome)
}

// EditReview handles PUT /api/reviews/{id}. Only the author may edit.
func (h *ReviewHandler) EditReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req EditReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := h.reviews.EditReview(r.Context(), actor.ID, id, review.EditInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to edit review")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}

// DeleteReview handles DELETE /api/reviews/{id}. Authors and admins may
// delete; the response is the course's updated rating.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	rating, err := h.reviews.DeleteReview(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete review")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rating)
}
