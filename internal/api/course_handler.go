package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/service/catalog"
)

// CourseHandler handles course, section and lecture requests.
type CourseHandler struct {
	catalog *catalog.Service
	logger  *slog.Logger
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(catalogService *catalog.Service, logger *slog.Logger) *CourseHandler {
	if catalogService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("catalog service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseHandler{catalog: catalogService, logger: logger.With(slog.String("component", "course_handler"))}
}

// ListCourses handles GET /api/courses. Filters: category, instructor_id,
// status, search, page, limit.
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	instructorID, err := queryUUID(r, "instructor_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	q := r.URL.Query()
	result, err := h.catalog.ListCourses(r.Context(), viewer(r), catalog.CourseQuery{
		Category:     q.Get("category"),
		InstructorID: instructorID,
		Status:       domain.CourseStatus(q.Get("status")),
		Search:       q.Get("search"),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list courses")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Categories handles GET /api/courses/categories.
func (h *CourseHandler) Categories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.catalog.Categories(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list categories")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, counts)
}

// GetCourse handles GET /api/courses/{id}.
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	course, err := h.catalog.GetCourse(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get course")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, course)
}

// CreateCourse handles POST /api/courses.
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CourseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	course, err := h.catalog.CreateCourse(r.Context(), actor, req.input())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create course")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("course created",
		slog.String("course_id", course.ID.String()),
		slog.String("slug", course.Slug))
	shared.RespondWithJSON(w, r, http.StatusCreated, course)
}

// UpdateCourse handles PUT /api/courses/{id}.
func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CourseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	course, err := h.catalog.UpdateCourse(r.Context(), actor, id, req.input())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update course")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, course)
}

// DeleteCourse handles DELETE /api/courses/{id}.
func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.catalog.DeleteCourse, "Failed to delete course")
}

// ToggleCourseDisabled handles PATCH /api/courses/{id}/disabled.
func (h *CourseHandler) ToggleCourseDisabled(w http.ResponseWriter, r *http.Request) {
	toggle(w, r, h.catalog.ToggleCourseDisabled, "Failed to update course")
}

// ToggleCourseApproval handles PATCH /api/courses/{id}/approval.
func (h *CourseHandler) ToggleCourseApproval(w http.ResponseWriter, r *http.Request) {
	toggle(w, r, h.catalog.ToggleCourseApproval, "Failed to update course")
}

// ListSections handles GET /api/courses/{id}/sections.
func (h *CourseHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	sections, err := h.catalog.ListSections(r.Context(), viewer(r), courseID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list sections")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sections)
}

// GetSection handles GET /api/sections/{id}.
func (h *CourseHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	section, err := h.catalog.GetSection(r.Context(), viewer(r), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get section")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, section)
}

// AddSection handles POST /api/courses/{id}/sections.
func (h *CourseHandler) AddSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	courseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req SectionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	section, err := h.catalog.AddSection(r.Context(), actor, courseID, req.Title)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add section")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, section)
}

// UpdateSection handles PUT /api/sections/{id}.
func (h *CourseHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req SectionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	section, err := h.catalog.UpdateSection(r.Context(), actor, id, req.Title)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update section")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, section)
}

// DeleteSection handles DELETE /api/sections/{id}.
func (h *CourseHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.catalog.DeleteSection, "Failed to delete section")
}

// ToggleSectionDisabled handles PATCH /api/sections/{id}/disabled.
func (h *CourseHandler) ToggleSectionDisabled(w http.ResponseWriter, r *http.Request) {
	toggle(w, r, h.catalog.ToggleSectionDisabled, "Failed to update section")
}

// ListLectures handles GET /api/sections/{id}/lectures.
func (h *CourseHandler) ListLectures(w http.ResponseWriter, r *http.Request) {
	sectionID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	lectures, err := h.catalog.ListLectures(r.Context(), viewer(r), sectionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list lectures")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lectures)
}

// ListCourseLectures handles GET /api/courses/{id}/lectures, the lectures
// of every visible section in order.
func (h *CourseHandler) ListCourseLectures(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	lectures, err := h.catalog.ListCourseLectures(r.Context(), viewer(r), courseID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list lectures")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lectures)
}

// AddLecture handles POST /api/sections/{id}/lectures.
func (h *CourseHandler) AddLecture(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	sectionID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req LectureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lecture, err := h.catalog.AddLecture(r.Context(), actor, sectionID, req.input())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add lecture")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, lecture)
}

// GetLecture handles GET /api/lectures/{id}. Non-preview lectures are only
// served to enrolled users, the course owner and admins.
func (h *CourseHandler) GetLecture(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	lecture, err := h.catalog.GetLecture(r.Context(), &actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get lecture")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lecture)
}

// UpdateLecture handles PUT /api/lectures/{id}.
func (h *CourseHandler) UpdateLecture(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req LectureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lecture, err := h.catalog.UpdateLecture(r.Context(), actor, id, req.input())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update lecture")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lecture)
}

// DeleteLecture handles DELETE /api/lectures/{id}.
func (h *CourseHandler) DeleteLecture(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.catalog.DeleteLecture, "Failed to delete lecture")
}

// ToggleLectureDisabled handles PATCH /api/lectures/{id}/disabled.
func (h *CourseHandler) ToggleLectureDisabled(w http.ResponseWriter, r *http.Request) {
	toggle(w, r, h.catalog.ToggleLectureDisabled, "Failed to update lecture")
}

type actorOp func(ctx context.Context, actor domain.Actor, id uuid.UUID) error

func (h *CourseHandler) remove(w http.ResponseWriter, r *http.Request, op actorOp, fallback string) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := op(r.Context(), actor, id); err != nil {
		HandleAPIError(w, r, err, fallback)
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("catalog entry deleted",
		slog.String("id", id.String()),
		slog.String("actor_id", actor.ID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// toggle runs an operation that flips a flag on the {id} resource and
// returns the updated entity.
func toggle[T any](
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor domain.Actor, id uuid.UUID) (T, error),
	fallback string,
) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	updated, err := op(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, fallback)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, updated)
}
