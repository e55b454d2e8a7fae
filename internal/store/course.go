package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// CourseFilter narrows a course listing. Zero values do not filter.
type CourseFilter struct {
	Category     string
	InstructorID uuid.UUID
	Status       domain.CourseStatus
	// Search matches the title case-insensitively.
	Search string
	// IncludeDisabled also returns disabled courses. Deleted courses are never listed.
	IncludeDisabled bool
	Limit           int
	Offset          int
}

// CategoryCount is the number of listed courses in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CourseStore defines the interface for course persistence.
type CourseStore interface {
	// Create saves a new course. Returns ErrSlugExists if the slug is taken.
	Create(ctx context.Context, course *domain.Course) error

	// GetByID retrieves a course, including soft-deleted ones.
	// Returns ErrCourseNotFound if the course does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)

	// GetByIDForUpdate is GetByID that also locks the course row until the
	// surrounding transaction ends. Outside a transaction it behaves like GetByID.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Course, error)

	// Update replaces the mutable course fields, including flags and counters.
	// Returns ErrCourseNotFound if the course does not exist.
	Update(ctx context.Context, course *domain.Course) error

	// UpdateRating stores a new review aggregate for the course.
	UpdateRating(ctx context.Context, id uuid.UUID, rating domain.RatingAggregate) error

	// AdjustContentCounts adds the deltas to the section and lecture counters.
	AdjustContentCounts(ctx context.Context, id uuid.UUID, sectionDelta, lectureDelta int) error

	// List returns the courses matching filter, newest first, and the total match count.
	List(ctx context.Context, filter CourseFilter) ([]*domain.Course, int, error)

	// ListIDsByInstructor returns the ids of every course the instructor uploaded.
	ListIDsByInstructor(ctx context.Context, instructorID uuid.UUID) ([]uuid.UUID, error)

	// CategoryCounts aggregates approved, visible courses by category.
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)
}

// SectionStore defines the interface for section persistence.
type SectionStore interface {
	Create(ctx context.Context, section *domain.Section) error
	// GetByID returns ErrSectionNotFound when the section does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Section, error)
	Update(ctx context.Context, section *domain.Section) error
	// ListByCourse returns live sections ordered by position.
	ListByCourse(ctx context.Context, courseID uuid.UUID, includeDisabled bool) ([]*domain.Section, error)
	// NextPosition returns the position for a section appended to the course.
	NextPosition(ctx context.Context, courseID uuid.UUID) (int, error)
}

// LectureStore defines the interface for lecture persistence.
type LectureStore interface {
	Create(ctx context.Context, lecture *domain.Lecture) error
	// GetByID returns ErrLectureNotFound when the lecture does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lecture, error)
	Update(ctx context.Context, lecture *domain.Lecture) error
	// ListBySection returns live lectures ordered by position.
	ListBySection(ctx context.Context, sectionID uuid.UUID, includeDisabled bool) ([]*domain.Lecture, error)
	// CountLiveBySection counts lectures of the section that are not deleted.
	CountLiveBySection(ctx context.Context, sectionID uuid.UUID) (int, error)
	// NextPosition returns the position for a lecture appended to the section.
	NextPosition(ctx context.Context, sectionID uuid.UUID) (int, error)
}
