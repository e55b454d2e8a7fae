package store

import (
	"context"

	"github.com/google/uuid"
)

// EnrollmentStore maintains the two mirrored enrollment sets:
// the courses a user is enrolled in and the students of a course.
// Every add is idempotent and reports whether the set changed.
type EnrollmentStore interface {
	AddCourseToUser(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	AddStudentToCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error)
	RemoveCourseFromUser(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	RemoveStudentFromCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error)

	// IsUserEnrolled checks the user's side of the relation.
	IsUserEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	// IsStudentOfCourse checks the course's side of the relation.
	IsStudentOfCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error)

	ListCourseIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListStudentIDsForCourse(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}
