package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type enrollmentStore struct{ base }

var _ store.EnrollmentStore = (*enrollmentStore)(nil)

func addEdge(set map[uuid.UUID][]edge, owner, member uuid.UUID) bool {
	if hasEdge(set[owner], member) {
		return false
	}
	set[owner] = append(set[owner], edge{id: member, at: time.Now().UTC()})
	return true
}

func dropEdge(set map[uuid.UUID][]edge, owner, member uuid.UUID) bool {
	edges, removed := removeEdge(set[owner], member)
	set[owner] = edges
	return removed
}

func (s *enrollmentStore) AddCourseToUser(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var added bool
	err := s.write(OpEnrollmentAdd, func(d *data) error {
		added = addEdge(d.userCourses, userID, courseID)
		return nil
	})
	return added, err
}

func (s *enrollmentStore) AddStudentToCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	var added bool
	err := s.write(OpEnrollmentAdd, func(d *data) error {
		added = addEdge(d.courseStudents, courseID, userID)
		return nil
	})
	return added, err
}

func (s *enrollmentStore) RemoveCourseFromUser(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var removed bool
	err := s.read(func(d *data) error {
		removed = dropEdge(d.userCourses, userID, courseID)
		return nil
	})
	return removed, err
}

func (s *enrollmentStore) RemoveStudentFromCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	var removed bool
	err := s.read(func(d *data) error {
		removed = dropEdge(d.courseStudents, courseID, userID)
		return nil
	})
	return removed, err
}

func (s *enrollmentStore) IsUserEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var ok bool
	err := s.read(func(d *data) error {
		ok = hasEdge(d.userCourses[userID], courseID)
		return nil
	})
	return ok, err
}

func (s *enrollmentStore) IsStudentOfCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := s.read(func(d *data) error {
		ok = hasEdge(d.courseStudents[courseID], userID)
		return nil
	})
	return ok, err
}

func (s *enrollmentStore) ListCourseIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.read(func(d *data) error {
		ids = edgeIDs(d.userCourses[userID])
		return nil
	})
	return ids, err
}

func (s *enrollmentStore) ListStudentIDsForCourse(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.read(func(d *data) error {
		ids = edgeIDs(d.courseStudents[courseID])
		return nil
	})
	return ids, err
}
