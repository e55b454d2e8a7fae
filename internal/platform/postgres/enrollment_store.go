package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// PostgresEnrollmentStore implements store.EnrollmentStore over the
// user_enrolled_courses and course_enrolled_students tables.
type PostgresEnrollmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEnrollmentStore creates an enrollment store over db.
func NewPostgresEnrollmentStore(db store.DBTX, logger *slog.Logger) *PostgresEnrollmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEnrollmentStore{db: db, logger: logger.With(slog.String("component", "enrollment_store"))}
}

var _ store.EnrollmentStore = (*PostgresEnrollmentStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresEnrollmentStore) WithTx(tx *sql.Tx) *PostgresEnrollmentStore {
	return &PostgresEnrollmentStore{db: tx, logger: s.logger}
}

// AddCourseToUser implements store.EnrollmentStore.AddCourseToUser
func (s *PostgresEnrollmentStore) AddCourseToUser(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	return s.exec(ctx, "add course to user",
		`INSERT INTO user_enrolled_courses (user_id, course_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, courseID)
}

// AddStudentToCourse implements store.EnrollmentStore.AddStudentToCourse
func (s *PostgresEnrollmentStore) AddStudentToCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	return s.exec(ctx, "add student to course",
		`INSERT INTO course_enrolled_students (course_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		courseID, userID)
}

// RemoveCourseFromUser implements store.EnrollmentStore.RemoveCourseFromUser
func (s *PostgresEnrollmentStore) RemoveCourseFromUser(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	return s.exec(ctx, "remove course from user",
		`DELETE FROM user_enrolled_courses WHERE user_id = $1 AND course_id = $2`,
		userID, courseID)
}

// RemoveStudentFromCourse implements store.EnrollmentStore.RemoveStudentFromCourse
func (s *PostgresEnrollmentStore) RemoveStudentFromCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	return s.exec(ctx, "remove student from course",
		`DELETE FROM course_enrolled_students WHERE course_id = $1 AND user_id = $2`,
		courseID, userID)
}

func (s *PostgresEnrollmentStore) exec(ctx context.Context, op, query string, a, b uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, a, b)
	if err != nil {
		log.Error("enrollment write failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return false, MapError(err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	log.Debug("enrollment write",
		slog.String("operation", op),
		slog.Bool("changed", n > 0))
	return n > 0, nil
}

// IsUserEnrolled implements store.EnrollmentStore.IsUserEnrolled
func (s *PostgresEnrollmentStore) IsUserEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_enrolled_courses WHERE user_id = $1 AND course_id = $2)`,
		userID, courseID)
}

// IsStudentOfCourse implements store.EnrollmentStore.IsStudentOfCourse
func (s *PostgresEnrollmentStore) IsStudentOfCourse(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM course_enrolled_students WHERE course_id = $1 AND user_id = $2)`,
		courseID, userID)
}

func (s *PostgresEnrollmentStore) exists(ctx context.Context, query string, a, b uuid.UUID) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, a, b).Scan(&ok); err != nil {
		return false, MapError(err)
	}
	return ok, nil
}

// ListCourseIDsForUser implements store.EnrollmentStore.ListCourseIDsForUser
func (s *PostgresEnrollmentStore) ListCourseIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT course_id FROM user_enrolled_courses WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	ids, err := scanUUIDs(log, rows)
	if err != nil {
		return nil, MapError(err)
	}
	return ids, nil
}

// ListStudentIDsForCourse implements store.EnrollmentStore.ListStudentIDsForCourse
func (s *PostgresEnrollmentStore) ListStudentIDsForCourse(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM course_enrolled_students WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, MapError(err)
	}
	ids, err := scanUUIDs(log, rows)
	if err != nil {
		return nil, MapError(err)
	}
	return ids, nil
}
