package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

const sectionColumns = `id, course_id, title, position, disabled, deleted, created_at, updated_at`

const lectureColumns = `id, course_id, section_id, title, description, video_url, duration_seconds,
	position, preview, disabled, deleted, created_at, updated_at`

// PostgresSectionStore implements store.SectionStore.
type PostgresSectionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSectionStore creates a section store over db.
func NewPostgresSectionStore(db store.DBTX, logger *slog.Logger) *PostgresSectionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSectionStore{db: db, logger: logger.With(slog.String("component", "section_store"))}
}

var _ store.SectionStore = (*PostgresSectionStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresSectionStore) WithTx(tx *sql.Tx) *PostgresSectionStore {
	return &PostgresSectionStore{db: tx, logger: s.logger}
}

// Create implements store.SectionStore.Create
func (s *PostgresSectionStore) Create(ctx context.Context, sec *domain.Section) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sections (`+sectionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sec.ID, sec.CourseID, sec.Title, sec.Position, sec.Disabled, sec.Deleted, sec.CreatedAt, sec.UpdatedAt)
	if err != nil {
		log.Error("failed to create section",
			slog.String("error", err.Error()),
			slog.String("course_id", sec.CourseID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.SectionStore.GetByID
func (s *PostgresSectionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Section, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sec, err := scanSection(s.db.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM sections WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSectionNotFound
		}
		log.Error("failed to get section",
			slog.String("error", err.Error()),
			slog.String("section_id", id.String()))
		return nil, MapError(err)
	}
	return sec, nil
}

// Update implements store.SectionStore.Update
func (s *PostgresSectionStore) Update(ctx context.Context, sec *domain.Section) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sec.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE sections SET title = $1, position = $2, disabled = $3, deleted = $4, updated_at = $5 WHERE id = $6`,
		sec.Title, sec.Position, sec.Disabled, sec.Deleted, sec.UpdatedAt, sec.ID)
	if err != nil {
		log.Error("failed to update section",
			slog.String("error", err.Error()),
			slog.String("section_id", sec.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrSectionNotFound); err != nil {
		return err
	}
	return nil
}

// ListByCourse implements store.SectionStore.ListByCourse
func (s *PostgresSectionStore) ListByCourse(ctx context.Context, courseID uuid.UUID, includeDisabled bool) ([]*domain.Section, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sectionColumns+`
		FROM sections
		WHERE course_id = $1 AND NOT deleted AND ($2 OR NOT disabled)
		ORDER BY position, created_at`,
		courseID, includeDisabled)
	if err != nil {
		log.Error("failed to list sections",
			slog.String("error", err.Error()),
			slog.String("course_id", courseID.String()))
		return nil, MapError(err)
	}
	defer closeRows(log, rows)

	sections := []*domain.Section{}
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return sections, nil
}

// NextPosition implements store.SectionStore.NextPosition
func (s *PostgresSectionStore) NextPosition(ctx context.Context, courseID uuid.UUID) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM sections WHERE course_id = $1`, courseID).Scan(&next)
	if err != nil {
		return 0, MapError(err)
	}
	return next, nil
}

func scanSection(row rowScanner) (*domain.Section, error) {
	var sec domain.Section
	if err := row.Scan(&sec.ID, &sec.CourseID, &sec.Title, &sec.Position, &sec.Disabled, &sec.Deleted,
		&sec.CreatedAt, &sec.UpdatedAt); err != nil {
		return nil, err
	}
	return &sec, nil
}

// PostgresLectureStore implements store.LectureStore.
type PostgresLectureStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLectureStore creates a lecture store over db.
func NewPostgresLectureStore(db store.DBTX, logger *slog.Logger) *PostgresLectureStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLectureStore{db: db, logger: logger.With(slog.String("component", "lecture_store"))}
}

var _ store.LectureStore = (*PostgresLectureStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresLectureStore) WithTx(tx *sql.Tx) *PostgresLectureStore {
	return &PostgresLectureStore{db: tx, logger: s.logger}
}

// Create implements store.LectureStore.Create
func (s *PostgresLectureStore) Create(ctx context.Context, l *domain.Lecture) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := l.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lectures (`+lectureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.ID, l.CourseID, l.SectionID, l.Title, l.Description, l.VideoURL, l.DurationSeconds,
		l.Position, l.Preview, l.Disabled, l.Deleted, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		log.Error("failed to create lecture",
			slog.String("error", err.Error()),
			slog.String("section_id", l.SectionID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.LectureStore.GetByID
func (s *PostgresLectureStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lecture, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	l, err := scanLecture(s.db.QueryRowContext(ctx, `SELECT `+lectureColumns+` FROM lectures WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrLectureNotFound
		}
		log.Error("failed to get lecture",
			slog.String("error", err.Error()),
			slog.String("lecture_id", id.String()))
		return nil, MapError(err)
	}
	return l, nil
}

// Update implements store.LectureStore.Update
func (s *PostgresLectureStore) Update(ctx context.Context, l *domain.Lecture) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := l.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE lectures
		SET title = $1, description = $2, video_url = $3, duration_seconds = $4, position = $5,
			preview = $6, disabled = $7, deleted = $8, updated_at = $9
		WHERE id = $10`,
		l.Title, l.Description, l.VideoURL, l.DurationSeconds, l.Position,
		l.Preview, l.Disabled, l.Deleted, l.UpdatedAt, l.ID)
	if err != nil {
		log.Error("failed to update lecture",
			slog.String("error", err.Error()),
			slog.String("lecture_id", l.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrLectureNotFound); err != nil {
		return err
	}
	return nil
}

// ListBySection implements store.LectureStore.ListBySection
func (s *PostgresLectureStore) ListBySection(ctx context.Context, sectionID uuid.UUID, includeDisabled bool) ([]*domain.Lecture, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lectureColumns+`
		FROM lectures
		WHERE section_id = $1 AND NOT deleted AND ($2 OR NOT disabled)
		ORDER BY position, created_at`,
		sectionID, includeDisabled)
	if err != nil {
		log.Error("failed to list lectures",
			slog.String("error", err.Error()),
			slog.String("section_id", sectionID.String()))
		return nil, MapError(err)
	}
	defer closeRows(log, rows)

	lectures := []*domain.Lecture{}
	for rows.Next() {
		l, err := scanLecture(rows)
		if err != nil {
			return nil, err
		}
		lectures = append(lectures, l)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return lectures, nil
}

// CountLiveBySection implements store.LectureStore.CountLiveBySection
func (s *PostgresLectureStore) CountLiveBySection(ctx context.Context, sectionID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lectures WHERE section_id = $1 AND NOT deleted`, sectionID).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// NextPosition implements store.LectureStore.NextPosition
func (s *PostgresLectureStore) NextPosition(ctx context.Context, sectionID uuid.UUID) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM lectures WHERE section_id = $1`, sectionID).Scan(&next)
	if err != nil {
		return 0, MapError(err)
	}
	return next, nil
}

func scanLecture(row rowScanner) (*domain.Lecture, error) {
	var l domain.Lecture
	if err := row.Scan(&l.ID, &l.CourseID, &l.SectionID, &l.Title, &l.Description, &l.VideoURL,
		&l.DurationSeconds, &l.Position, &l.Preview, &l.Disabled, &l.Deleted, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
