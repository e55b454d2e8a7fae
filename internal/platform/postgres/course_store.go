package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

const courseColumns = `id, instructor_id, title, slug, subtitle, description, category, sub_category,
	language, level, price, platform_fee, duration, status, disabled, deleted,
	section_count, lecture_count, rating_sum, review_count, created_at, updated_at`

// PostgresCourseStore implements store.CourseStore.
type PostgresCourseStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCourseStore creates a course store over db.
func NewPostgresCourseStore(db store.DBTX, logger *slog.Logger) *PostgresCourseStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCourseStore{
		db:     db,
		logger: logger.With(slog.String("component", "course_store")),
	}
}

var _ store.CourseStore = (*PostgresCourseStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresCourseStore) WithTx(tx *sql.Tx) *PostgresCourseStore {
	return &PostgresCourseStore{db: tx, logger: s.logger}
}

// Create implements store.CourseStore.Create
func (s *PostgresCourseStore) Create(ctx context.Context, c *domain.Course) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		log.Warn("course validation failed during create",
			slog.String("error", err.Error()),
			slog.String("course_id", c.ID.String()))
		return err
	}

	query := `
		INSERT INTO courses (` + courseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.InstructorID, c.Title, c.Slug, c.Subtitle, c.Description, c.Category, c.SubCategory,
		c.Language, c.Level, c.Price, c.PlatformFee, c.Duration, c.Status, c.Disabled, c.Deleted,
		c.SectionCount, c.LectureCount, c.Rating.Sum, c.Rating.Count, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrSlugExists
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: instructor with ID %s not found", store.ErrInvalidEntity, c.InstructorID)
		}
		log.Error("failed to create course",
			slog.String("error", err.Error()),
			slog.String("course_id", c.ID.String()))
		return MapError(err)
	}

	log.Info("course created successfully",
		slog.String("course_id", c.ID.String()),
		slog.String("instructor_id", c.InstructorID.String()))
	return nil
}

// GetByID implements store.CourseStore.GetByID
func (s *PostgresCourseStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return s.get(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
}

// GetByIDForUpdate implements store.CourseStore.GetByIDForUpdate
func (s *PostgresCourseStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return s.get(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1 FOR UPDATE`, id)
}

func (s *PostgresCourseStore) get(ctx context.Context, query string, id uuid.UUID) (*domain.Course, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	c, err := scanCourse(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("course not found", slog.String("course_id", id.String()))
			return nil, store.ErrCourseNotFound
		}
		log.Error("failed to get course",
			slog.String("error", err.Error()),
			slog.String("course_id", id.String()))
		return nil, MapError(err)
	}
	return c, nil
}

// Update implements store.CourseStore.Update
func (s *PostgresCourseStore) Update(ctx context.Context, c *domain.Course) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE courses
		SET title = $1, slug = $2, subtitle = $3, description = $4, category = $5, sub_category = $6,
			language = $7, level = $8, price = $9, platform_fee = $10, duration = $11, status = $12,
			disabled = $13, deleted = $14, section_count = $15, lecture_count = $16,
			rating_sum = $17, review_count = $18, updated_at = $19
		WHERE id = $20
	`
	result, err := s.db.ExecContext(ctx, query,
		c.Title, c.Slug, c.Subtitle, c.Description, c.Category, c.SubCategory,
		c.Language, c.Level, c.Price, c.PlatformFee, c.Duration, c.Status,
		c.Disabled, c.Deleted, c.SectionCount, c.LectureCount,
		c.Rating.Sum, c.Rating.Count, c.UpdatedAt, c.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrSlugExists
		}
		log.Error("failed to update course",
			slog.String("error", err.Error()),
			slog.String("course_id", c.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrCourseNotFound); err != nil {
		return err
	}
	return nil
}

// UpdateRating implements store.CourseStore.UpdateRating
func (s *PostgresCourseStore) UpdateRating(ctx context.Context, id uuid.UUID, rating domain.RatingAggregate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE courses SET rating_sum = $1, review_count = $2, updated_at = NOW() WHERE id = $3`,
		rating.Sum, rating.Count, id)
	if err != nil {
		log.Error("failed to update course rating",
			slog.String("error", err.Error()),
			slog.String("course_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrCourseNotFound); err != nil {
		return err
	}

	log.Debug("course rating updated",
		slog.String("course_id", id.String()),
		slog.Int("rating_sum", rating.Sum),
		slog.Int("review_count", rating.Count))
	return nil
}

// AdjustContentCounts implements store.CourseStore.AdjustContentCounts
func (s *PostgresCourseStore) AdjustContentCounts(ctx context.Context, id uuid.UUID, sectionDelta, lectureDelta int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE courses
		SET section_count = GREATEST(section_count + $1, 0),
			lecture_count = GREATEST(lecture_count + $2, 0),
			updated_at = NOW()
		WHERE id = $3`,
		sectionDelta, lectureDelta, id)
	if err != nil {
		log.Error("failed to adjust course counters",
			slog.String("error", err.Error()),
			slog.String("course_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrCourseNotFound); err != nil {
		return err
	}
	return nil
}

// List implements store.CourseStore.List
func (s *PostgresCourseStore) List(ctx context.Context, filter store.CourseFilter) ([]*domain.Course, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	limit, offset := normalizePage(filter.Limit, filter.Offset)

	conds := []string{"NOT deleted"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !filter.IncludeDisabled {
		conds = append(conds, "NOT disabled")
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.InstructorID != uuid.Nil {
		add("instructor_id = $%d", filter.InstructorID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		add("title ILIKE $%d", "%"+escapeLike(term)+"%")
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses WHERE `+where, args...).Scan(&total); err != nil {
		log.Error("failed to count courses", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM courses WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		courseColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		log.Error("failed to list courses", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}
	defer closeRows(log, rows)

	courses := []*domain.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			log.Error("failed to scan course row", slog.String("error", err.Error()))
			return nil, 0, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}

	log.Debug("listed courses", slog.Int("count", len(courses)), slog.Int("total", total))
	return courses, total, nil
}

// ListIDsByInstructor implements store.CourseStore.ListIDsByInstructor
func (s *PostgresCourseStore) ListIDsByInstructor(ctx context.Context, instructorID uuid.UUID) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM courses WHERE instructor_id = $1 ORDER BY created_at`, instructorID)
	if err != nil {
		log.Error("failed to list instructor course ids",
			slog.String("error", err.Error()),
			slog.String("instructor_id", instructorID.String()))
		return nil, MapError(err)
	}
	ids, err := scanUUIDs(log, rows)
	if err != nil {
		return nil, MapError(err)
	}
	return ids, nil
}

// CategoryCounts implements store.CourseStore.CategoryCounts
func (s *PostgresCourseStore) CategoryCounts(ctx context.Context) ([]store.CategoryCount, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM courses
		WHERE status = 'approved' AND NOT disabled AND NOT deleted AND category <> ''
		GROUP BY category
		ORDER BY category`)
	if err != nil {
		log.Error("failed to aggregate categories", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(log, rows)

	counts := []store.CategoryCount{}
	for rows.Next() {
		var cc store.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return counts, nil
}

func scanCourse(row rowScanner) (*domain.Course, error) {
	var c domain.Course
	var level, status string
	err := row.Scan(
		&c.ID, &c.InstructorID, &c.Title, &c.Slug, &c.Subtitle, &c.Description, &c.Category, &c.SubCategory,
		&c.Language, &level, &c.Price, &c.PlatformFee, &c.Duration, &status, &c.Disabled, &c.Deleted,
		&c.SectionCount, &c.LectureCount, &c.Rating.Sum, &c.Rating.Count, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Level = domain.CourseLevel(level)
	c.Status = domain.CourseStatus(status)
	return &c, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
