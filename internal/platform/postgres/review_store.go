package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

const reviewColumns = `id, course_id, user_id, rating, comment, deleted, created_at, updated_at`

// PostgresReviewStore implements store.ReviewStore.
type PostgresReviewStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStore creates a review store over db.
func NewPostgresReviewStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewStore{db: db, logger: logger.With(slog.String("component", "review_store"))}
}

var _ store.ReviewStore = (*PostgresReviewStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresReviewStore) WithTx(tx *sql.Tx) *PostgresReviewStore {
	return &PostgresReviewStore{db: tx, logger: s.logger}
}

// Create implements store.ReviewStore.Create
func (s *PostgresReviewStore) Create(ctx context.Context, r *domain.Review) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := r.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (`+reviewColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.CourseID, r.UserID, r.Rating, r.Comment, r.Deleted, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("live review already exists",
				slog.String("user_id", r.UserID.String()),
				slog.String("course_id", r.CourseID.String()))
			return store.ErrReviewExists
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: review references a missing user or course", store.ErrInvalidEntity)
		}
		log.Error("failed to create review",
			slog.String("error", err.Error()),
			slog.String("review_id", r.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ReviewStore.GetByID
func (s *PostgresReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	return s.getOne(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
}

// GetLive implements store.ReviewStore.GetLive
func (s *PostgresReviewStore) GetLive(ctx context.Context, userID, courseID uuid.UUID) (*domain.Review, error) {
	return s.getOne(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 AND course_id = $2 AND NOT deleted`,
		userID, courseID)
}

func (s *PostgresReviewStore) getOne(ctx context.Context, query string, args ...any) (*domain.Review, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	r, err := scanReview(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewNotFound
		}
		log.Error("failed to get review", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return r, nil
}

// Update implements store.ReviewStore.Update
func (s *PostgresReviewStore) Update(ctx context.Context, r *domain.Review) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := r.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET rating = $1, comment = $2, deleted = $3, updated_at = $4 WHERE id = $5`,
		r.Rating, r.Comment, r.Deleted, r.UpdatedAt, r.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrReviewExists
		}
		log.Error("failed to update review",
			slog.String("error", err.Error()),
			slog.String("review_id", r.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrReviewNotFound); err != nil {
		return err
	}
	return nil
}

// ListByCourse implements store.ReviewStore.ListByCourse
func (s *PostgresReviewStore) ListByCourse(ctx context.Context, courseID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	return s.listLive(ctx, "course_id", courseID, limit, offset)
}

// ListByUser implements store.ReviewStore.ListByUser
func (s *PostgresReviewStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	return s.listLive(ctx, "user_id", userID, limit, offset)
}

// listLive pages the live reviews whose column equals id. column is always
// a constant chosen by the caller.
func (s *PostgresReviewStore) listLive(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	limit, offset = normalizePage(limit, offset)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE `+column+` = $1 AND NOT deleted`, id).Scan(&total); err != nil {
		return nil, 0, MapError(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE `+column+` = $1 AND NOT deleted
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		id, limit, offset)
	if err != nil {
		log.Error("failed to list reviews",
			slog.String("error", err.Error()),
			slog.String(column, id.String()))
		return nil, 0, MapError(err)
	}
	defer closeRows(log, rows)

	reviews := []*domain.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}
	return reviews, total, nil
}

func scanReview(row rowScanner) (*domain.Review, error) {
	var r domain.Review
	if err := row.Scan(&r.ID, &r.CourseID, &r.UserID, &r.Rating, &r.Comment, &r.Deleted,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
