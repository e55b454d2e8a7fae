package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

const webinarSelect = `
	SELECT w.id, w.creator_id, w.title, w.description, w.starts_at, w.host_name, w.host_title,
		w.link, w.promo_code, w.reminder_sent, w.created_at, w.updated_at,
		(SELECT COUNT(*) FROM webinar_watchers ww WHERE ww.webinar_id = w.id)
	FROM webinars w`

// PostgresWebinarStore implements store.WebinarStore.
type PostgresWebinarStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresWebinarStore creates a webinar store over db.
func NewPostgresWebinarStore(db store.DBTX, logger *slog.Logger) *PostgresWebinarStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresWebinarStore{db: db, logger: logger.With(slog.String("component", "webinar_store"))}
}

var _ store.WebinarStore = (*PostgresWebinarStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresWebinarStore) WithTx(tx *sql.Tx) *PostgresWebinarStore {
	return &PostgresWebinarStore{db: tx, logger: s.logger}
}

// Create implements store.WebinarStore.Create
func (s *PostgresWebinarStore) Create(ctx context.Context, w *domain.Webinar) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := w.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webinars (id, creator_id, title, description, starts_at, host_name, host_title,
			link, promo_code, reminder_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		w.ID, w.CreatorID, w.Title, w.Description, w.StartsAt, w.HostName, w.HostTitle,
		w.Link, w.PromoCode, w.ReminderSent, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		log.Error("failed to create webinar",
			slog.String("error", err.Error()),
			slog.String("webinar_id", w.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.WebinarStore.GetByID
func (s *PostgresWebinarStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Webinar, error) {
	w, err := scanWebinar(s.db.QueryRowContext(ctx, webinarSelect+` WHERE w.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWebinarNotFound
		}
		return nil, MapError(err)
	}
	return w, nil
}

// Update implements store.WebinarStore.Update
func (s *PostgresWebinarStore) Update(ctx context.Context, w *domain.Webinar) error {
	if err := w.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE webinars
		SET title = $1, description = $2, starts_at = $3, host_name = $4, host_title = $5,
			link = $6, promo_code = $7, reminder_sent = $8, updated_at = $9
		WHERE id = $10`,
		w.Title, w.Description, w.StartsAt, w.HostName, w.HostTitle,
		w.Link, w.PromoCode, w.ReminderSent, w.UpdatedAt, w.ID)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrWebinarNotFound); err != nil {
		return err
	}
	return nil
}

// Delete implements store.WebinarStore.Delete
func (s *PostgresWebinarStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM webinars WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrWebinarNotFound); err != nil {
		return err
	}
	return nil
}

// ListUpcoming implements store.WebinarStore.ListUpcoming
func (s *PostgresWebinarStore) ListUpcoming(ctx context.Context, from time.Time, limit, offset int) ([]*domain.Webinar, error) {
	limit, offset = normalizePage(limit, offset)
	return s.query(ctx, webinarSelect+` WHERE w.starts_at >= $1 ORDER BY w.starts_at, w.id LIMIT $2 OFFSET $3`,
		from, limit, offset)
}

// ListDueForReminder implements store.WebinarStore.ListDueForReminder
func (s *PostgresWebinarStore) ListDueForReminder(ctx context.Context, from, to time.Time) ([]*domain.Webinar, error) {
	return s.query(ctx, webinarSelect+`
		WHERE NOT w.reminder_sent AND w.starts_at >= $1 AND w.starts_at < $2
		ORDER BY w.starts_at`,
		from, to)
}

func (s *PostgresWebinarStore) query(ctx context.Context, query string, args ...any) ([]*domain.Webinar, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query webinars", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(log, rows)

	out := []*domain.Webinar{}
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// MarkReminderSent implements store.WebinarStore.MarkReminderSent
func (s *PostgresWebinarStore) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE webinars SET reminder_sent = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrWebinarNotFound); err != nil {
		return err
	}
	return nil
}

// AddWatcher implements store.WebinarStore.AddWatcher
func (s *PostgresWebinarStore) AddWatcher(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO webinar_watchers (webinar_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		webinarID, userID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return false, store.ErrWebinarNotFound
		}
		return false, MapError(err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListWatcherIDs implements store.WebinarStore.ListWatcherIDs
func (s *PostgresWebinarStore) ListWatcherIDs(ctx context.Context, webinarID uuid.UUID) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM webinar_watchers WHERE webinar_id = $1 ORDER BY created_at`, webinarID)
	if err != nil {
		return nil, MapError(err)
	}
	ids, err := scanUUIDs(log, rows)
	if err != nil {
		return nil, MapError(err)
	}
	return ids, nil
}

func scanWebinar(row rowScanner) (*domain.Webinar, error) {
	var w domain.Webinar
	if err := row.Scan(&w.ID, &w.CreatorID, &w.Title, &w.Description, &w.StartsAt, &w.HostName, &w.HostTitle,
		&w.Link, &w.PromoCode, &w.ReminderSent, &w.CreatedAt, &w.UpdatedAt, &w.WatcherCount); err != nil {
		return nil, err
	}
	return &w, nil
}
