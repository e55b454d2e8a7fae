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

const notificationColumns = `id, recipient_id, actor_id, course_id, webinar_id, type, message, read, created_at`

// PostgresNotificationStore implements store.NotificationStore.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a notification store over db.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationStore{db: db, logger: logger.With(slog.String("component", "notification_store"))}
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresNotificationStore) WithTx(tx *sql.Tx) *PostgresNotificationStore {
	return &PostgresNotificationStore{db: tx, logger: s.logger}
}

// Create implements store.NotificationStore.Create
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.RecipientID, nullUUID(n.ActorID), nullUUID(n.CourseID), nullUUID(n.WebinarID),
		n.Type, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		log.Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("recipient_id", n.RecipientID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.NotificationStore.GetByID
func (s *PostgresNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	n, err := scanNotification(s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		return nil, MapError(err)
	}
	return n, nil
}

// ListForRecipient implements store.NotificationStore.ListForRecipient
func (s *PostgresNotificationStore) ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*domain.Notification, int, error) {
	return s.list(ctx,
		`recipient_id = $1 AND (NOT $2 OR NOT read)`,
		[]any{recipientID, unreadOnly}, limit, offset)
}

// ListAll implements store.NotificationStore.ListAll
func (s *PostgresNotificationStore) ListAll(ctx context.Context, limit, offset int) ([]*domain.Notification, int, error) {
	return s.list(ctx, `TRUE`, nil, limit, offset)
}

func (s *PostgresNotificationStore) list(ctx context.Context, where string, args []any, limit, offset int) ([]*domain.Notification, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	limit, offset = normalizePage(limit, offset)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, args...).Scan(&total); err != nil {
		log.Error("failed to count notifications", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}

	n := len(args)
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` + where +
		` ORDER BY created_at DESC, id LIMIT $` + itoa(n+1) + ` OFFSET $` + itoa(n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		log.Error("failed to list notifications", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}
	defer closeRows(log, rows)

	out := []*domain.Notification{}
	for rows.Next() {
		item, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}
	return out, total, nil
}

// MarkRead implements store.NotificationStore.MarkRead
func (s *PostgresNotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrNotificationNotFound); err != nil {
		return err
	}
	return nil
}

// MarkAllRead implements store.NotificationStore.MarkAllRead
func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read`, recipientID)
	if err != nil {
		log.Error("failed to mark notifications read",
			slog.String("error", err.Error()),
			slog.String("recipient_id", recipientID.String()))
		return 0, MapError(err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	var actor, course, webinar uuid.NullUUID
	var typ string
	if err := row.Scan(&n.ID, &n.RecipientID, &actor, &course, &webinar, &typ, &n.Message, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.ActorID = uuidPtr(actor)
	n.CourseID = uuidPtr(course)
	n.WebinarID = uuidPtr(webinar)
	n.Type = domain.NotificationType(typ)
	return &n, nil
}
