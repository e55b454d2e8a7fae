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

const transactionColumns = `id, user_id, course_id, payment_reference, amount, currency, status, created_at`

// PostgresLedgerStore implements store.LedgerStore over the transactions table.
// The unique index on payment_reference makes Create idempotent per payment.
type PostgresLedgerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLedgerStore creates a ledger store over db.
func NewPostgresLedgerStore(db store.DBTX, logger *slog.Logger) *PostgresLedgerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLedgerStore{db: db, logger: logger.With(slog.String("component", "ledger_store"))}
}

var _ store.LedgerStore = (*PostgresLedgerStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresLedgerStore) WithTx(tx *sql.Tx) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: tx, logger: s.logger}
}

// Create implements store.LedgerStore.Create
func (s *PostgresLedgerStore) Create(ctx context.Context, t *domain.Transaction) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := t.Validate(); err != nil {
		log.Warn("ledger entry validation failed",
			slog.String("error", err.Error()),
			slog.String("payment_reference", t.PaymentReference))
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_reference) DO NOTHING`,
		t.ID, t.UserID, t.CourseID, t.PaymentReference, t.Amount, t.Currency, t.Status, t.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return false, fmt.Errorf("%w: ledger entry references a missing user or course", store.ErrInvalidEntity)
		}
		log.Error("failed to insert ledger entry",
			slog.String("error", err.Error()),
			slog.String("payment_reference", t.PaymentReference))
		return false, MapError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	if n == 0 {
		log.Info("ledger entry already recorded",
			slog.String("payment_reference", t.PaymentReference))
		return false, nil
	}

	log.Info("ledger entry recorded",
		slog.String("transaction_id", t.ID.String()),
		slog.String("payment_reference", t.PaymentReference),
		slog.String("amount", t.Amount.StringFixed(2)))
	return true, nil
}

// GetByID implements store.LedgerStore.GetByID
func (s *PostgresLedgerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.getOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

// GetByPaymentReference implements store.LedgerStore.GetByPaymentReference
func (s *PostgresLedgerStore) GetByPaymentReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.getOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE payment_reference = $1`, reference)
}

func (s *PostgresLedgerStore) getOne(ctx context.Context, query string, arg any) (*domain.Transaction, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTransactionNotFound
		}
		log.Error("failed to get ledger entry", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return t, nil
}

// Find implements store.LedgerStore.Find
func (s *PostgresLedgerStore) Find(ctx context.Context, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if filter.CourseIDs != nil && len(filter.CourseIDs) == 0 {
		return []*domain.Transaction{}, nil
	}

	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.CourseIDs != nil {
		add("course_id = ANY($%d::uuid[])", uuidStrings(filter.CourseIDs))
	}
	if filter.UserID != uuid.Nil {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at < $%d", filter.To)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		limit, offset := normalizePage(filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query ledger", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(log, rows)

	entries := []*domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			log.Error("failed to scan ledger row", slog.String("error", err.Error()))
			return nil, err
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("ledger query complete", slog.Int("count", len(entries)))
	return entries, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var status string
	if err := row.Scan(&t.ID, &t.UserID, &t.CourseID, &t.PaymentReference, &t.Amount, &t.Currency,
		&status, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TransactionStatus(status)
	return &t, nil
}
