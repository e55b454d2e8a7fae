package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// DefaultTxAttempts bounds how many times a conflicting transaction is run.
const DefaultTxAttempts = 3

// UnitOfWork implements store.UnitOfWork on a *sql.DB. Transactions that
// fail with a serialization conflict or deadlock are re-run from the start.
type UnitOfWork struct {
	db          *sql.DB
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
	txOptions   *sql.TxOptions

	users         *PostgresUserStore
	courses       *PostgresCourseStore
	sections      *PostgresSectionStore
	lectures      *PostgresLectureStore
	reviews       *PostgresReviewStore
	ledger        *PostgresLedgerStore
	enrollments   *PostgresEnrollmentStore
	notifications *PostgresNotificationStore
	webinars      *PostgresWebinarStore
}

var _ store.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates the PostgreSQL unit of work and its stores.
func NewUnitOfWork(db *sql.DB, logger *slog.Logger) *UnitOfWork {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitOfWork{
		db:            db,
		logger:        logger.With(slog.String("component", "unit_of_work")),
		maxAttempts:   DefaultTxAttempts,
		backoff:       20 * time.Millisecond,
		txOptions:     &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		users:         NewPostgresUserStore(db, logger),
		courses:       NewPostgresCourseStore(db, logger),
		sections:      NewPostgresSectionStore(db, logger),
		lectures:      NewPostgresLectureStore(db, logger),
		reviews:       NewPostgresReviewStore(db, logger),
		ledger:        NewPostgresLedgerStore(db, logger),
		enrollments:   NewPostgresEnrollmentStore(db, logger),
		notifications: NewPostgresNotificationStore(db, logger),
		webinars:      NewPostgresWebinarStore(db, logger),
	}
}

// Repositories implements store.UnitOfWork.Repositories
func (u *UnitOfWork) Repositories() store.Repositories {
	return store.Repositories{
		Users:         u.users,
		Courses:       u.courses,
		Sections:      u.sections,
		Lectures:      u.lectures,
		Reviews:       u.reviews,
		Ledger:        u.ledger,
		Enrollments:   u.enrollments,
		Notifications: u.notifications,
		Webinars:      u.webinars,
	}
}

func (u *UnitOfWork) bind(tx *sql.Tx) store.Repositories {
	return store.Repositories{
		Users:         u.users.WithTx(tx),
		Courses:       u.courses.WithTx(tx),
		Sections:      u.sections.WithTx(tx),
		Lectures:      u.lectures.WithTx(tx),
		Reviews:       u.reviews.WithTx(tx),
		Ledger:        u.ledger.WithTx(tx),
		Enrollments:   u.enrollments.WithTx(tx),
		Notifications: u.notifications.WithTx(tx),
		Webinars:      u.webinars.WithTx(tx),
	}
}

// WithinTx implements store.UnitOfWork.WithinTx
func (u *UnitOfWork) WithinTx(ctx context.Context, fn store.RepoFn) error {
	log := logger.FromContextOrDefault(ctx, u.logger)

	for attempt := 1; ; attempt++ {
		err := store.RunInTransaction(ctx, u.db, u.txOptions, func(ctx context.Context, tx *sql.Tx) error {
			return fn(ctx, u.bind(tx))
		})
		if err == nil {
			return nil
		}

		retryable := IsRetryable(err) || store.IsTransientError(err)
		if !retryable || attempt >= u.maxAttempts || ctx.Err() != nil {
			if retryable {
				log.Warn("transaction conflict persisted after retries",
					slog.Int("attempts", attempt),
					slog.String("error", err.Error()))
				return MapError(err)
			}
			return err
		}

		log.Info("retrying conflicting transaction",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(u.backoff * time.Duration(attempt)):
		}
	}
}
