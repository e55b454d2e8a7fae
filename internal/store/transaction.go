// Package store provides abstractions and implementations for data persistence
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
)

// TxFn is work performed inside a database transaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction begins a transaction with opts, runs fn and commits when fn
// returns nil. An error or panic from fn rolls the transaction back; a panic
// is re-raised once the rollback has been attempted. A nil opts uses the
// driver defaults.
func RunInTransaction(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFn) (err error) {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		p := recover()
		if p == nil && err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("transaction rollback failed", slog.String("error", rbErr.Error()))
			if p == nil {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
		if p != nil {
			log.Error("transaction rolled back after panic", slog.Any("panic", p))
			// ALLOW-PANIC: re-raise the caller's panic after rollback
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
