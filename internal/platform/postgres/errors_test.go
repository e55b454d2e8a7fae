package postgres_test

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/platform/postgres"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

func pgErr(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "server error",
		TableName:      "ledger_entries",
		ColumnName:     "payment_reference",
		ConstraintName: "ledger_entries_payment_reference_key",
	}
}

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, r.err }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	plain := errors.New("syntax error at or near SELEKT")

	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{name: "no rows", err: sql.ErrNoRows, sentinel: store.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan course: %w", sql.ErrNoRows), sentinel: store.ErrNotFound},
		{name: "bad connection", err: driver.ErrBadConn, sentinel: store.ErrTransient},
		{name: "conn done", err: sql.ErrConnDone, sentinel: store.ErrTransient},
		{name: "unique", err: pgErr("23505"), sentinel: store.ErrDuplicate},
		{
			name:     "foreign key",
			err:      pgErr("23503"),
			sentinel: store.ErrInvalidEntity,
			contains: "constraint ledger_entries_payment_reference_key",
		},
		{name: "check", err: pgErr("23514"), sentinel: store.ErrInvalidEntity},
		{
			name:     "not null",
			err:      pgErr("23502"),
			sentinel: store.ErrInvalidEntity,
			contains: "column payment_reference is required",
		},
		{name: "serialization", err: pgErr("40001"), sentinel: store.ErrTransient},
		{name: "deadlock", err: pgErr("40P01"), sentinel: store.ErrTransient},
		{name: "connection exception class", err: pgErr("08006"), sentinel: store.ErrTransient},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mapped := postgres.MapError(tc.err)
			require.Error(t, mapped)
			assert.ErrorIs(t, mapped, tc.sentinel)
			if tc.contains != "" {
				assert.Contains(t, mapped.Error(), tc.contains)
			}
		})
	}

	t.Run("passes through", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, postgres.MapError(nil))
		assert.Same(t, plain, postgres.MapError(plain))

		undefinedTable := pgErr("42P01")
		assert.Same(t, error(undefinedTable), postgres.MapError(undefinedTable))
	})
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	wrappedUnique := fmt.Errorf("insert review: %w", pgErr("23505"))

	assert.True(t, postgres.IsUniqueViolation(wrappedUnique))
	assert.False(t, postgres.IsUniqueViolation(pgErr("23503")))
	assert.False(t, postgres.IsUniqueViolation(nil))

	assert.True(t, postgres.IsForeignKeyViolation(pgErr("23503")))
	assert.False(t, postgres.IsForeignKeyViolation(errors.New("23503")))

	assert.True(t, postgres.IsRetryable(pgErr("40001")))
	assert.True(t, postgres.IsRetryable(fmt.Errorf("commit: %w", pgErr("40P01"))))
	assert.False(t, postgres.IsRetryable(pgErr("23505")))
	assert.False(t, postgres.IsRetryable(driver.ErrBadConn))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.CheckRowsAffected(fakeResult{rows: 1}, store.ErrCourseNotFound))
	assert.NoError(t, postgres.CheckRowsAffected(fakeResult{rows: 3}, nil))

	assert.Same(t, store.ErrCourseNotFound, postgres.CheckRowsAffected(fakeResult{}, store.ErrCourseNotFound))
	assert.Same(t, store.ErrNotFound, postgres.CheckRowsAffected(fakeResult{}, nil))

	driverErr := errors.New("driver does not support RowsAffected")
	err := postgres.CheckRowsAffected(fakeResult{err: driverErr}, store.ErrWebinarNotFound)
	assert.ErrorIs(t, err, driverErr)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, postgres.CheckRowsAffected(nil, nil))
}
