package postgres

import (
	"database/sql"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
)

// Listing bounds applied when a caller passes no or an oversized limit.
const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// normalizePage clamps limit and offset to sane values.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// closeRows closes rows and logs a failure.
func closeRows(log *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", slog.String("error", err.Error()))
	}
}

// uuidStrings converts ids for use with ANY($n::uuid[]).
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// nullUUID converts an optional id to a nullable column value.
func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil || *id == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// uuidPtr converts a nullable column value to an optional id.
func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

// scanUUIDs collects a single uuid column.
func scanUUIDs(log *slog.Logger, rows *sql.Rows) ([]uuid.UUID, error) {
	defer closeRows(log, rows)

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
