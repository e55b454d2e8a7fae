// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. Uniqueness of payment references, enrollment
// pairs and live reviews is enforced by the schema; the stores translate the
// resulting server errors into store sentinels.
package postgres
