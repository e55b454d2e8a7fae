package testdb

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/phrazzld/pantognostis-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
)

// testGooseLogger forwards goose output to the standard logger without exiting.
type testGooseLogger struct{}

// Printf implements goose.Logger
func (testGooseLogger) Printf(format string, v ...interface{}) {
	log.Print("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf implements goose.Logger
func (testGooseLogger) Fatalf(format string, v ...interface{}) {
	log.Print("goose fatal: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// ApplyMigrations brings the schema up to date from the embedded migrations.
func ApplyMigrations(db *sql.DB) error {
	goose.SetLogger(testGooseLogger{})
	goose.SetTableName("schema_migrations")
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
