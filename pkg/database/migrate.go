package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/shieldcore/firewall/migrations"
)

// runMigrations applies every pending migration in migrations.FS against
// raw, in dialect order, the way NewPostgresDB brings up the schema before
// anything else touches the connection.
func runMigrations(raw *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(raw, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
