// Package migrations embeds the local store schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// Driver names accepted by Up, matching the registered database/sql drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Up applies all pending migrations for driver. It uses a goose Provider
// rather than the package globals so different stores can migrate
// concurrently.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	dialect, dir, err := dialectFor(driver)
	if err != nil {
		return err
	}

	sub, err := fs.Sub(Migrations, dir)
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func dialectFor(driver string) (goose.Dialect, string, error) {
	switch driver {
	case DriverSQLite:
		return goose.DialectSQLite3, "sqlite", nil
	case DriverPostgres:
		return goose.DialectPostgres, "postgres", nil
	default:
		return "", "", fmt.Errorf("unsupported store driver %q", driver)
	}
}
