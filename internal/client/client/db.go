package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fediauth/internal/client/migrations"
	"github.com/dmitrijs2005/fediauth/internal/client/repositories/authentications"
	"github.com/dmitrijs2005/fediauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fediauth/internal/client/repositories/users"
	"github.com/dmitrijs2005/fediauth/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Repositories groups the store repositories bound to one DBTX, either the
// pool or a transaction.
type Repositories struct {
	Metadata        metadata.Repository
	Users           users.Repository
	Authentications authentications.Repository
}

// NewRepositories returns the driver's repository implementations over db.
func NewRepositories(driver string, db dbx.DBTX) (*Repositories, error) {
	switch driver {
	case migrations.DriverSQLite:
		return &Repositories{
			Metadata:        metadata.NewSQLiteRepository(db),
			Users:           users.NewSQLiteRepository(db),
			Authentications: authentications.NewSQLiteRepository(db),
		}, nil
	case migrations.DriverPostgres:
		return &Repositories{
			Metadata:        metadata.NewPostgresRepository(db),
			Users:           users.NewPostgresRepository(db),
			Authentications: authentications.NewPostgresRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// SQLiteDSN builds a DSN for a database file that lets concurrent writers
// wait for each other instead of failing with SQLITE_BUSY.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func RunMigrations(ctx context.Context, db *sql.DB, driver string) error {
	return migrations.Up(ctx, db, driver)
}

// InitDatabase opens the store and brings its schema up to date.
func InitDatabase(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := RunMigrations(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
