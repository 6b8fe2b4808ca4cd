package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, u *models.User) error {
	return upsert(ctx, r.db, `
		INSERT INTO users (domain, id, username, acct, display_name, url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain, id) DO UPDATE SET
			username = excluded.username,
			acct = excluded.acct,
			display_name = excluded.display_name,
			url = excluded.url,
			updated_at = excluded.updated_at
	`, u)
}

func (r *SQLiteRepository) Get(ctx context.Context, domain, id string) (*models.User, error) {
	return get(ctx, r.db, `
		SELECT domain, id, username, acct, display_name, url, updated_at
		FROM users WHERE domain = ? AND id = ?
	`, domain, id)
}

func upsert(ctx context.Context, db dbx.DBTX, query string, u *models.User) error {
	_, err := db.ExecContext(ctx, query,
		u.Domain, u.ID, u.Username, u.Acct, u.DisplayName, u.URL, u.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert user %s@%s: %w", u.ID, u.Domain, err)
	}
	return nil
}

func get(ctx context.Context, db dbx.DBTX, query, domain, id string) (*models.User, error) {
	u := &models.User{}
	err := db.QueryRowContext(ctx, query, domain, id).
		Scan(&u.Domain, &u.ID, &u.Username, &u.Acct, &u.DisplayName, &u.URL, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s@%s: %w", id, domain, err)
	}
	return u, nil
}
