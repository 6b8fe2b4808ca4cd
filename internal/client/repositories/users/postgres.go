package users

import (
	"context"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, u *models.User) error {
	return upsert(ctx, r.db, `
		INSERT INTO users (domain, id, username, acct, display_name, url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (domain, id) DO UPDATE SET
			username = EXCLUDED.username,
			acct = EXCLUDED.acct,
			display_name = EXCLUDED.display_name,
			url = EXCLUDED.url,
			updated_at = EXCLUDED.updated_at
	`, u)
}

func (r *PostgresRepository) Get(ctx context.Context, domain, id string) (*models.User, error) {
	return get(ctx, r.db, `
		SELECT domain, id, username, acct, display_name, url, updated_at
		FROM users WHERE domain = $1 AND id = $2
	`, domain, id)
}
