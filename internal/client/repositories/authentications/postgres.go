package authentications

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/dbx"
)

var postgresQueries = queries{
	upsert: `
		INSERT INTO authentications (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (domain, user_id) DO UPDATE SET
			username = EXCLUDED.username,
			app_access_token = EXCLUDED.app_access_token,
			user_access_token = EXCLUDED.user_access_token,
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			updated_at = EXCLUDED.updated_at,
			last_verified_at = EXCLUDED.last_verified_at,
			active_at = EXCLUDED.active_at
		WHERE EXCLUDED.last_verified_at >= authentications.last_verified_at`,
	get: `SELECT ` + columns + ` FROM authentications WHERE domain = $1 AND user_id = $2`,
	list: `SELECT ` + columns + ` FROM authentications
		ORDER BY active_at DESC NULLS LAST, domain, username`,
	delete:    `DELETE FROM authentications WHERE domain = $1 AND user_id = $2`,
	setActive: `UPDATE authentications SET active_at = $1 WHERE domain = $2 AND user_id = $3`,
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateOrMerge(ctx context.Context, p models.AuthenticationProperty, verifiedAt time.Time) (*models.Authentication, error) {
	return createOrMerge(ctx, r.db, postgresQueries, p, verifiedAt)
}

func (r *PostgresRepository) Get(ctx context.Context, domain, userID string) (*models.Authentication, error) {
	return get(ctx, r.db, postgresQueries, domain, userID)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Authentication, error) {
	return list(ctx, r.db, postgresQueries)
}

func (r *PostgresRepository) Delete(ctx context.Context, domain, userID string) error {
	return exec(ctx, r.db, "delete", postgresQueries.delete, domain, userID)
}

func (r *PostgresRepository) SetActive(ctx context.Context, domain, userID string, at time.Time) error {
	return exec(ctx, r.db, "activate", postgresQueries.setActive, domain, userID, at.UTC())
}
