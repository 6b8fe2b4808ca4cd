package authentications

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/dbx"
)

var sqliteQueries = queries{
	upsert: `
		INSERT INTO authentications (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain, user_id) DO UPDATE SET
			username = excluded.username,
			app_access_token = excluded.app_access_token,
			user_access_token = excluded.user_access_token,
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			updated_at = excluded.updated_at,
			last_verified_at = excluded.last_verified_at,
			active_at = excluded.active_at
		WHERE excluded.last_verified_at >= authentications.last_verified_at`,
	get: `SELECT ` + columns + ` FROM authentications WHERE domain = ? AND user_id = ?`,
	list: `SELECT ` + columns + ` FROM authentications
		ORDER BY active_at IS NULL, active_at DESC, domain, username`,
	delete:    `DELETE FROM authentications WHERE domain = ? AND user_id = ?`,
	setActive: `UPDATE authentications SET active_at = ? WHERE domain = ? AND user_id = ?`,
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateOrMerge(ctx context.Context, p models.AuthenticationProperty, verifiedAt time.Time) (*models.Authentication, error) {
	return createOrMerge(ctx, r.db, sqliteQueries, p, verifiedAt)
}

func (r *SQLiteRepository) Get(ctx context.Context, domain, userID string) (*models.Authentication, error) {
	return get(ctx, r.db, sqliteQueries, domain, userID)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Authentication, error) {
	return list(ctx, r.db, sqliteQueries)
}

func (r *SQLiteRepository) Delete(ctx context.Context, domain, userID string) error {
	return exec(ctx, r.db, "delete", sqliteQueries.delete, domain, userID)
}

func (r *SQLiteRepository) SetActive(ctx context.Context, domain, userID string, at time.Time) error {
	return exec(ctx, r.db, "activate", sqliteQueries.setActive, domain, userID, at.UTC())
}
