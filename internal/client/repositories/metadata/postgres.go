package metadata

import (
	"context"

	"github.com/dmitrijs2005/fediauth/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, r.db, `SELECT value FROM metadata WHERE key = $1`, key)
}

func (r *PostgresRepository) Set(ctx context.Context, key string, value []byte) error {
	return set(ctx, r.db, `
		INSERT INTO metadata (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
}

func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	return del(ctx, r.db, `DELETE FROM metadata WHERE key = $1`, key)
}

func (r *PostgresRepository) List(ctx context.Context) (map[string][]byte, error) {
	return list(ctx, r.db)
}
