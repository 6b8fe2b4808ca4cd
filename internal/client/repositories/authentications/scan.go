package authentications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/dmitrijs2005/fediauth/internal/dbx"
	"github.com/google/uuid"
)

const columns = `id, domain, user_id, username, app_access_token, user_access_token,
	client_id, client_secret, created_at, updated_at, last_verified_at, active_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuthentication(row rowScanner) (*models.Authentication, error) {
	a := &models.Authentication{}
	var activeAt sql.NullTime
	err := row.Scan(&a.ID, &a.Domain, &a.UserID, &a.Username, &a.AppAccessToken, &a.UserAccessToken,
		&a.ClientID, &a.ClientSecret, &a.CreatedAt, &a.UpdatedAt, &a.LastVerifiedAt, &activeAt)
	if err != nil {
		return nil, err
	}
	if activeAt.Valid {
		a.ActiveAt = activeAt.Time
	}
	return a, nil
}

// Both dialects share the statement flow; only the SQL text differs.
type queries struct {
	upsert    string
	get       string
	list      string
	delete    string
	setActive string
}

func createOrMerge(ctx context.Context, db dbx.DBTX, q queries, p models.AuthenticationProperty, verifiedAt time.Time) (*models.Authentication, error) {
	at := verifiedAt.UTC()
	_, err := db.ExecContext(ctx, q.upsert,
		uuid.NewString(), p.Domain, p.UserID, p.Username, p.AppAccessToken, p.UserAccessToken,
		p.ClientID, p.ClientSecret, at, at, at, at)
	if err != nil {
		return nil, fmt.Errorf("failed to merge authentication %s@%s: %w", p.UserID, p.Domain, err)
	}

	// a stale update leaves the row as it was, so read back what is stored
	a, err := get(ctx, db, q, p.Domain, p.UserID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("failed to merge authentication %s@%s: %w", p.UserID, p.Domain, common.ErrorNotFound)
	}
	return a, nil
}

func get(ctx context.Context, db dbx.DBTX, q queries, domain, userID string) (*models.Authentication, error) {
	a, err := scanAuthentication(db.QueryRowContext(ctx, q.get, domain, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get authentication %s@%s: %w", userID, domain, err)
	}
	return a, nil
}

func list(ctx context.Context, db dbx.DBTX, q queries) ([]*models.Authentication, error) {
	rows, err := db.QueryContext(ctx, q.list)
	if err != nil {
		return nil, fmt.Errorf("failed to list authentications: %w", err)
	}
	defer rows.Close()

	var result []*models.Authentication
	for rows.Next() {
		a, err := scanAuthentication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan authentication row: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authentication rows: %w", err)
	}
	return result, nil
}

func exec(ctx context.Context, db dbx.DBTX, verb, query string, domain, userID string, args ...any) error {
	res, err := db.ExecContext(ctx, query, append(args, domain, userID)...)
	if err != nil {
		return fmt.Errorf("failed to %s authentication %s@%s: %w", verb, userID, domain, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s authentication %s@%s: %w", verb, userID, domain, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
