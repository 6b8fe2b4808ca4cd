// Package users is the local directory of remote accounts seen through
// verify-credentials, keyed by (domain, id).
package users

import (
	"context"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
)

// Repository persists directory entries. Get returns (nil, nil) when the
// account is unknown.
type Repository interface {
	Upsert(ctx context.Context, u *models.User) error
	Get(ctx context.Context, domain, id string) (*models.User, error)
}
