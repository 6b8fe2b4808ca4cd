// Package authentications stores credential records, one per (domain, user).
package authentications

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
)

// Repository persists credential records.
//
// CreateOrMerge inserts a record for (p.Domain, p.UserID) or refreshes the
// existing one in a single statement. verifiedAt becomes last_verified_at,
// updated_at and active_at; on insert it is also created_at. An existing row
// whose last_verified_at is newer than verifiedAt is left untouched. The
// stored row is returned in both cases.
//
// Get returns (nil, nil) when there is no record. Delete and SetActive return
// common.ErrorNotFound when no row matched.
type Repository interface {
	CreateOrMerge(ctx context.Context, p models.AuthenticationProperty, verifiedAt time.Time) (*models.Authentication, error)
	Get(ctx context.Context, domain, userID string) (*models.Authentication, error)
	List(ctx context.Context) ([]*models.Authentication, error)
	Delete(ctx context.Context, domain, userID string) error
	SetActive(ctx context.Context, domain, userID string, at time.Time) error
}
