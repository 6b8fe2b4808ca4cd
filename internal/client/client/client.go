package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
)

// Client is the instance API used by the sign-in flow. domain is a
// normalized host name.
type Client interface {
	RegisterApp(ctx context.Context, domain string) (*models.AuthenticateInfo, error)
	ExchangeToken(ctx context.Context, info models.AuthenticateInfo, code string) (*models.UserToken, error)
	VerifyCredentials(ctx context.Context, domain, accessToken string) (*models.Account, time.Time, error)
	RevokeToken(ctx context.Context, domain, clientID, clientSecret, token string) error
	Ping(ctx context.Context, domain string) error
	Close() error
}
