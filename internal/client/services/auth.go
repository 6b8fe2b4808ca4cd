// Package services contains application services for the fediauth client.
// This file defines the authentication service: app registration, PIN code
// exchange, credential verification, the credential store merge and the
// housekeeping of stored accounts (listing, switching, sign-out).
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/client"
	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/dmitrijs2005/fediauth/internal/cryptox"
	"github.com/dmitrijs2005/fediauth/internal/dbx"
	"github.com/dmitrijs2005/fediauth/internal/logging"
)

// AuthService defines authentication operations for the sign-in flow and
// the CLI.
//
// Contract:
//   - RegisterApp: create an OAuth app on the instance, return its credentials.
//   - ExchangeToken: trade a PIN code for a user token.
//   - VerifyCredentials: resolve the token's account and record it in the
//     local user directory.
//   - LookupUser: read the local user directory; (nil, nil) when absent.
//   - Merge: create or refresh the credential record for (domain, user) and
//     mark it active, in one transaction.
//   - List / Active / Use / SignOut: manage stored credentials.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	RegisterApp(ctx context.Context, domain string) (*models.AuthenticateInfo, error)
	ExchangeToken(ctx context.Context, info models.AuthenticateInfo, code string) (*models.UserToken, error)
	VerifyCredentials(ctx context.Context, domain, accessToken string) (*models.Account, time.Time, error)
	LookupUser(ctx context.Context, domain, id string) (*models.User, error)
	Merge(ctx context.Context, user *models.User, p models.AuthenticationProperty, verifiedAt time.Time) (*models.Authentication, error)
	List(ctx context.Context) ([]*models.Authentication, error)
	Active(ctx context.Context) (*models.Authentication, error)
	Use(ctx context.Context, domain, userID string) error
	SignOut(ctx context.Context, domain, userID string) error
	Unlock(ctx context.Context, passphrase []byte) error
	Ping(ctx context.Context, domain string) error
	Close(ctx context.Context) error
}

// authService is the concrete AuthService backed by a remote Client and a
// local SQL store.
type authService struct {
	client client.Client
	db     *sql.DB
	driver string
	now    func() time.Time
	log    logging.Logger

	mu     sync.RWMutex
	sealer cryptox.Sealer
}

type Option func(*authService)

func WithLogger(l logging.Logger) Option {
	return func(a *authService) { a.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(a *authService) { a.now = now }
}

// NewAuthService constructs an AuthService bound to the given API client and
// store. driver selects the repository dialect.
func NewAuthService(c client.Client, db *sql.DB, driver string, opts ...Option) (AuthService, error) {
	if _, err := client.NewRepositories(driver, db); err != nil {
		return nil, err
	}
	a := &authService{
		client: c,
		db:     db,
		driver: driver,
		now:    time.Now,
		log:    logging.Nop{},
		sealer: cryptox.Plain{},
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

func (a *authService) repos(db dbx.DBTX) *client.Repositories {
	// driver was validated in the constructor
	r, _ := client.NewRepositories(a.driver, db)
	return r
}

func (a *authService) getSealer() cryptox.Sealer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sealer
}

func (a *authService) RegisterApp(ctx context.Context, domain string) (*models.AuthenticateInfo, error) {
	return a.client.RegisterApp(ctx, domain)
}

func (a *authService) ExchangeToken(ctx context.Context, info models.AuthenticateInfo, code string) (*models.UserToken, error) {
	return a.client.ExchangeToken(ctx, info, code)
}

// VerifyCredentials asks the instance who owns accessToken and upserts that
// account into the local user directory, so a following LookupUser finds it.
func (a *authService) VerifyCredentials(ctx context.Context, domain, accessToken string) (*models.Account, time.Time, error) {
	acc, verifiedAt, err := a.client.VerifyCredentials(ctx, domain, accessToken)
	if err != nil {
		return nil, time.Time{}, err
	}

	if err := a.repos(a.db).Users.Upsert(ctx, models.UserFromAccount(domain, acc, verifiedAt)); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: save user: %w", common.ErrPersistence, err)
	}
	return acc, verifiedAt, nil
}

func (a *authService) LookupUser(ctx context.Context, domain, id string) (*models.User, error) {
	u, err := a.repos(a.db).Users.Get(ctx, domain, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	return u, nil
}

// Merge seals the tokens, upserts the record and points the active-account
// marker at it. A cancelled ctx rolls everything back.
func (a *authService) Merge(ctx context.Context, user *models.User, p models.AuthenticationProperty, verifiedAt time.Time) (*models.Authentication, error) {
	sealer := a.getSealer()

	sealed := p
	var err error
	if sealed.AppAccessToken, err = sealer.Seal(p.AppAccessToken); err != nil {
		return nil, fmt.Errorf("%w: seal token: %w", common.ErrPersistence, err)
	}
	if sealed.UserAccessToken, err = sealer.Seal(p.UserAccessToken); err != nil {
		return nil, fmt.Errorf("%w: seal token: %w", common.ErrPersistence, err)
	}
	if sealed.ClientSecret, err = sealer.Seal(p.ClientSecret); err != nil {
		return nil, fmt.Errorf("%w: seal secret: %w", common.ErrPersistence, err)
	}
	if user != nil && sealed.Username == "" {
		sealed.Username = user.Username
	}

	var stored *models.Authentication
	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := a.repos(tx)

		rec, err := r.Authentications.CreateOrMerge(ctx, sealed, verifiedAt)
		if err != nil {
			return err
		}
		if err := setActiveMarker(ctx, r, rec.Domain, rec.UserID); err != nil {
			return err
		}
		stored = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	rec, err := a.open(stored)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.UserAccessToken != p.UserAccessToken {
		a.log.Warn(ctx, "stored credential has a newer verification, submitted token dropped",
			"domain", rec.Domain, "user_id", rec.UserID,
			"verified_at", verifiedAt, "stored_verified_at", rec.LastVerifiedAt)
	}
	return rec, nil
}

func setActiveMarker(ctx context.Context, r *client.Repositories, domain, userID string) error {
	if err := r.Metadata.Set(ctx, common.MetadataActiveDomain, []byte(domain)); err != nil {
		return err
	}
	return r.Metadata.Set(ctx, common.MetadataActiveUserID, []byte(userID))
}

func (a *authService) open(rec *models.Authentication) (*models.Authentication, error) {
	if rec == nil {
		return nil, nil
	}
	sealer := a.getSealer()
	out := *rec
	var err error
	if out.AppAccessToken, err = sealer.Open(rec.AppAccessToken); err != nil {
		return nil, err
	}
	if out.UserAccessToken, err = sealer.Open(rec.UserAccessToken); err != nil {
		return nil, err
	}
	if out.ClientSecret, err = sealer.Open(rec.ClientSecret); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns stored credentials, the active one first.
func (a *authService) List(ctx context.Context) ([]*models.Authentication, error) {
	recs, err := a.repos(a.db).Authentications.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Authentication, 0, len(recs))
	for _, r := range recs {
		o, err := a.open(r)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Active returns the record the active-account marker points at, or
// (nil, nil) when nobody is signed in.
func (a *authService) Active(ctx context.Context) (*models.Authentication, error) {
	r := a.repos(a.db)
	domain, err := r.Metadata.Get(ctx, common.MetadataActiveDomain)
	if err != nil {
		return nil, err
	}
	userID, err := r.Metadata.Get(ctx, common.MetadataActiveUserID)
	if err != nil {
		return nil, err
	}
	if len(domain) == 0 || len(userID) == 0 {
		return nil, nil
	}

	rec, err := r.Authentications.Get(ctx, string(domain), string(userID))
	if err != nil {
		return nil, err
	}
	return a.open(rec)
}

// Use makes a stored credential the active one.
func (a *authService) Use(ctx context.Context, domain, userID string) error {
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := a.repos(tx)
		if err := r.Authentications.SetActive(ctx, domain, userID, a.now()); err != nil {
			return err
		}
		return setActiveMarker(ctx, r, domain, userID)
	})
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrNotSignedIn
	}
	return err
}

// SignOut revokes the token at the instance, best effort, and deletes the
// local record. The active marker is cleared when it pointed at it.
func (a *authService) SignOut(ctx context.Context, domain, userID string) error {
	rec, err := a.repos(a.db).Authentications.Get(ctx, domain, userID)
	if err != nil {
		return err
	}
	if rec == nil {
		return common.ErrNotSignedIn
	}

	if opened, err := a.open(rec); err != nil {
		a.log.Warn(ctx, "cannot open stored token, skipping revoke", "domain", domain, "error", err)
	} else if err := a.client.RevokeToken(ctx, domain, opened.ClientID, opened.ClientSecret, opened.UserAccessToken); err != nil {
		a.log.Warn(ctx, "token revoke failed", "domain", domain, "error", err)
	}

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := a.repos(tx)
		if err := r.Authentications.Delete(ctx, domain, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNotSignedIn
			}
			return err
		}

		activeDomain, err := r.Metadata.Get(ctx, common.MetadataActiveDomain)
		if err != nil {
			return err
		}
		activeUser, err := r.Metadata.Get(ctx, common.MetadataActiveUserID)
		if err != nil {
			return err
		}
		if string(activeDomain) != domain || string(activeUser) != userID {
			return nil
		}
		if err := r.Metadata.Delete(ctx, common.MetadataActiveDomain); err != nil {
			return err
		}
		return r.Metadata.Delete(ctx, common.MetadataActiveUserID)
	})
}

// Unlock derives the sealing key from passphrase. The first call on a fresh
// store records a salt and a verifier; later calls must use the same
// passphrase or get common.ErrSealingKey.
func (a *authService) Unlock(ctx context.Context, passphrase []byte) error {
	r := a.repos(a.db)

	salt, err := r.Metadata.Get(ctx, common.MetadataSealSalt)
	if err != nil {
		return err
	}
	check, err := r.Metadata.Get(ctx, common.MetadataSealCheck)
	if err != nil {
		return err
	}

	if len(salt) == 0 {
		salt = common.GenerateRandByteArray(16)
		key := cryptox.DeriveKey(passphrase, salt)
		err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			tr := a.repos(tx)
			if err := tr.Metadata.Set(ctx, common.MetadataSealSalt, salt); err != nil {
				return err
			}
			return tr.Metadata.Set(ctx, common.MetadataSealCheck, cryptox.MakeVerifier(key))
		})
		if err != nil {
			return fmt.Errorf("save sealing salt: %w", err)
		}
		return a.setKey(key)
	}

	key := cryptox.DeriveKey(passphrase, salt)
	if subtle.ConstantTimeCompare(check, cryptox.MakeVerifier(key)) == 0 {
		return common.ErrSealingKey
	}
	return a.setKey(key)
}

// setKey installs the sealer and wipes key.
func (a *authService) setKey(key []byte) error {
	defer common.WipeByteArray(key)
	s, err := cryptox.NewAESSealer(key)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.sealer = s
	a.mu.Unlock()
	return nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context, domain string) error {
	return a.client.Ping(ctx, domain)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
