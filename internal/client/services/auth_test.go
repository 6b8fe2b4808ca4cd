package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/client"
	"github.com/dmitrijs2005/fediauth/internal/client/migrations"
	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/dmitrijs2005/fediauth/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), migrations.DriverSQLite,
		client.SQLiteDSN(filepath.Join(t.TempDir(), "store.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func rawToken(t *testing.T, db *sql.DB, domain, userID string) string {
	t.Helper()
	var v string
	err := db.QueryRow(`SELECT user_access_token FROM authentications WHERE domain = ? AND user_id = ?`, domain, userID).Scan(&v)
	require.NoError(t, err)
	return v
}

// ---- fake client ----

type fakeClient struct {
	Info     *models.AuthenticateInfo
	Token    *models.UserToken
	Account  *models.Account
	Verified time.Time

	RegisterErr error
	ExchangeErr error
	VerifyErr   error
	RevokeErr   error
	PingErr     error

	Revoked []string
	Closed  bool
}

func (f *fakeClient) RegisterApp(ctx context.Context, domain string) (*models.AuthenticateInfo, error) {
	return f.Info, f.RegisterErr
}

func (f *fakeClient) ExchangeToken(ctx context.Context, info models.AuthenticateInfo, code string) (*models.UserToken, error) {
	return f.Token, f.ExchangeErr
}

func (f *fakeClient) VerifyCredentials(ctx context.Context, domain, accessToken string) (*models.Account, time.Time, error) {
	if f.VerifyErr != nil {
		return nil, time.Time{}, f.VerifyErr
	}
	return f.Account, f.Verified, nil
}

func (f *fakeClient) RevokeToken(ctx context.Context, domain, clientID, clientSecret, token string) error {
	f.Revoked = append(f.Revoked, token)
	return f.RevokeErr
}

func (f *fakeClient) Ping(ctx context.Context, domain string) error { return f.PingErr }

func (f *fakeClient) Close() error {
	f.Closed = true
	return nil
}

var t0 = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T, fc *fakeClient) (*authService, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	svc, err := NewAuthService(fc, db, migrations.DriverSQLite, WithClock(func() time.Time { return t0 }))
	require.NoError(t, err)
	return svc.(*authService), db
}

func aliceProperty(token string) models.AuthenticationProperty {
	info := models.AuthenticateInfo{Domain: "mastodon.example", ClientID: "cid", ClientSecret: "csecret"}
	user := &models.User{ID: "42", Domain: "mastodon.example", Username: "alice"}
	return models.NewAuthenticationProperty(info, user, &models.UserToken{AccessToken: token})
}

// ---- TESTS ----

func TestNewAuthService_UnknownDriver(t *testing.T) {
	_, err := NewAuthService(&fakeClient{}, nil, "mysql")
	require.Error(t, err)
}

func TestVerifyCredentials_StoresUser(t *testing.T) {
	fc := &fakeClient{Account: &models.Account{ID: "42", Username: "alice"}, Verified: t0}
	svc, _ := newService(t, fc)
	ctx := context.Background()

	acc, at, err := svc.VerifyCredentials(ctx, "mastodon.example", "tok1")
	require.NoError(t, err)
	assert.Equal(t, "42", acc.ID)
	assert.Equal(t, t0, at)

	u, err := svc.LookupUser(ctx, "mastodon.example", "42")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Username)

	none, err := svc.LookupUser(ctx, "other.example", "42")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestVerifyCredentials_ClientErrorPassesThrough(t *testing.T) {
	fc := &fakeClient{VerifyErr: client.ErrUnauthorized}
	svc, _ := newService(t, fc)

	_, _, err := svc.VerifyCredentials(context.Background(), "mastodon.example", "bad")
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestMerge_CreateThenRefresh(t *testing.T) {
	svc, _ := newService(t, &fakeClient{})
	ctx := context.Background()
	user := &models.User{ID: "42", Domain: "mastodon.example", Username: "alice"}

	first, err := svc.Merge(ctx, user, aliceProperty("tok1"), t0)
	require.NoError(t, err)
	second, err := svc.Merge(ctx, user, aliceProperty("tok2"), t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "tok2", second.UserAccessToken)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "42", active.UserID)
}

func TestMerge_StaleVerificationKeepsStoredTokenAndWarns(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, logging.Options{Level: "warn"})
	require.NoError(t, err)

	db := setupDB(t)
	s, err := NewAuthService(&fakeClient{}, db, migrations.DriverSQLite, WithLogger(log))
	require.NoError(t, err)
	ctx := context.Background()
	user := &models.User{ID: "42", Domain: "mastodon.example", Username: "alice"}

	_, err = s.Merge(ctx, user, aliceProperty("tok1"), t0)
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	got, err := s.Merge(ctx, user, aliceProperty("tok2"), t0.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "tok1", got.UserAccessToken)
	assert.Contains(t, buf.String(), "submitted token dropped")
	assert.NotContains(t, buf.String(), "tok2")
}

func TestMerge_CancelledContextRollsBack(t *testing.T) {
	svc, _ := newService(t, &fakeClient{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Merge(ctx, nil, aliceProperty("tok1"), t0)
	require.ErrorIs(t, err, common.ErrPersistence)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUnlock_SealsTokensAtRest(t *testing.T) {
	svc, db := newService(t, &fakeClient{})
	ctx := context.Background()

	require.NoError(t, svc.Unlock(ctx, []byte("correct horse")))
	rec, err := svc.Merge(ctx, nil, aliceProperty("tok1"), t0)
	require.NoError(t, err)
	assert.Equal(t, "tok1", rec.UserAccessToken)

	raw := rawToken(t, db, "mastodon.example", "42")
	assert.True(t, strings.HasPrefix(raw, "sealed:"), raw)

	// a second service over the same store needs the same passphrase
	other, err := NewAuthService(&fakeClient{}, db, migrations.DriverSQLite)
	require.NoError(t, err)
	require.ErrorIs(t, other.Unlock(ctx, []byte("wrong")), common.ErrSealingKey)

	_, err = other.List(ctx)
	require.ErrorIs(t, err, common.ErrSealingKey)

	require.NoError(t, other.Unlock(ctx, []byte("correct horse")))
	all, err := other.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "tok1", all[0].UserAccessToken)
}

func TestUse(t *testing.T) {
	svc, _ := newService(t, &fakeClient{})
	ctx := context.Background()

	_, err := svc.Merge(ctx, nil, aliceProperty("tok1"), t0)
	require.NoError(t, err)
	bob := aliceProperty("tok2")
	bob.Domain, bob.UserID, bob.Username = "other.example", "7", "bob"
	_, err = svc.Merge(ctx, nil, bob, t0)
	require.NoError(t, err)

	require.NoError(t, svc.Use(ctx, "mastodon.example", "42"))
	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mastodon.example", active.Domain)

	require.ErrorIs(t, svc.Use(ctx, "nowhere.example", "1"), common.ErrNotSignedIn)
}

func TestSignOut(t *testing.T) {
	fc := &fakeClient{RevokeErr: errors.New("instance down")}
	svc, _ := newService(t, fc)
	ctx := context.Background()

	_, err := svc.Merge(ctx, nil, aliceProperty("tok1"), t0)
	require.NoError(t, err)

	// revoke failure does not block local sign-out
	require.NoError(t, svc.SignOut(ctx, "mastodon.example", "42"))
	assert.Equal(t, []string{"tok1"}, fc.Revoked)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	require.ErrorIs(t, svc.SignOut(ctx, "mastodon.example", "42"), common.ErrNotSignedIn)
}

func TestPingAndClose(t *testing.T) {
	fc := &fakeClient{PingErr: client.ErrUnavailable}
	svc, _ := newService(t, fc)

	require.ErrorIs(t, svc.Ping(context.Background(), "mastodon.example"), client.ErrUnavailable)
	require.NoError(t, svc.Close(context.Background()))
	assert.True(t, fc.Closed)
}
