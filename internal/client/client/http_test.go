package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serverDate = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeInstance is a minimal Mastodon-like API: one app, one PIN, one account.
func fakeInstance(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()

	r.Post("/api/v1/apps", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("redirect_uris") != common.OOBRedirectURI {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "bad redirect"})
			return
		}
		writeJSON(w, http.StatusOK, models.Application{
			ID: "1", Name: r.PostForm.Get("client_name"), Website: r.PostForm.Get("website"),
			RedirectURI: common.OOBRedirectURI, ClientID: "cid", ClientSecret: "csecret",
		})
	})

	r.Post("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f := r.PostForm
		if f.Get("grant_type") != "authorization_code" || f.Get("client_id") != "cid" ||
			f.Get("client_secret") != "csecret" || f.Get("redirect_uri") != common.OOBRedirectURI ||
			f.Get("code") != "ABC123" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tok1", "token_type": "Bearer",
			"scope": "read write follow push", "created_at": 1760000000,
		})
	})

	r.Get("/api/v1/accounts/verify_credentials", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "The access token is invalid"})
			return
		}
		w.Header().Set("Date", serverDate.Format(http.TimeFormat))
		writeJSON(w, http.StatusOK, models.Account{ID: "42", Username: "alice", Acct: "alice", URL: "https://mastodon.example/@alice"})
	})

	r.Post("/oauth/revoke", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("client_id") != "cid" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "unauthorized_client"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	r.Get("/api/v1/instance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"uri": "mastodon.example"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, opts ...Option) *HTTPClient {
	base := []Option{
		WithBaseURL(func(string) string { return srv.URL }),
		WithTimeout(5 * time.Second),
	}
	return NewHTTPClient(append(base, opts...)...)
}

func testInfo() models.AuthenticateInfo {
	return models.AuthenticateInfo{Domain: "mastodon.example", ClientID: "cid", ClientSecret: "csecret"}
}

func TestRegisterApp(t *testing.T) {
	srv := fakeInstance(t)
	c := newTestClient(srv, WithApp("fediauth-test", "https://example.org", ""))

	info, err := c.RegisterApp(context.Background(), "mastodon.example")
	require.NoError(t, err)
	assert.Equal(t, "mastodon.example", info.Domain)
	assert.Equal(t, "cid", info.ClientID)
	assert.Equal(t, "csecret", info.ClientSecret)

	u, err := url.Parse(info.AuthorizationURL)
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, common.OOBRedirectURI, q.Get("redirect_uri"))
	assert.Equal(t, common.DefaultScopes, q.Get("scope"))
	assert.Len(t, q.Get("state"), 32)
}

func TestExchangeToken(t *testing.T) {
	srv := fakeInstance(t)
	c := newTestClient(srv)

	tok, err := c.ExchangeToken(context.Background(), testInfo(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "tok1", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, "read write follow push", tok.Scope)
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), tok.CreatedAt)
}

func TestExchangeToken_InvalidGrant(t *testing.T) {
	srv := fakeInstance(t)
	c := newTestClient(srv)

	_, err := c.ExchangeToken(context.Background(), testInfo(), "WRONG")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyCredentials(t *testing.T) {
	srv := fakeInstance(t)
	c := newTestClient(srv)

	acc, at, err := c.VerifyCredentials(context.Background(), "mastodon.example", "tok1")
	require.NoError(t, err)
	assert.Equal(t, "42", acc.ID)
	assert.Equal(t, "alice", acc.Username)
	assert.Equal(t, serverDate, at)
}

func TestVerifyCredentials_Unauthorized(t *testing.T) {
	srv := fakeInstance(t)
	c := newTestClient(srv)

	_, _, err := c.VerifyCredentials(context.Background(), "mastodon.example", "bad")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRevokeAndPing(t *testing.T) {
	srv := fakeInstance(t)
	c := newTestClient(srv, WithRateLimit(100))
	ctx := context.Background()

	require.NoError(t, c.RevokeToken(ctx, "mastodon.example", "cid", "csecret", "tok1"))
	require.ErrorIs(t, c.RevokeToken(ctx, "mastodon.example", "other", "csecret", "tok1"), ErrUnauthorized)
	require.NoError(t, c.Ping(ctx, "mastodon.example"))
	require.NoError(t, c.Close())
}

func TestServerErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := newTestClient(srv)

	err := c.Ping(context.Background(), "mastodon.example")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = c.ExchangeToken(context.Background(), testInfo(), "ABC123")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()
	c := newTestClient(srv)

	_, _, err := c.VerifyCredentials(context.Background(), "mastodon.example", "tok1")
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := newTestClient(srv)

	_, _, err := c.VerifyCredentials(context.Background(), "mastodon.example", "tok1")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = c.ExchangeToken(context.Background(), testInfo(), "ABC123")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCancelledContext(t *testing.T) {
	srv := fakeInstance(t)
	c := newTestClient(srv)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.VerifyCredentials(ctx, "mastodon.example", "tok1")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{200, nil},
		{204, nil},
		{400, ErrUnauthorized},
		{401, ErrUnauthorized},
		{403, ErrUnauthorized},
		{404, ErrBadResponse},
		{422, ErrBadResponse},
		{429, ErrUnavailable},
		{500, ErrUnavailable},
		{503, ErrUnavailable},
	}
	for _, tt := range tests {
		err := mapStatus(tt.code)
		if tt.want == nil {
			assert.NoError(t, err, tt.code)
			continue
		}
		assert.True(t, errors.Is(err, tt.want), "status %d: %v", tt.code, err)
	}
}
