package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/common"
	"github.com/dmitrijs2005/fediauth/internal/logging"
	"github.com/dmitrijs2005/fediauth/internal/netx"
	"golang.org/x/oauth2"
)

const maxBodySize = 1 << 20

// HTTPClient implements Client over the instance REST API.
type HTTPClient struct {
	http       *http.Client
	clientName string
	website    string
	scopes     []string
	baseURL    func(domain string) string
	now        func() time.Time
	log        logging.Logger
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout bounds every request. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithRateLimit caps outgoing requests per second across all instances.
func WithRateLimit(rps float64) Option {
	return func(c *HTTPClient) {
		c.http.Transport = netx.NewLimitedTransport(c.http.Transport, rps, 1)
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) { c.http.Transport = rt }
}

// WithBaseURL overrides how a domain is turned into an origin.
func WithBaseURL(fn func(domain string) string) Option {
	return func(c *HTTPClient) { c.baseURL = fn }
}

// WithApp sets what the client registers itself as.
func WithApp(name, website, scopes string) Option {
	return func(c *HTTPClient) {
		if name != "" {
			c.clientName = name
		}
		c.website = website
		if s := strings.Fields(scopes); len(s) > 0 {
			c.scopes = s
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *HTTPClient) { c.now = now }
}

func NewHTTPClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		http:       &http.Client{Transport: http.DefaultTransport},
		clientName: "fediauth",
		scopes:     strings.Fields(common.DefaultScopes),
		baseURL:    func(domain string) string { return "https://" + domain },
		now:        time.Now,
		log:        logging.Nop{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) oauthConfig(info models.AuthenticateInfo) *oauth2.Config {
	base := c.baseURL(info.Domain)
	return &oauth2.Config{
		ClientID:     info.ClientID,
		ClientSecret: info.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/oauth/authorize",
			TokenURL:  base + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: common.OOBRedirectURI,
		Scopes:      c.scopes,
	}
}

// RegisterApp creates an OAuth application on the instance and returns the
// credentials plus the authorization URL the user opens to get a PIN.
func (c *HTTPClient) RegisterApp(ctx context.Context, domain string) (*models.AuthenticateInfo, error) {
	form := url.Values{
		"client_name":   {c.clientName},
		"redirect_uris": {common.OOBRedirectURI},
		"scopes":        {strings.Join(c.scopes, " ")},
	}
	if c.website != "" {
		form.Set("website", c.website)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(domain)+"/api/v1/apps", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("register app: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var app models.Application
	if _, err := c.do(ctx, req, &app); err != nil {
		return nil, fmt.Errorf("register app: %w", err)
	}
	if app.ClientID == "" || app.ClientSecret == "" {
		return nil, fmt.Errorf("register app: %w: missing client credentials", ErrBadResponse)
	}

	state, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("register app: %w", err)
	}

	info := models.AuthenticateInfo{
		Domain:       domain,
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
	}
	info.AuthorizationURL = c.oauthConfig(info).AuthCodeURL(state)
	return &info, nil
}

// ExchangeToken trades a PIN code for a user access token.
func (c *HTTPClient) ExchangeToken(ctx context.Context, info models.AuthenticateInfo, code string) (*models.UserToken, error) {
	c.log.Debug(ctx, "exchanging code", "domain", info.Domain)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauthConfig(info).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange token: %w", mapOAuthError(err))
	}

	ut := &models.UserToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		CreatedAt:   c.now().UTC(),
	}
	if s, ok := tok.Extra("scope").(string); ok {
		ut.Scope = s
	}
	if n, ok := tok.Extra("created_at").(float64); ok && n > 0 {
		ut.CreatedAt = time.Unix(int64(n), 0).UTC()
	}
	return ut, nil
}

// VerifyCredentials fetches the account owning accessToken. The returned
// time is the server's Date header, falling back to the local clock.
func (c *HTTPClient) VerifyCredentials(ctx context.Context, domain, accessToken string) (*models.Account, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(domain)+"/api/v1/accounts/verify_credentials", nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("verify credentials: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var acc models.Account
	h, err := c.do(ctx, req, &acc)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("verify credentials: %w", err)
	}
	if acc.ID == "" {
		return nil, time.Time{}, fmt.Errorf("verify credentials: %w: empty account id", ErrBadResponse)
	}
	return &acc, netx.ServerDate(h, c.now), nil
}

// RevokeToken invalidates token at the instance.
func (c *HTTPClient) RevokeToken(ctx context.Context, domain, clientID, clientSecret, token string) error {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"token":         {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(domain)+"/oauth/revoke", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Ping checks that the instance answers its public info endpoint.
func (c *HTTPClient) Ping(ctx context.Context, domain string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(domain)+"/api/v1/instance", nil)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if _, err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapError(err)
	}
	defer resp.Body.Close()

	c.log.Debug(ctx, "instance request", "method", req.Method, "host", req.URL.Host, "path", req.URL.Path, "status", resp.StatusCode)

	if err := mapStatus(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, err
	}

	if out != nil {
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
		}
	}
	return resp.Header, nil
}

// mapError turns transport failures into sentinels. Context errors stay
// visible to errors.Is alongside ErrUnavailable.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func mapStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusBadRequest, code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: status %d", ErrBadResponse, code)
	}
}

func mapOAuthError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		code := 0
		if re.Response != nil {
			code = re.Response.StatusCode
		}
		switch mapped := mapStatus(code); {
		case code == 0:
			return fmt.Errorf("%w: %w", ErrBadResponse, err)
		case mapped == nil:
			// error payload in a 2xx answer, e.g. invalid_grant
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		default:
			return fmt.Errorf("%w: %w", mapped, err)
		}
	}

	var ue *url.Error
	if errors.As(err, &ue) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return mapError(err)
	}
	return fmt.Errorf("%w: %w", ErrBadResponse, err)
}
