package signin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/stretchr/testify/require"
)

// fakeService implements Service with overridable steps. Unset steps
// succeed with the values of the end-to-end example.
type fakeService struct {
	mu sync.Mutex

	exchange func(ctx context.Context, code string) (*models.UserToken, error)
	verify   func(ctx context.Context, token string) (*models.Account, time.Time, error)
	lookup   func(ctx context.Context, domain, id string) (*models.User, error)
	merge    func(ctx context.Context, p models.AuthenticationProperty) (*models.Authentication, error)
	register func(ctx context.Context, domain string) (*models.AuthenticateInfo, error)

	merged []models.AuthenticationProperty
	codes  []string
}

var verifiedAt = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func (f *fakeService) RegisterApp(ctx context.Context, domain string) (*models.AuthenticateInfo, error) {
	if f.register != nil {
		return f.register(ctx, domain)
	}
	return &models.AuthenticateInfo{Domain: domain, ClientID: "cid", ClientSecret: "csecret", AuthorizationURL: "https://" + domain + "/oauth/authorize"}, nil
}

func (f *fakeService) ExchangeToken(ctx context.Context, info models.AuthenticateInfo, code string) (*models.UserToken, error) {
	f.mu.Lock()
	f.codes = append(f.codes, code)
	f.mu.Unlock()
	if f.exchange != nil {
		return f.exchange(ctx, code)
	}
	return &models.UserToken{AccessToken: "tok1", TokenType: "Bearer"}, nil
}

func (f *fakeService) VerifyCredentials(ctx context.Context, domain, accessToken string) (*models.Account, time.Time, error) {
	if f.verify != nil {
		return f.verify(ctx, accessToken)
	}
	return &models.Account{ID: "42", Username: "alice"}, verifiedAt, nil
}

func (f *fakeService) LookupUser(ctx context.Context, domain, id string) (*models.User, error) {
	if f.lookup != nil {
		return f.lookup(ctx, domain, id)
	}
	return &models.User{ID: id, Domain: domain, Username: "alice"}, nil
}

func (f *fakeService) Merge(ctx context.Context, user *models.User, p models.AuthenticationProperty, at time.Time) (*models.Authentication, error) {
	if f.merge != nil {
		if _, err := f.merge(ctx, p); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, p)
	return &models.Authentication{
		ID: "rec-1", Domain: p.Domain, UserID: p.UserID, Username: p.Username,
		UserAccessToken: p.UserAccessToken, AppAccessToken: p.AppAccessToken, LastVerifiedAt: at,
	}, nil
}

func (f *fakeService) mergedProps() []models.AuthenticationProperty {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AuthenticationProperty(nil), f.merged...)
}

func (f *fakeService) deps() Deps {
	return Deps{Exchanger: f, Verifier: f, Users: f, Merger: f}
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "event stream closed")
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

// drain collects events until the stream is closed.
func drain(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-time.After(5 * time.Second):
			t.Fatal("event stream not closed")
		}
	}
}

func testInfo() models.AuthenticateInfo {
	return models.AuthenticateInfo{Domain: "mastodon.example", ClientID: "cid", ClientSecret: "csecret"}
}
