package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestUserFromAccount(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := UserFromAccount("mastodon.example", &Account{ID: "42", Username: "alice", Acct: "alice", DisplayName: "Alice"}, at)

	want := &User{ID: "42", Domain: "mastodon.example", Username: "alice", Acct: "alice", DisplayName: "Alice", UpdatedAt: at}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("UserFromAccount mismatch (-want +got):\n%s", diff)
	}
}

func TestNewAuthenticationProperty(t *testing.T) {
	info := AuthenticateInfo{Domain: "mastodon.example", ClientID: "cid", ClientSecret: "csec"}
	user := &User{ID: "42", Domain: "mastodon.example", Username: "alice"}

	got := NewAuthenticationProperty(info, user, &UserToken{AccessToken: "tok1"})

	want := AuthenticationProperty{
		Domain:          "mastodon.example",
		UserID:          "42",
		Username:        "alice",
		AppAccessToken:  "tok1",
		UserAccessToken: "tok1",
		ClientID:        "cid",
		ClientSecret:    "csec",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("NewAuthenticationProperty mismatch (-want +got):\n%s", diff)
	}
}
