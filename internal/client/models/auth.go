// Package models defines client-side data models used by the fediauth sign-in
// flow and its local store.
package models

import "time"

// AuthenticateInfo is produced once per sign-in attempt by app registration
// and consumed by the credential exchange pipeline.
type AuthenticateInfo struct {
	Domain           string
	ClientID         string
	ClientSecret     string
	AuthorizationURL string
}

// UserToken is the token-endpoint answer for one PIN code. It is never stored
// on its own.
type UserToken struct {
	AccessToken string
	TokenType   string
	Scope       string
	CreatedAt   time.Time
}

// Account is the identity returned by verify-credentials.
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
}

// Application is what the instance returns on app registration.
type Application struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Website      string `json:"website"`
	RedirectURI  string `json:"redirect_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}
