package models

import "time"

// Authentication is a persisted credential record. At most one exists per
// (Domain, UserID).
type Authentication struct {
	ID              string
	Domain          string
	UserID          string
	Username        string
	AppAccessToken  string
	UserAccessToken string
	ClientID        string
	ClientSecret    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastVerifiedAt  time.Time
	ActiveAt        time.Time
}

// AuthenticationProperty bundles the fields used to create a record or to
// refresh an existing one.
type AuthenticationProperty struct {
	Domain          string
	UserID          string
	Username        string
	AppAccessToken  string
	UserAccessToken string
	ClientID        string
	ClientSecret    string
}

// NewAuthenticationProperty assembles a property for user from the attempt's
// app registration and exchanged token. The app token is filled from the
// user token until a separate client-credentials token is obtained.
func NewAuthenticationProperty(info AuthenticateInfo, user *User, token *UserToken) AuthenticationProperty {
	return AuthenticationProperty{
		Domain:          info.Domain,
		UserID:          user.ID,
		Username:        user.Username,
		AppAccessToken:  token.AccessToken,
		UserAccessToken: token.AccessToken,
		ClientID:        info.ClientID,
		ClientSecret:    info.ClientSecret,
	}
}
