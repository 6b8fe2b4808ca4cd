package models

import "time"

// User is a local directory entry for a remote account, keyed by
// (Domain, ID).
type User struct {
	ID          string
	Domain      string
	Username    string
	Acct        string
	DisplayName string
	URL         string
	UpdatedAt   time.Time
}

// UserFromAccount maps a verified account of domain to a directory entry.
func UserFromAccount(domain string, a *Account, at time.Time) *User {
	return &User{
		ID:          a.ID,
		Domain:      domain,
		Username:    a.Username,
		Acct:        a.Acct,
		DisplayName: a.DisplayName,
		URL:         a.URL,
		UpdatedAt:   at,
	}
}
