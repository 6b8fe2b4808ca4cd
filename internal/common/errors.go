// Package common defines shared constants and sentinel errors used across
// the sign-in layers of fediauth. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Sign-in taxonomy surfaced to the user.
	ErrInvalidDomain  = errors.New("invalid domain")
	ErrTransport      = errors.New("transport error")
	ErrBadCredentials = errors.New("bad credentials")
	ErrPersistence    = errors.New("persistence error")

	// Input errors.
	ErrEmptyPIN = errors.New("empty pin code")

	// Lifecycle errors.
	ErrClosed      = errors.New("closed")
	ErrNotSignedIn = errors.New("no authentication for account")
	ErrNoServerSet = errors.New("no server selected")
	ErrSealingKey  = errors.New("sealing key mismatch")
)
