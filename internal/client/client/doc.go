// Package client contains client-side building blocks for talking to a
// Mastodon-compatible instance.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): app
//     registration, PIN code exchange, credential verification, token
//     revocation and a reachability probe.
//  2. A concrete HTTP implementation (see HTTPClient) built on net/http and
//     golang.org/x/oauth2, with an outgoing rate limiter, that maps HTTP
//     status codes to sentinel errors.
//  3. Local store bootstrap (InitDatabase, NewRepositories) opening SQLite or
//     Postgres and applying the embedded goose migrations.
//
// # Error Handling
//
// Transport conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrBadResponse.
//
// All operations accept context.Context and honour cancellation/timeouts.
// HTTPClient is safe for concurrent use.
package client
