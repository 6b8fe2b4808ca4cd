// Package signin orchestrates PIN-code sign-in against a federated instance.
//
// A Tracker turns free-form server input into a readiness state. A Pipeline
// runs one PIN at a time through exchange, verification, local lookup and
// the credential store merge; a newer PIN supersedes an in-flight one and
// only the newest attempt's outcome is ever published. Session ties both to
// app registration for a front end.
//
// Outcomes are published as Events on a channel fed by one goroutine, in
// the order they happened. Producers never block on a slow consumer.
package signin
