// Package cli provides the interactive fediauth command-line client.
//
// It wires configuration, the local credential store, the instance API
// client and a sign-in session into a REPL. Typical flow: set a server,
// sign in (the CLI prints the authorization URL), paste the PIN shown by the
// instance, and manage the stored accounts afterwards.
//
// Commands:
//   - server <domain>            select the instance
//   - signin                     register the app and print the authorization URL
//   - pin [code]                 submit the PIN (prompted without echo if omitted)
//   - accounts                   list stored accounts, the active one first
//   - use <domain> <user>        switch the active account
//   - signout <domain> <user>    revoke and forget an account
//   - status, help, exit
//
// A background watcher pings the selected instance and shows whether it is
// reachable in the prompt. Sign-in outcomes are printed as they arrive.
package cli
