package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fediauth/internal/client/signin"
)

// printEvents reports sign-in progress until ctx is done or the session
// stream closes.
func (a *App) printEvents(ctx context.Context) {
	events := a.session.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.report(e)
		}
	}
}

func (a *App) report(e signin.Event) {
	switch e.Kind {
	case signin.EventAuthenticating:
		a.log.Debug(context.Background(), "sign-in attempt started", "attempt", e.AttemptID, "domain", e.Domain)
	case signin.EventError:
		fmt.Fprintf(a.out, "Sign-in failed: %v\n", e.Err)
	case signin.EventAuthenticated:
		name := e.Domain
		if e.Account != nil {
			name = fmt.Sprintf("@%s@%s", e.Account.Username, e.Domain)
		}
		fmt.Fprintf(a.out, "Signed in as %s\n", name)
	}
}
