package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/fediauth/internal/client/domain"
	"github.com/dmitrijs2005/fediauth/internal/client/models"
	"github.com/dmitrijs2005/fediauth/internal/common"
)

// Server feeds input to the readiness tracker and reports the normalized
// domain.
func (a *App) Server(ctx context.Context, input string) error {
	pending := a.session.Info()
	st := a.session.SetInput(input)
	if pending != nil && a.session.Info() == nil {
		fmt.Fprintf(a.out, "Pending sign-in on %s cancelled\n", pending.Domain)
	}
	if !st.Valid {
		return fmt.Errorf("%w: %q", common.ErrInvalidDomain, input)
	}
	a.setMode(ModeUnknown)
	fmt.Fprintf(a.out, "Server set to %s\n", st.Domain)
	return nil
}

// SignIn registers the app on the selected server and prints the URL where
// the user obtains a PIN.
func (a *App) SignIn(ctx context.Context) error {
	if !a.session.Readiness().SignInEnabled {
		return fmt.Errorf("%w: use 'server <domain>' first", common.ErrNoServerSet)
	}
	info, err := a.session.Begin(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Open this URL in a browser and authorize the app:")
	fmt.Fprintln(a.out, info.AuthorizationURL)
	fmt.Fprintln(a.out, "Then type 'pin' and paste the code.")
	return nil
}

// PIN submits code, prompting for it without echo when empty.
func (a *App) PIN(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		c, err := getPIN(a.out)
		if err != nil {
			return err
		}
		code = c
	}
	return a.session.SubmitPIN(code)
}

func (a *App) Accounts(ctx context.Context) error {
	list, err := a.auth.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No accounts. Use 'server' and 'signin' to add one.")
		return nil
	}

	active, err := a.auth.Active(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tACCOUNT\tID\tVERIFIED")
	for _, x := range list {
		mark := ""
		if active != nil && active.ID == x.ID {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t@%s@%s\t%s\t%s\n", mark, x.Username, x.Domain, x.UserID,
			x.LastVerifiedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func (a *App) Use(ctx context.Context, d, user string) error {
	x, err := a.resolve(ctx, d, user)
	if err != nil {
		return err
	}
	if err := a.auth.Use(ctx, x.Domain, x.UserID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Active account: @%s@%s\n", x.Username, x.Domain)
	return nil
}

func (a *App) SignOut(ctx context.Context, d, user string) error {
	x, err := a.resolve(ctx, d, user)
	if err != nil {
		return err
	}
	if err := a.auth.SignOut(ctx, x.Domain, x.UserID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed out @%s@%s\n", x.Username, x.Domain)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.session.Readiness()
	if st.Valid {
		fmt.Fprintf(a.out, "Server: %s (%s)\n", st.Domain, modeName(a.Mode()))
	} else {
		fmt.Fprintln(a.out, "Server: not set")
	}

	ps := a.session.State()
	switch {
	case ps.IsAuthenticating:
		fmt.Fprintf(a.out, "Sign-in: %s\n", ps.Stage)
	case ps.Err != nil:
		fmt.Fprintf(a.out, "Sign-in: failed: %v\n", ps.Err)
	case a.session.Info() != nil:
		fmt.Fprintln(a.out, "Sign-in: waiting for PIN")
	}

	active, err := a.auth.Active(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		fmt.Fprintln(a.out, "Active account: none")
	} else {
		fmt.Fprintf(a.out, "Active account: @%s@%s\n", active.Username, active.Domain)
	}
	return nil
}

// resolve finds the stored record on domain d whose user ID or username is
// user. A leading @ on user is ignored.
func (a *App) resolve(ctx context.Context, d, user string) (*models.Authentication, error) {
	dom, err := domain.Validate(d)
	if err != nil {
		return nil, err
	}
	user = strings.TrimPrefix(user, "@")

	list, err := a.auth.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, x := range list {
		if x.Domain != dom.String() {
			continue
		}
		if x.UserID == user || strings.EqualFold(x.Username, user) {
			return x, nil
		}
	}
	return nil, fmt.Errorf("%w: %s@%s", common.ErrNotSignedIn, user, dom)
}

func modeName(m Mode) string {
	if m == ModeUnknown {
		return "unchecked"
	}
	return string(m)
}
