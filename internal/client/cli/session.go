package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/supervisor"
)

// getSecret is an indirection used to facilitate testing.
var getSecret = GetSecret

const defaultMintSubject = "dev"

func (a *App) isLoggedIn() bool {
	return a.session.Status().State == supervisor.StateValid
}

func (a *App) getStatus() string {
	st := a.session.Status()
	if st.State != supervisor.StateValid {
		return fmt.Sprintf("(%s)", st.State)
	}
	return fmt.Sprintf("(valid %s)", st.Remaining(a.clock.Now()).Truncate(time.Second))
}

// Login reads a bearer token without echo and stores it for every process
// sharing the credential store.
func (a *App) Login(ctx context.Context) error {
	raw, err := getSecret("Paste token", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(raw)

	token := string(bytes.TrimSpace(raw))
	if err := a.session.Login(ctx, token); err != nil {
		switch {
		case errors.Is(err, common.ErrMalformedCredential):
			fmt.Fprintln(a.out, "That does not look like a valid token.")
		case errors.Is(err, common.ErrAlreadyExpired):
			fmt.Fprintln(a.out, "That token has already expired.")
		}
		return err
	}

	a.logger.Info(ctx, "logged in")
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

// Mint issues a development token with the configured signing key and logs
// in with it. Usage: mint <ttl> [subject].
func (a *App) Mint(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: mint <ttl> [subject]")
		return nil
	}
	ttl, err := time.ParseDuration(args[0])
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", args[0], err)
	}
	subject := defaultMintSubject
	if len(args) > 1 {
		subject = args[1]
	}

	token, err := a.session.Mint(subject, ttl)
	if err != nil {
		return err
	}
	if err := a.session.Login(ctx, token); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Minted token for %s valid for %s.\n", subject, ttl)
	return nil
}

// Logout clears the shared credential. Every other process watching the
// store expires its session too.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.logger.Info(ctx, "logged out")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.session.Status()
	if st.State != supervisor.StateValid {
		fmt.Fprintf(a.out, "Session: %s\n", st.State)
		return nil
	}
	fmt.Fprintf(a.out, "Session: valid until %s (%s left)\n",
		st.ExpiresAt.Format(time.RFC3339), st.Remaining(a.clock.Now()).Truncate(time.Second))
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	if err := a.session.Verify(ctx); err != nil {
		return err
	}
	return a.Status(ctx)
}
