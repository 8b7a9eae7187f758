package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/policonsole/internal/common"
	"github.com/dmitrijs2005/policonsole/internal/console/authgate"
	"github.com/dmitrijs2005/policonsole/internal/console/session"
	"github.com/dmitrijs2005/policonsole/internal/directory"
)

// getSimpleText, getPassword and getConfirmation are indirections used to
// facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getConfirmation = GetConfirmation

type recoveryInput struct {
	NIP   string `validate:"required,nip"`
	Email string `validate:"required,email"`
}

// Login prompts for an identifier, a password and whether to remember the
// login on this device, then signs in. The password is wiped before
// returning. Failures are reported to the operator and returned.
func (a *App) Login(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Enter NIP or email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	remember, err := getConfirmation(a.reader, "Remember me on this device?", a.out)
	if err != nil {
		return err
	}

	subject, err := a.sessions.Login(ctx, identifier, string(password), remember)
	if err != nil {
		fmt.Fprintln(a.out, loginFailureMessage(err))
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s\n", subject.DisplayName)
	return nil
}

// Logout forgets the session and any remembered login on this device.
func (a *App) Logout(ctx context.Context) error {
	a.sessions.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Recover issues a temporary password for an agent who can prove the
// registered email of their NIP.
func (a *App) Recover(ctx context.Context) error {
	nip, err := getSimpleText(a.reader, "Enter NIP", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter registered email", a.out)
	if err != nil {
		return err
	}

	if err := a.validate.Struct(recoveryInput{NIP: nip, Email: email}); err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.DirectoryTimeout)
	defer cancel()

	temp, err := a.recovery.ResetPassword(ctx, nip, email)
	switch {
	case err == nil:
		fmt.Fprintf(a.out, "Temporary password: %s\n", temp)
		fmt.Fprintln(a.out, "Remembered logins for this agent have been revoked.")
		return nil
	case errors.Is(err, directory.ErrNotFound), errors.Is(err, directory.ErrEmailMismatch):
		fmt.Fprintln(a.out, "No active agent matches that NIP and email")
	case errors.Is(err, directory.ErrUnavailable):
		fmt.Fprintln(a.out, authgate.DirectoryUnavailable.Message())
	default:
		fmt.Fprintln(a.out, "Recovery failed:", err)
	}
	return err
}

func loginFailureMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "Unknown agent: no active agent has that NIP or email"
	case errors.Is(err, session.ErrBadSecret):
		return "Wrong password"
	case errors.Is(err, session.ErrTooManyAttempts):
		return "Too many failed attempts, try again later"
	case errors.Is(err, session.ErrDirectoryUnavailable):
		return authgate.DirectoryUnavailable.Message()
	case errors.Is(err, session.ErrInvalidInput):
		return err.Error()
	default:
		return "Login failed: " + err.Error()
	}
}
