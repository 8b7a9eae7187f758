// Package authgate guards protected console views.
//
// A Gate never renders anything itself. It returns a Decision and the caller
// (the shell's command router) decides whether to run the view or to show
// the login prompt with the reason's message.
package authgate

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/policonsole/internal/console/session"
)

// Reason explains why a Decision redirects to the login surface.
type Reason int

const (
	// LoginRequired means nobody is signed in.
	LoginRequired Reason = iota + 1
	// SessionExpired means a session existed but is no longer valid.
	SessionExpired
	// DirectoryUnavailable is transient: the session could not be checked.
	DirectoryUnavailable
)

func (r Reason) String() string {
	switch r {
	case LoginRequired:
		return "login required"
	case SessionExpired:
		return "session expired"
	case DirectoryUnavailable:
		return "directory unavailable"
	default:
		return "unknown"
	}
}

// Message is the text shown to the operator for r.
func (r Reason) Message() string {
	switch r {
	case SessionExpired:
		return "session expired, please log in again"
	case DirectoryUnavailable:
		return "the agent directory is unreachable, try again in a moment"
	default:
		return "please log in to continue"
	}
}

// Decision is either Authorized, carrying the signed-in state, or a redirect
// carrying a Reason.
type Decision struct {
	state  session.AuthState
	reason Reason
}

// Authorized returns a decision that lets the view run as st.
func Authorized(st session.AuthState) Decision {
	return Decision{state: st}
}

// Redirect returns a decision that sends the operator to the login surface.
func Redirect(r Reason) Decision {
	return Decision{reason: r}
}

// Authorized reports whether the view may run.
func (d Decision) Authorized() bool { return d.reason == 0 }

// State is the signed-in state of an authorized decision.
func (d Decision) State() session.AuthState { return d.state }

// Reason is set on redirects.
func (d Decision) Reason() Reason { return d.reason }

// Sessions is the part of session.Manager the gate relies on.
type Sessions interface {
	Current() session.AuthState
	TrySilentLogin(ctx context.Context) bool
	Revalidate(ctx context.Context) (bool, error)
}

// Gate decides access to protected views.
type Gate struct {
	sessions Sessions
}

// New returns a Gate over sessions.
func New(sessions Sessions) *Gate {
	return &Gate{sessions: sessions}
}

// RequireAuthenticated authorizes the current session or explains why not.
// An anonymous console gets one silent login attempt; an authenticated one is
// revalidated against the directory.
func (g *Gate) RequireAuthenticated(ctx context.Context) Decision {
	if !g.sessions.Current().IsAuthenticated {
		if !g.sessions.TrySilentLogin(ctx) {
			return Redirect(LoginRequired)
		}
		return Authorized(g.sessions.Current())
	}

	ok, err := g.sessions.Revalidate(ctx)
	switch {
	case errors.Is(err, session.ErrDirectoryUnavailable):
		return Redirect(DirectoryUnavailable)
	case errors.Is(err, session.ErrExpired):
		return Redirect(SessionExpired)
	case !ok:
		return Redirect(LoginRequired)
	}
	return Authorized(g.sessions.Current())
}
