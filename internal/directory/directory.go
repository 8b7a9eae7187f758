// Package directory is the agent directory: the system of record that decides
// whether an identifier names a police agent allowed to use the console and
// whether a secret belongs to that agent.
//
// The PostgreSQL implementation lives in the services subpackage; this package
// holds the types shared by the directory and its callers.
package directory

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/policonsole/internal/directory/models"
)

var (
	// ErrNotFound means the identifier does not resolve to an active agent,
	// or a refresh token is unknown, expired or revoked.
	ErrNotFound = errors.New("agent not found")

	// ErrUnavailable wraps any driver or network failure. Callers treat it as
	// transient and must not discard local state because of it.
	ErrUnavailable = errors.New("directory unavailable")

	// ErrEmailMismatch is returned by password recovery when the email does
	// not match the one registered for the NIP.
	ErrEmailMismatch = errors.New("email does not match agent")
)

// Subject is the resolved identity of an agent, as seen by the console.
type Subject struct {
	NIP         string
	Email       string
	DisplayName string
	Active      bool
	Monitor     bool
}

// SubjectFromAgent projects a directory row onto the console-facing identity.
func SubjectFromAgent(a *models.Agent) *Subject {
	return &Subject{
		NIP:         a.NIP,
		Email:       a.Email,
		DisplayName: a.DisplayName(),
		Active:      a.Active,
		Monitor:     a.Monitor,
	}
}

// IsEmail reports whether the identifier should be looked up by email rather
// than by NIP.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}
