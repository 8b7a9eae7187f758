package session

import "github.com/dmitrijs2005/policonsole/internal/directory"

// State is a node of the session state machine.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Expired
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// AuthState is an immutable snapshot of who the console is signed in as.
// IsAuthenticated implies a non-empty Subject that resolved in the directory
// at the last check.
type AuthState struct {
	State           State
	IsAuthenticated bool
	Subject         string
	DisplayName     string
	SessionID       string
	Profile         directory.Subject
}

func anonymousState() AuthState {
	return AuthState{State: Anonymous}
}

func authenticatedState(subject *directory.Subject, sessionID string) AuthState {
	return AuthState{
		State:           Authenticated,
		IsAuthenticated: true,
		Subject:         subject.NIP,
		DisplayName:     subject.DisplayName,
		SessionID:       sessionID,
		Profile:         *subject,
	}
}
