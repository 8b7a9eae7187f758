package session

import (
	"errors"

	"github.com/dmitrijs2005/policonsole/internal/common"
)

// Errors returned by Manager. NotFound and BadSecret are distinct so the
// login surface can tell an unknown agent from a wrong password.
var (
	ErrNotFound             = errors.New("unknown agent")
	ErrBadSecret            = errors.New("wrong password")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	ErrExpired              = errors.New("session expired")
	ErrTooManyAttempts      = errors.New("too many failed attempts")
	ErrInvalidInput         = common.ErrInvalidInput

	// errCorruptLocalRecord never leaves the package: a stored token that does
	// not decode is deleted and the manager carries on as if it were absent.
	errCorruptLocalRecord = errors.New("corrupt local session record")
)
