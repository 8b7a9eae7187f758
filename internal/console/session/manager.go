// Package session owns the console's authentication state machine:
// Anonymous, Authenticating, Authenticated and Expired.
//
// A Manager coordinates the agent directory, the signed session token kept in
// device storage and the "remember me" record kept by the credential store.
// Storage writes always happen before a new AuthState is published, so a
// failed or cancelled operation leaves the previous state in place.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/policonsole/internal/console/credentials"
	"github.com/dmitrijs2005/policonsole/internal/console/devicestore"
	"github.com/dmitrijs2005/policonsole/internal/directory"
	"github.com/dmitrijs2005/policonsole/internal/loginlimit"
	"github.com/dmitrijs2005/policonsole/internal/logging"
	"github.com/dmitrijs2005/policonsole/internal/validation"
	"github.com/google/uuid"
)

// TokenKey is the device storage key of the session token.
const TokenKey = "session_token"

const defaultDirectoryTimeout = 5 * time.Second

// UserDirectory is the system of record the manager authenticates against.
// It must return directory.ErrNotFound for identifiers and tokens that do not
// resolve, and directory.ErrUnavailable for transport failures.
type UserDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (*directory.Subject, error)
	VerifySecret(ctx context.Context, nip string, secret string) (bool, error)
	IssueRefreshToken(ctx context.Context, nip string) (string, error)
	RedeemRefreshToken(ctx context.Context, token string) (*directory.Subject, string, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

// CredentialStore persists the remembered login.
type CredentialStore interface {
	Save(ctx context.Context, identifier, secret string, remember bool) (bool, error)
	Load(ctx context.Context) (*credentials.Credential, error)
	Clear(ctx context.Context) (bool, error)
}

type loginInput struct {
	Identifier string `validate:"required,identifier"`
	Secret     string `validate:"required,max=256"`
}

// Manager is safe for concurrent use. Operations that change state are
// serialised; Current never blocks on I/O.
type Manager struct {
	directory   UserDirectory
	credentials CredentialStore
	tokens      devicestore.Repository
	tokenizer   *Tokenizer
	limiter     loginlimit.Limiter
	validate    *validation.Validator
	logger      logging.Logger

	directoryTimeout time.Duration

	opMu    sync.Mutex
	stateMu sync.RWMutex
	state   AuthState
}

// Option customises a Manager.
type Option func(*Manager)

// WithLimiter throttles failed logins. The default never throttles.
func WithLimiter(l loginlimit.Limiter) Option {
	return func(m *Manager) { m.limiter = l }
}

// WithDirectoryTimeout bounds every directory call.
func WithDirectoryTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.directoryTimeout = d
		}
	}
}

// NewManager returns a Manager in the Anonymous state.
func NewManager(dir UserDirectory, creds CredentialStore, tokens devicestore.Repository,
	tokenizer *Tokenizer, logger logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		directory:        dir,
		credentials:      creds,
		tokens:           tokens,
		tokenizer:        tokenizer,
		limiter:          loginlimit.Nop{},
		validate:         validation.New(),
		logger:           logger,
		directoryTimeout: defaultDirectoryTimeout,
		state:            anonymousState(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Current returns the latest published state.
func (m *Manager) Current() AuthState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// Login authenticates identifier (a NIP or an email) with secret. On success
// a fresh session token is stored and, when remember is set, a refresh token
// is stored in the credential store; otherwise any remembered login is
// forgotten. Unknown agents and wrong passwords clear every local record.
// A directory outage leaves state and records untouched.
func (m *Manager) Login(ctx context.Context, identifier, secret string, remember bool) (*directory.Subject, error) {
	identifier = strings.TrimSpace(identifier)
	if err := m.validate.Struct(loginInput{Identifier: identifier, Secret: secret}); err != nil {
		return nil, err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.limiter.Check(ctx, identifier); err != nil {
		if errors.Is(err, loginlimit.ErrTooManyAttempts) {
			m.logger.Warn(ctx, "login throttled", "identifier", identifier)
			return nil, ErrTooManyAttempts
		}
		m.logger.Warn(ctx, "login limiter unavailable, continuing", "error", err)
	}

	prev := m.Current()
	m.publish(ctx, AuthState{State: Authenticating})

	subject, err := m.findSubject(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.rejectLogin(ctx, identifier)
			return nil, ErrNotFound
		}
		m.publish(ctx, prev)
		return nil, err
	}

	ok, err := m.verifySecret(ctx, subject.NIP, secret)
	if err != nil {
		m.publish(ctx, prev)
		return nil, err
	}
	if !ok {
		m.rejectLogin(ctx, identifier)
		return nil, ErrBadSecret
	}

	sessionID := uuid.NewString()
	if err := m.storeToken(ctx, subject.NIP, sessionID); err != nil {
		m.publish(ctx, prev)
		return nil, err
	}

	if remember {
		m.remember(ctx, identifier, subject.NIP)
	} else {
		m.forget(ctx)
	}

	if err := m.limiter.Reset(ctx, identifier); err != nil {
		m.logger.Warn(ctx, "failed to reset login limiter", "error", err)
	}

	m.publish(ctx, authenticatedState(subject, sessionID))
	return subject, nil
}

// TrySilentLogin restores a session at start-up without asking for a
// password. It first trusts a valid stored session token whose subject still
// resolves, then falls back to redeeming the remembered refresh token. It
// never fails loudly: every problem ends in "not logged in".
func (m *Manager) TrySilentLogin(ctx context.Context) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	prev := m.Current()
	if prev.IsAuthenticated {
		return true
	}

	if ok, done := m.resumeFromToken(ctx, prev); done {
		return ok
	}
	return m.resumeFromCredential(ctx, prev)
}

// resumeFromToken reports done=false when the stored token is absent or
// unusable and the caller should try the remembered credential.
func (m *Manager) resumeFromToken(ctx context.Context, prev AuthState) (ok bool, done bool) {
	tok, err := m.loadToken(ctx)
	if err != nil {
		if errors.Is(err, errCorruptLocalRecord) {
			m.logger.Info(ctx, "discarded stored session token", "reason", err)
		} else {
			m.logger.Warn(ctx, "failed to read stored session token", "error", err)
		}
		return false, false
	}
	if tok == nil {
		return false, false
	}

	m.publish(ctx, AuthState{State: Authenticating})

	subject, err := m.findSubject(ctx, tok.Subject)
	switch {
	case err == nil:
		m.publish(ctx, authenticatedState(subject, tok.SessionID))
		return true, true
	case errors.Is(err, ErrNotFound):
		m.clearLocal(ctx)
		m.publish(ctx, anonymousState())
		return false, true
	default:
		m.logger.Warn(ctx, "silent login deferred", "error", err)
		m.publish(ctx, prev)
		return false, true
	}
}

func (m *Manager) resumeFromCredential(ctx context.Context, prev AuthState) bool {
	cred, err := m.credentials.Load(ctx)
	if err != nil {
		m.logger.Warn(ctx, "failed to read remembered login", "error", err)
		return false
	}
	if cred == nil {
		return false
	}

	m.publish(ctx, AuthState{State: Authenticating})

	dctx, cancel := m.directoryContext(ctx)
	subject, next, err := m.directory.RedeemRefreshToken(dctx, cred.Secret)
	cancel()
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			m.logger.Info(ctx, "remembered login no longer valid", "identifier", cred.Identifier)
			m.clearLocal(ctx)
			m.publish(ctx, anonymousState())
			return false
		}
		m.logger.Warn(ctx, "silent login deferred", "error", err)
		m.publish(ctx, prev)
		return false
	}

	// the old refresh token is spent; keep the replacement even if the
	// session token cannot be stored
	if _, err := m.credentials.Save(ctx, cred.Identifier, next, true); err != nil {
		m.logger.Warn(ctx, "failed to store rotated refresh token", "error", err)
	}

	sessionID := uuid.NewString()
	if err := m.storeToken(ctx, subject.NIP, sessionID); err != nil {
		m.logger.Warn(ctx, "silent login aborted", "error", err)
		m.publish(ctx, prev)
		return false
	}

	m.publish(ctx, authenticatedState(subject, sessionID))
	return true
}

// Logout revokes the remembered refresh token, deletes both local records and
// always ends Anonymous. Storage failures are logged, not returned.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.clearLocal(ctx)
	m.publish(ctx, anonymousState())
}

// Revalidate re-checks the current session against the stored token and the
// directory. A session whose token is gone, forged or expired, or whose agent
// no longer resolves, moves through Expired to Anonymous and reports
// (false, ErrExpired). A directory outage keeps the session and reports
// (true, ErrDirectoryUnavailable). Without a session it reports (false, nil).
func (m *Manager) Revalidate(ctx context.Context) (bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	st := m.Current()
	if !st.IsAuthenticated {
		return false, nil
	}

	tok, err := m.loadToken(ctx)
	switch {
	case err != nil && !errors.Is(err, errCorruptLocalRecord):
		m.logger.Warn(ctx, "failed to read stored session token", "error", err)
	case err != nil, tok == nil, tok.SessionID != st.SessionID, tok.Subject != st.Subject:
		m.expire(ctx, st, "session token missing or replaced")
		return false, ErrExpired
	}

	subject, err := m.findSubject(ctx, st.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.expire(ctx, st, "agent no longer resolves")
			return false, ErrExpired
		}
		m.logger.Warn(ctx, "revalidation deferred", "error", err)
		return true, err
	}

	m.publish(ctx, authenticatedState(subject, st.SessionID))
	return true, nil
}

func (m *Manager) expire(ctx context.Context, st AuthState, reason string) {
	expired := st
	expired.State = Expired
	expired.IsAuthenticated = false
	m.logger.Info(ctx, "session expired", "subject", st.Subject, "reason", reason)
	m.publish(ctx, expired)

	m.clearLocal(ctx)
	m.publish(ctx, anonymousState())
}

func (m *Manager) rejectLogin(ctx context.Context, identifier string) {
	if err := m.limiter.Fail(ctx, identifier); err != nil {
		m.logger.Warn(ctx, "failed to record failed login", "error", err)
	}
	m.clearLocal(ctx)
	m.publish(ctx, anonymousState())
}

// remember issues a refresh token and stores it. Failures are logged: the
// login itself has already succeeded. When the new record cannot be written
// the previous one is forgotten, so it can never resume another login.
func (m *Manager) remember(ctx context.Context, identifier, nip string) {
	old, err := m.credentials.Load(ctx)
	if err != nil {
		m.logger.Warn(ctx, "failed to read remembered login", "error", err)
	}

	dctx, cancel := m.directoryContext(ctx)
	refresh, err := m.directory.IssueRefreshToken(dctx, nip)
	cancel()
	if err != nil {
		m.logger.Warn(ctx, "could not remember login", "error", err)
		m.forget(ctx)
		return
	}

	if _, err := m.credentials.Save(ctx, identifier, refresh, true); err != nil {
		m.logger.Warn(ctx, "could not remember login", "error", err)
		m.revoke(ctx, refresh)
		m.forget(ctx)
		return
	}
	if old != nil && old.Secret != refresh {
		m.revoke(ctx, old.Secret)
	}
}

// forget revokes and deletes the remembered login, if any.
func (m *Manager) forget(ctx context.Context) {
	cred, err := m.credentials.Load(ctx)
	if err != nil {
		m.logger.Warn(ctx, "failed to read remembered login", "error", err)
	}
	if cred != nil {
		m.revoke(ctx, cred.Secret)
	}
	if _, err := m.credentials.Clear(ctx); err != nil {
		m.logger.Warn(ctx, "failed to clear remembered login", "error", err)
	}
}

// clearLocal forgets the remembered login and deletes the session token.
func (m *Manager) clearLocal(ctx context.Context) {
	m.forget(ctx)
	if err := m.tokens.Delete(ctx, TokenKey); err != nil {
		m.logger.Warn(ctx, "failed to delete session token", "error", err)
	}
}

func (m *Manager) revoke(ctx context.Context, refresh string) {
	dctx, cancel := m.directoryContext(ctx)
	defer cancel()
	if err := m.directory.RevokeRefreshToken(dctx, refresh); err != nil {
		m.logger.Warn(ctx, "failed to revoke refresh token", "error", err)
	}
}

func (m *Manager) storeToken(ctx context.Context, nip, sessionID string) error {
	signed, _, err := m.tokenizer.Mint(nip, sessionID)
	if err != nil {
		return err
	}
	if err := m.tokens.Set(ctx, TokenKey, []byte(signed)); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	return nil
}

// loadToken returns (nil, nil) when no token is stored. A token that fails to
// verify is deleted and reported as errCorruptLocalRecord.
func (m *Manager) loadToken(ctx context.Context) (*Token, error) {
	raw, err := m.tokens.Get(ctx, TokenKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	tok, err := m.tokenizer.Parse(string(raw))
	if err != nil {
		if derr := m.tokens.Delete(ctx, TokenKey); derr != nil {
			m.logger.Warn(ctx, "failed to delete session token", "error", derr)
		}
		return nil, fmt.Errorf("%w: %w", errCorruptLocalRecord, err)
	}
	return tok, nil
}

func (m *Manager) findSubject(ctx context.Context, identifier string) (*directory.Subject, error) {
	dctx, cancel := m.directoryContext(ctx)
	defer cancel()

	subject, err := m.directory.FindByIdentifier(dctx, identifier)
	if err != nil {
		return nil, mapDirectoryError(err)
	}
	return subject, nil
}

func (m *Manager) verifySecret(ctx context.Context, nip, secret string) (bool, error) {
	dctx, cancel := m.directoryContext(ctx)
	defer cancel()

	ok, err := m.directory.VerifySecret(dctx, nip, secret)
	if err != nil {
		return false, mapDirectoryError(err)
	}
	return ok, nil
}

func (m *Manager) directoryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.directoryTimeout)
}

func (m *Manager) publish(ctx context.Context, next AuthState) {
	m.stateMu.Lock()
	prev := m.state
	m.state = next
	m.stateMu.Unlock()

	if prev.State != next.State {
		m.logger.Debug(ctx, "session state changed",
			"from", prev.State.String(), "to", next.State.String(), "subject", next.Subject)
	}
}

func mapDirectoryError(err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
}
