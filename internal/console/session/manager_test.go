package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/policonsole/internal/console/credentials"
	"github.com/dmitrijs2005/policonsole/internal/console/devicestore"
	"github.com/dmitrijs2005/policonsole/internal/directory"
	"github.com/dmitrijs2005/policonsole/internal/loginlimit"
	"github.com/dmitrijs2005/policonsole/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory is an in-memory UserDirectory with switchable outages.
type fakeDirectory struct {
	mu       sync.Mutex
	agents   map[string]*directory.Subject
	secrets  map[string]string
	refresh  map[string]string
	seq      int
	down     bool
	noIssue  bool
	finds    int
	revoked  []string
	redeemed []string
}

func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{
		agents:  map[string]*directory.Subject{},
		secrets: map[string]string{},
		refresh: map[string]string{},
	}
	d.add("12345", "agente@policialocal.test", "Agente De Prueba", "12345")
	d.add("23456", "otro@policialocal.test", "Otro Agente", "secreto")
	return d
}

func (d *fakeDirectory) add(nip, email, name, secret string) {
	d.agents[nip] = &directory.Subject{NIP: nip, Email: email, DisplayName: name, Active: true}
	d.secrets[nip] = secret
}

func (d *fakeDirectory) remove(nip string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.agents, nip)
}

func (d *fakeDirectory) setDown(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.down = v
}

// failIssue makes IssueRefreshToken fail while everything else works.
func (d *fakeDirectory) failIssue(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.noIssue = v
}

func (d *fakeDirectory) findCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finds
}

func (d *fakeDirectory) liveTokens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.refresh)
}

func (d *fakeDirectory) lookup(identifier string) *directory.Subject {
	if s, ok := d.agents[identifier]; ok {
		return s
	}
	for _, s := range d.agents {
		if strings.EqualFold(s.Email, identifier) {
			return s
		}
	}
	return nil
}

func (d *fakeDirectory) FindByIdentifier(_ context.Context, identifier string) (*directory.Subject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finds++
	if d.down {
		return nil, directory.ErrUnavailable
	}
	s := d.lookup(identifier)
	if s == nil {
		return nil, directory.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (d *fakeDirectory) VerifySecret(_ context.Context, nip, secret string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return false, directory.ErrUnavailable
	}
	return d.secrets[nip] == secret, nil
}

func (d *fakeDirectory) IssueRefreshToken(_ context.Context, nip string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down || d.noIssue {
		return "", directory.ErrUnavailable
	}
	d.seq++
	tok := fmt.Sprintf("refresh-%d", d.seq)
	d.refresh[tok] = nip
	return tok, nil
}

func (d *fakeDirectory) RedeemRefreshToken(_ context.Context, token string) (*directory.Subject, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return nil, "", directory.ErrUnavailable
	}
	nip, ok := d.refresh[token]
	if !ok {
		return nil, "", directory.ErrNotFound
	}
	delete(d.refresh, token)
	d.redeemed = append(d.redeemed, token)

	s, ok := d.agents[nip]
	if !ok {
		return nil, "", directory.ErrNotFound
	}
	d.seq++
	next := fmt.Sprintf("refresh-%d", d.seq)
	d.refresh[next] = nip
	cp := *s
	return &cp, next, nil
}

func (d *fakeDirectory) RevokeRefreshToken(_ context.Context, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return directory.ErrUnavailable
	}
	delete(d.refresh, token)
	d.revoked = append(d.revoked, token)
	return nil
}

type fixture struct {
	dir    *fakeDirectory
	repo   *devicestore.SQLiteRepository
	creds  *credentials.Store
	tokens *Tokenizer
	logger logging.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := devicestore.Open(context.Background(), filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := devicestore.NewSQLiteRepository(db)
	tk, err := NewTokenizer([]byte("test-signing-key"), time.Hour)
	require.NoError(t, err)

	return &fixture{
		dir:    newFakeDirectory(),
		repo:   repo,
		creds:  credentials.NewStore(repo),
		tokens: tk,
		logger: logging.New(logging.Options{Level: "error", Output: io.Discard}),
	}
}

// manager simulates a process start: a fresh Manager sharing device storage.
func (f *fixture) manager(opts ...Option) *Manager {
	return NewManager(f.dir, f.creds, f.repo, f.tokens, f.logger, opts...)
}

func (f *fixture) storedToken(t *testing.T) []byte {
	t.Helper()
	raw, err := f.repo.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	return raw
}

func (f *fixture) storedCredential(t *testing.T) *credentials.Credential {
	t.Helper()
	c, err := f.creds.Load(context.Background())
	require.NoError(t, err)
	return c
}

func TestNewManager_StartsAnonymous(t *testing.T) {
	f := newFixture(t)
	st := f.manager().Current()
	assert.Equal(t, Anonymous, st.State)
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.Subject)
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	subject, err := m.Login(context.Background(), "12345", "12345", true)
	require.NoError(t, err)
	assert.Equal(t, "12345", subject.NIP)

	st := m.Current()
	assert.Equal(t, Authenticated, st.State)
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "12345", st.Subject)
	assert.Equal(t, "Agente De Prueba", st.DisplayName)
	assert.NotEmpty(t, st.SessionID)

	tok, err := f.tokens.Parse(string(f.storedToken(t)))
	require.NoError(t, err)
	assert.Equal(t, "12345", tok.Subject)
	assert.Equal(t, st.SessionID, tok.SessionID)

	cred := f.storedCredential(t)
	require.NotNil(t, cred)
	assert.Equal(t, "12345", cred.Identifier)
	assert.NotEqual(t, "12345", cred.Secret, "the password is never stored on the device")
	assert.True(t, cred.Remember)
}

func TestLogin_ByEmailKeepsTypedIdentifier(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	_, err := m.Login(context.Background(), "  agente@policialocal.test ", "12345", true)
	require.NoError(t, err)
	assert.Equal(t, "12345", m.Current().Subject)

	cred := f.storedCredential(t)
	require.NotNil(t, cred)
	assert.Equal(t, "agente@policialocal.test", cred.Identifier)
}

func TestLogin_RememberThenRestart_SilentLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager().Login(context.Background(), "12345", "12345", true)
	require.NoError(t, err)

	m := f.manager()
	assert.True(t, m.TrySilentLogin(context.Background()))
	st := m.Current()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "12345", st.Subject)
}

func TestLogin_UnknownAgent(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	_, err := m.Login(context.Background(), "99999", "12345", true)
	require.ErrorIs(t, err, ErrNotFound)

	assert.False(t, m.Current().IsAuthenticated)
	assert.Equal(t, Anonymous, m.Current().State)
	assert.Nil(t, f.storedCredential(t))
	assert.Nil(t, f.storedToken(t))
}

func TestLogin_WrongSecret(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	_, err := m.Login(context.Background(), "12345", "wrong", true)
	require.ErrorIs(t, err, ErrBadSecret)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.False(t, m.Current().IsAuthenticated)
	assert.Nil(t, f.storedCredential(t))
}

func TestLogin_FailureWhileAuthenticatedClearsEverything(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	remembered := f.storedCredential(t).Secret

	_, err = m.Login(ctx, "12345", "wrong", true)
	require.ErrorIs(t, err, ErrBadSecret)

	assert.Equal(t, Anonymous, m.Current().State)
	assert.Nil(t, f.storedCredential(t))
	assert.Nil(t, f.storedToken(t))
	assert.Contains(t, f.dir.revoked, remembered)
}

func TestLogin_InvalidInput(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	cases := []struct{ name, id, secret string }{
		{"empty identifier", "", "x"},
		{"empty secret", "12345", ""},
		{"malformed identifier", "not an id", "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Login(context.Background(), tc.id, tc.secret, false)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Zero(t, f.dir.findCalls())
}

func TestLogin_WithoutRememberForgetsPreviousCredential(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	require.NotNil(t, f.storedCredential(t))

	_, err = m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)
	assert.Nil(t, f.storedCredential(t))
	assert.Zero(t, f.dir.liveTokens())
	assert.NotNil(t, f.storedToken(t))
}

func TestLogin_SecondIdentifierOverwritesFirst(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	first := f.storedCredential(t).Secret

	_, err = m.Login(ctx, "23456", "secreto", true)
	require.NoError(t, err)

	cred := f.storedCredential(t)
	require.NotNil(t, cred)
	assert.Equal(t, "23456", cred.Identifier)
	assert.Equal(t, "23456", m.Current().Subject)
	assert.Contains(t, f.dir.revoked, first)
	assert.Equal(t, 1, f.dir.liveTokens())
}

func TestLogin_SecondIdentifierForgetsFirstWhenIssueFails(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	first := f.storedCredential(t).Secret

	f.dir.failIssue(true)
	_, err = m.Login(ctx, "23456", "secreto", true)
	require.NoError(t, err)
	assert.Equal(t, "23456", m.Current().Subject)
	assert.Nil(t, f.storedCredential(t))
	assert.Contains(t, f.dir.revoked, first)
	assert.Zero(t, f.dir.liveTokens())

	// once the session token is gone nothing may resume the first agent
	require.NoError(t, f.repo.Delete(ctx, TokenKey))
	restarted := f.manager()
	assert.False(t, restarted.TrySilentLogin(ctx))
	assert.Equal(t, Anonymous, restarted.Current().State)
}

func TestLogin_SecondIdentifierForgetsFirstWhenSaveFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager().Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	first := f.storedCredential(t).Secret

	creds := &failingSave{CredentialStore: f.creds}
	m := NewManager(f.dir, creds, f.repo, f.tokens, f.logger)
	_, err = m.Login(ctx, "23456", "secreto", true)
	require.NoError(t, err)

	assert.Nil(t, f.storedCredential(t))
	assert.Contains(t, f.dir.revoked, first)
	assert.Zero(t, f.dir.liveTokens())
}

type failingSave struct {
	CredentialStore
}

func (failingSave) Save(context.Context, string, string, bool) (bool, error) {
	return false, errors.New("disk full")
}

type failingLoad struct {
	CredentialStore
}

func (failingLoad) Load(context.Context) (*credentials.Credential, error) {
	return nil, errors.New("io error")
}

func TestLogin_RememberLogsUnreadableCredential(t *testing.T) {
	f := newFixture(t)
	var logs bytes.Buffer
	logger := logging.New(logging.Options{Level: "warn", Format: "json", Output: &logs})
	m := NewManager(f.dir, &failingLoad{CredentialStore: f.creds}, f.repo, f.tokens, logger)

	_, err := m.Login(context.Background(), "12345", "12345", true)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "failed to read remembered login")
	assert.Equal(t, "12345", f.storedCredential(t).Identifier)
}

func TestLogin_RepeatedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)
	firstToken := f.storedToken(t)
	firstSession := m.Current().SessionID

	_, err = m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)

	assert.Equal(t, Authenticated, m.Current().State)
	assert.Equal(t, "12345", m.Current().Subject)
	assert.NotEqual(t, firstToken, f.storedToken(t))
	assert.NotEqual(t, firstSession, m.Current().SessionID)
}

func TestLogin_DirectoryOutageRestoresPreviousState(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	before := m.Current()
	token := f.storedToken(t)
	cred := f.storedCredential(t)

	f.dir.setDown(true)
	_, err = m.Login(ctx, "23456", "secreto", true)
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.ErrorIs(t, err, directory.ErrUnavailable)

	assert.Equal(t, before, m.Current())
	assert.Equal(t, token, f.storedToken(t))
	assert.Equal(t, cred.Secret, f.storedCredential(t).Secret)
}

func TestLogin_TokenWriteFailureRestoresPreviousState(t *testing.T) {
	f := newFixture(t)
	failing := &failingTokens{Repository: f.repo}
	m := NewManager(f.dir, f.creds, failing, f.tokens, f.logger)

	_, err := m.Login(context.Background(), "12345", "12345", true)
	require.Error(t, err)
	assert.Equal(t, Anonymous, m.Current().State)
	assert.Nil(t, f.storedCredential(t))
}

type failingTokens struct {
	devicestore.Repository
}

func (failingTokens) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestLogin_LimiterBlocksAfterMaxAttempts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := loginlimit.NewRedisLimiter(client, loginlimit.Config{MaxAttempts: 3, Cooldown: time.Minute})

	f := newFixture(t)
	m := f.manager(WithLimiter(limiter))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Login(ctx, "12345", "wrong", false)
		require.ErrorIs(t, err, ErrBadSecret)
	}

	_, err := m.Login(ctx, "12345", "12345", false)
	require.ErrorIs(t, err, ErrTooManyAttempts)
	assert.False(t, m.Current().IsAuthenticated)

	mr.FastForward(2 * time.Minute)
	_, err = m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)
}

func TestLogin_SuccessResetsLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := loginlimit.NewRedisLimiter(client, loginlimit.Config{MaxAttempts: 2, Cooldown: time.Minute})

	f := newFixture(t)
	m := f.manager(WithLimiter(limiter))
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "wrong", false)
	require.ErrorIs(t, err, ErrBadSecret)
	_, err = m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)

	_, err = m.Login(ctx, "12345", "wrong", false)
	require.ErrorIs(t, err, ErrBadSecret)
	_, err = m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)
}

type brokenLimiter struct{}

func (brokenLimiter) Check(context.Context, string) error { return loginlimit.ErrRedisUnavailable }
func (brokenLimiter) Fail(context.Context, string) error  { return loginlimit.ErrRedisUnavailable }
func (brokenLimiter) Reset(context.Context, string) error { return loginlimit.ErrRedisUnavailable }

func TestLogin_LimiterOutageFailsOpen(t *testing.T) {
	f := newFixture(t)
	m := f.manager(WithLimiter(brokenLimiter{}))

	_, err := m.Login(context.Background(), "12345", "12345", false)
	require.NoError(t, err)
	assert.True(t, m.Current().IsAuthenticated)
}

func TestTrySilentLogin_NothingStored(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	assert.False(t, m.TrySilentLogin(context.Background()))
	assert.Equal(t, Anonymous, m.Current().State)
	assert.Zero(t, f.dir.findCalls())
}

func TestTrySilentLogin_FromTokenWithoutRemember(t *testing.T) {
	f := newFixture(t)
	first := f.manager()
	_, err := first.Login(context.Background(), "12345", "12345", false)
	require.NoError(t, err)

	m := f.manager()
	require.True(t, m.TrySilentLogin(context.Background()))
	assert.Equal(t, first.Current().SessionID, m.Current().SessionID)
}

func TestTrySilentLogin_FromCredentialRotatesRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager().Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	old := f.storedCredential(t).Secret

	// the session token is gone; only the remembered login is left
	require.NoError(t, f.repo.Delete(ctx, TokenKey))

	m := f.manager()
	require.True(t, m.TrySilentLogin(ctx))
	assert.Equal(t, "12345", m.Current().Subject)

	cred := f.storedCredential(t)
	require.NotNil(t, cred)
	assert.NotEqual(t, old, cred.Secret)
	assert.Contains(t, f.dir.redeemed, old)
	assert.NotNil(t, f.storedToken(t))
}

func TestTrySilentLogin_ForgedTokenDeletedWithoutDirectoryCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := NewTokenizer([]byte("someone-else"), time.Hour)
	require.NoError(t, err)
	forged, _, err := other.Mint("12345", "sess")
	require.NoError(t, err)
	require.NoError(t, f.repo.Set(ctx, TokenKey, []byte(forged)))

	m := f.manager()
	assert.False(t, m.TrySilentLogin(ctx))
	assert.Nil(t, f.storedToken(t))
	assert.Zero(t, f.dir.findCalls())
}

func TestTrySilentLogin_GarbageTokenFallsBackToCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager().Login(ctx, "12345", "12345", true)
	require.NoError(t, err)

	require.NoError(t, f.repo.Set(ctx, TokenKey, []byte("\x00garbage")))

	m := f.manager()
	require.True(t, m.TrySilentLogin(ctx))
	assert.Equal(t, "12345", m.Current().Subject)
}

func TestTrySilentLogin_ExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager().Login(ctx, "12345", "12345", false)
	require.NoError(t, err)

	f.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	t.Cleanup(func() { f.tokens.now = time.Now })

	m := f.manager()
	assert.False(t, m.TrySilentLogin(ctx))
	assert.Nil(t, f.storedToken(t))
}

func TestTrySilentLogin_SubjectRemovedClearsRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager().Login(ctx, "12345", "12345", true)
	require.NoError(t, err)

	f.dir.remove("12345")

	m := f.manager()
	assert.False(t, m.TrySilentLogin(ctx))
	assert.Equal(t, Anonymous, m.Current().State)
	assert.Nil(t, f.storedToken(t))
	assert.Nil(t, f.storedCredential(t))
}

func TestTrySilentLogin_OutageKeepsRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager().Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	token := f.storedToken(t)

	f.dir.setDown(true)
	m := f.manager()
	assert.False(t, m.TrySilentLogin(ctx))
	assert.Equal(t, Anonymous, m.Current().State)
	assert.Equal(t, token, f.storedToken(t))
	assert.NotNil(t, f.storedCredential(t))

	f.dir.setDown(false)
	assert.True(t, m.TrySilentLogin(ctx))
}

func TestTrySilentLogin_RevokedRefreshTokenClearsCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager().Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	require.NoError(t, f.repo.Delete(ctx, TokenKey))

	require.NoError(t, f.dir.RevokeRefreshToken(ctx, f.storedCredential(t).Secret))

	m := f.manager()
	assert.False(t, m.TrySilentLogin(ctx))
	assert.Nil(t, f.storedCredential(t))
}

func TestTrySilentLogin_AlreadyAuthenticated(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	_, err := m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)
	calls := f.dir.findCalls()

	assert.True(t, m.TrySilentLogin(ctx))
	assert.Equal(t, calls, f.dir.findCalls())
}

func TestLogout_ClearsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "12345", true)
	require.NoError(t, err)
	remembered := f.storedCredential(t).Secret

	m.Logout(ctx)
	once := m.Current()
	assert.Equal(t, Anonymous, once.State)
	assert.Nil(t, f.storedCredential(t))
	assert.Nil(t, f.storedToken(t))
	assert.Contains(t, f.dir.revoked, remembered)

	m.Logout(ctx)
	assert.Equal(t, once, m.Current())
	assert.Nil(t, f.storedCredential(t))
	assert.Nil(t, f.storedToken(t))

	assert.False(t, f.manager().TrySilentLogin(ctx))
}

func TestLogout_DirectoryDownStillClearsLocally(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, "12345", "12345", true)
	require.NoError(t, err)

	f.dir.setDown(true)
	m.Logout(ctx)

	assert.Equal(t, Anonymous, m.Current().State)
	assert.Nil(t, f.storedCredential(t))
	assert.Nil(t, f.storedToken(t))
}

func TestRevalidate_NotAuthenticated(t *testing.T) {
	f := newFixture(t)
	ok, err := f.manager().Revalidate(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestRevalidate_StillValid(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	_, err := m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)

	ok, err := m.Revalidate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Authenticated, m.Current().State)
}

func TestRevalidate_SubjectRemoved(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	_, err := m.Login(ctx, "12345", "12345", true)
	require.NoError(t, err)

	f.dir.remove("12345")

	ok, err := m.Revalidate(ctx)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, Anonymous, m.Current().State)
	assert.False(t, m.Current().IsAuthenticated)
	assert.Nil(t, f.storedToken(t))
	assert.Nil(t, f.storedCredential(t))
}

func TestRevalidate_OutageKeepsSession(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()
	_, err := m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)

	f.dir.setDown(true)
	ok, err := m.Revalidate(ctx)
	assert.True(t, ok)
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.True(t, m.Current().IsAuthenticated)
	assert.NotNil(t, f.storedToken(t))
}

func TestRevalidate_LogoutInAnotherProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.manager()
	_, err := m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)

	f.manager().Logout(ctx)

	ok, err := m.Revalidate(ctx)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, Anonymous, m.Current().State)
}

func TestRevalidate_TokenExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.manager()
	_, err := m.Login(ctx, "12345", "12345", false)
	require.NoError(t, err)

	f.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	t.Cleanup(func() { f.tokens.now = time.Now })

	ok, err := m.Revalidate(ctx)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrExpired)
	assert.Nil(t, f.storedToken(t))
}

func TestManager_ConcurrentCurrent(t *testing.T) {
	f := newFixture(t)
	m := f.manager()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				st := m.Current()
				if st.IsAuthenticated {
					assert.NotEmpty(t, st.Subject)
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		_, err := m.Login(ctx, "12345", "12345", false)
		require.NoError(t, err)
		_, _ = m.Revalidate(ctx)
		m.Logout(ctx)
	}
	wg.Wait()
}
