package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/policonsole/internal/console/authgate"
	"github.com/dmitrijs2005/policonsole/internal/console/config"
	"github.com/dmitrijs2005/policonsole/internal/console/credentials"
	"github.com/dmitrijs2005/policonsole/internal/console/devicestore"
	"github.com/dmitrijs2005/policonsole/internal/console/session"
	"github.com/dmitrijs2005/policonsole/internal/directory"
	"github.com/dmitrijs2005/policonsole/internal/directory/repositories/repomanager"
	"github.com/dmitrijs2005/policonsole/internal/directory/services"
	"github.com/dmitrijs2005/policonsole/internal/loginlimit"
	"github.com/dmitrijs2005/policonsole/internal/logging"
	"github.com/dmitrijs2005/policonsole/internal/records"
	"github.com/dmitrijs2005/policonsole/internal/validation"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ session.UserDirectory = (*services.AgentService)(nil)

// sessions is the part of session.Manager the console drives.
type sessions interface {
	authgate.Sessions
	Login(ctx context.Context, identifier, secret string, remember bool) (*directory.Subject, error)
	Logout(ctx context.Context)
}

type recoverer interface {
	ResetPassword(ctx context.Context, nip, email string) (string, error)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	sessions sessions
	gate     *authgate.Gate
	recovery recoverer
	stats    records.Repository
	validate *validation.Validator
	reader   *bufio.Reader
	out      io.Writer
	closers  []io.Closer
}

// NewApp opens device storage and the directory connection and assembles the
// session stack described by c.
func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	logger := logging.New(logging.Options{Level: c.LogLevel, Format: c.LogFormat})

	deviceDB, err := devicestore.Open(ctx, c.DeviceDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing device storage: %w", err)
	}

	directoryDB, err := sql.Open("pgx", c.DirectoryDSN)
	if err != nil {
		_ = deviceDB.Close()
		return nil, fmt.Errorf("db open error: %w", err)
	}

	kv := devicestore.NewSQLiteRepository(deviceDB)

	key := []byte(c.SessionSecret)
	if len(key) == 0 {
		if key, err = session.DeviceSigningKey(ctx, kv); err != nil {
			_ = deviceDB.Close()
			_ = directoryDB.Close()
			return nil, err
		}
	}

	tokenizer, err := session.NewTokenizer(key, c.SessionTTL)
	if err != nil {
		_ = deviceDB.Close()
		_ = directoryDB.Close()
		return nil, err
	}

	agents := services.NewAgentService(directoryDB, repomanager.NewPostgresRepositoryManager(), c.RefreshTokenTTL)
	limiter := loginlimit.New(c.RedisAddr, loginlimit.Config{
		MaxAttempts: c.MaxLoginAttempts,
		Cooldown:    c.LoginCooldown,
	})

	manager := session.NewManager(agents, credentials.NewStore(kv), kv, tokenizer, logger,
		session.WithLimiter(limiter),
		session.WithDirectoryTimeout(c.DirectoryTimeout),
	)

	a := newApp(c, logger, manager, agents, records.NewPostgresRepository(directoryDB), os.Stdin, os.Stdout)
	a.closers = append(a.closers, deviceDB, directoryDB)
	if cl, ok := limiter.(io.Closer); ok {
		a.closers = append(a.closers, cl)
	}
	return a, nil
}

func newApp(c *config.Config, logger logging.Logger, s sessions, r recoverer, stats records.Repository, in io.Reader, out io.Writer) *App {
	return &App{
		config:   c,
		logger:   logger,
		sessions: s,
		gate:     authgate.New(s),
		recovery: r,
		stats:    stats,
		validate: validation.New(),
		reader:   bufio.NewReader(in),
		out:      &lockedWriter{w: out},
	}
}

// Run restores a remembered session, starts the revalidation watcher and
// blocks in the REPL until the operator exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	fmt.Fprintln(a.out, "Police records console (type 'help' for commands)")

	if a.sessions.TrySilentLogin(ctx) {
		fmt.Fprintf(a.out, "Welcome back, %s\n", a.sessions.Current().DisplayName)
	}

	go a.StartRevalidationWatcher(ctx, a.config.RevalidateInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

// Close releases storage handles. Errors are logged.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) isLoggedIn() bool {
	return a.sessions.Current().IsAuthenticated
}

func (a *App) getStatus() string {
	st := a.sessions.Current()
	if !st.IsAuthenticated {
		return "(anonymous)"
	}
	return fmt.Sprintf("(%s %s)", st.Subject, st.DisplayName)
}

// StartRevalidationWatcher re-checks the session every interval and tells the
// operator when it has expired. It returns when ctx is cancelled.
func (a *App) StartRevalidationWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.revalidateOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) revalidateOnce(ctx context.Context) {
	if !a.isLoggedIn() {
		return
	}
	if _, err := a.sessions.Revalidate(ctx); errors.Is(err, session.ErrExpired) {
		fmt.Fprintf(a.out, "\n%s\n", authgate.SessionExpired.Message())
	}
}
