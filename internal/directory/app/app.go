// Package app bootstraps the agent directory: it applies the schema
// migrations and optionally seeds the test agent.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/policonsole/internal/directory/config"
	"github.com/dmitrijs2005/policonsole/internal/directory/repositories/repomanager"
	"github.com/dmitrijs2005/policonsole/internal/directory/services"
	"github.com/dmitrijs2005/policonsole/internal/logging"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	manager repomanager.RepositoryManager
	agents  *services.AgentService
}

// NewApp opens the directory database described by c.
func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{Level: c.LogLevel, Format: c.LogFormat})

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	return New(c, db, repomanager.NewPostgresRepositoryManager(), logger), nil
}

// New assembles an App from already opened dependencies.
func New(c *config.Config, db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, opts ...services.Option) *App {
	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		manager: m,
		agents:  services.NewAgentService(db, m, c.RefreshTokenValidityDuration, opts...),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema and seeds the test agent when configured to.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "Migrating directory schema...")
	if err := app.manager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	if !app.config.SeedTestAgent {
		app.logger.Info(ctx, "Directory ready")
		return nil
	}

	if err := app.agents.SeedTestAgent(ctx); err != nil {
		return err
	}
	app.logger.Info(ctx, "Directory ready", "test_agent", services.TestAgentNIP)
	return nil
}

// Close releases the database handle.
func (app *App) Close() error {
	return app.db.Close()
}
