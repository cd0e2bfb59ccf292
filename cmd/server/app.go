package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskboard/internal/config"
	"github.com/phrazzld/taskboard/internal/platform/filestore"
	"github.com/phrazzld/taskboard/internal/platform/postgres"
	"github.com/phrazzld/taskboard/internal/store"
	"github.com/phrazzld/taskboard/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil when the file store driver is configured.
	db *sql.DB

	taskStore store.TaskStore
	registry  *task.Registry
	board     *task.Board
}

// newApplication creates a new application instance with all dependencies
// initialized: the persistence backend chosen by configuration, the handler
// registry, and a started task board.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := app.setupStore(ctx); err != nil {
		return nil, err
	}

	app.registry = task.NewRegistry()
	if err := registerBuiltinHandlers(app.registry, logger); err != nil {
		return nil, fmt.Errorf("failed to register task handlers: %w", err)
	}
	logger.Info("task handlers registered", "types", app.registry.Types())

	app.board = task.NewBoard(app.taskStore, app.registry, task.Config{
		WorkerCount:           cfg.Board.WorkerCount,
		DefaultTimeoutSeconds: cfg.Board.DefaultTimeoutSeconds,
		DefaultMaxRetries:     cfg.Board.DefaultMaxRetries,
		SweepInterval:         cfg.Board.SweepInterval,
		GracePeriod:           cfg.Board.GracePeriod,
		RetentionAge:          cfg.Board.RetentionAge,
		CleanupInterval:       cfg.Board.CleanupInterval,
	}, logger)

	if err := app.board.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task board: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupStore selects and initializes the persistence backend.
func (app *application) setupStore(ctx context.Context) error {
	switch app.config.Store.Driver {
	case "file":
		fs, err := filestore.New(app.config.Store.Dir)
		if err != nil {
			return fmt.Errorf("failed to initialize file store: %w", err)
		}
		app.taskStore = fs
		app.logger.Info("file store initialized", "dir", app.config.Store.Dir)
		return nil

	case "postgres":
		db, err := postgres.Open(ctx, app.config.Store.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		app.db = db
		app.taskStore = postgres.NewTaskStore(db)
		app.logger.Info("postgres store initialized")
		return nil

	default:
		return fmt.Errorf("unknown store driver %q", app.config.Store.Driver)
	}
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.board != nil {
		app.board.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
