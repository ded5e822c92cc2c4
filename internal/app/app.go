package app

import (
	"context"
	"fmt"
	"io"

	"wageflow/internal/config"
	"wageflow/internal/logger"
	"wageflow/internal/secret"
	"wageflow/internal/service"
	"wageflow/internal/storage"

	// Registers the delimited file source.
	_ "wageflow/internal/etl/sources"
)

// App holds the open store and the pipeline service for one process.
// It is created once per command and closed when the command returns.
type App struct {
	Config    *config.Config
	Log       logger.Logger
	Store     *storage.Store
	Pipelines *service.PipelineService
}

// NewLogger builds the process logger from the log section. Output goes to
// w, which is stderr outside of tests.
func NewLogger(cfg config.LogConfig, w io.Writer) logger.Logger {
	lc := logger.DefaultConfig()
	lc.Level = logger.LogLevel(cfg.Level)
	lc.JSON = cfg.JSON
	if w != nil {
		lc.Output = w
	}
	return logger.NewLogger(lc)
}

// New opens the store and wires the pipeline service. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, secrets *secret.Resolver) (*App, error) {
	log := logger.FromContext(ctx)

	if secrets == nil {
		secrets = secret.NewResolver()
	}
	password, err := secrets.Resolve(cfg.Store.PasswordSecret)
	if err != nil {
		return nil, fmt.Errorf("store password: %w", err)
	}

	conn := cfg.Store.Connection()
	store, err := storage.Open(ctx, conn, password)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Debug("store opened", "driver", conn.Driver, "host", conn.Host, "database", conn.Database)

	svc := service.NewPipelineService(store, cfg.Pipeline(), service.LogEmitter{}, service.Options{
		Timeout:  cfg.Timeout,
		Schedule: cfg.Trigger.Schedule,
		Watch:    cfg.Trigger.Watch,
		Debounce: cfg.Trigger.Debounce,
		Columns:  cfg.MergedColumns(),
	})

	return &App{
		Config:    cfg,
		Log:       log,
		Store:     store,
		Pipelines: svc,
	}, nil
}

// Close stops triggers and closes the store.
func (a *App) Close() error {
	a.Pipelines.Stop()
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
