package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/creator-studio/internal/credential"
	"github.com/yungbote/creator-studio/internal/data/db"
	"github.com/yungbote/creator-studio/internal/observability"
	"github.com/yungbote/creator-studio/internal/platform/logger"
	"github.com/yungbote/creator-studio/internal/studio"
)

type Options struct {
	ConfigPath string
	DataDir    string
	// Host overrides the key-selection host; nil picks one from config.
	Host credential.Host
}

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Studio   studio.Service
	Metrics  *observability.Metrics

	store         *db.SQLiteService
	shutdownTrace func(context.Context) error
}

func New(ctx context.Context, opts Options) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "production"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Debug("Loading configuration...")
	cfg, err := LoadConfig(log, opts.ConfigPath, opts.DataDir)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	shutdownTrace := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv())

	store, err := db.NewSQLiteService(log, cfg.DBPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	theDB := store.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(theDB, log)
	metrics := observability.NewMetrics()

	host := opts.Host
	if host == nil && cfg.Interactive {
		host = credential.NewTerminalHost()
	}
	serviceset := wireServices(log, cfg, host, reposet, clients, metrics)

	a := &App{
		Log:           log,
		DB:            theDB,
		Cfg:           cfg,
		Repos:         reposet,
		Clients:       clients,
		Services:      serviceset,
		Studio:        serviceset.Studio,
		Metrics:       metrics,
		store:         store,
		shutdownTrace: shutdownTrace,
	}
	if _, err := a.Studio.RestoreSession(ctx); err != nil {
		log.Warn("Stored session could not be restored", "error", err)
	}
	return a, nil
}

// Close flushes traces and closes the store. Safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.shutdownTrace != nil {
		if err := a.shutdownTrace(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		a.shutdownTrace = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sqlite: %w", err))
		}
		a.store = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return errors.Join(errs...)
}
