package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/bnema/walletsync/internal/adapters/api"
	filekv "github.com/bnema/walletsync/internal/adapters/kv/file"
	sqlitekv "github.com/bnema/walletsync/internal/adapters/kv/sqlite"
	"github.com/bnema/walletsync/internal/adapters/notify"
	"github.com/bnema/walletsync/internal/application"
	"github.com/bnema/walletsync/internal/config"
	"github.com/bnema/walletsync/internal/ports"
	"github.com/bnema/walletsync/internal/telemetry"
)

type app struct {
	service  *application.Service
	sessions *application.SessionStore
	cache    *application.Cache
	cfg      config.Config
	logger   *slog.Logger
	closers  []func() error
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewRotatingLogger(cfg.LogFile, telemetry.ParseLevel(cfg.LogLevel))

	var (
		kv      ports.KVStore
		closers []func() error
	)
	switch cfg.Storage {
	case config.StorageSQLite:
		store, err := sqlitekv.Open(filepath.Join(cfg.DataDir, "walletsync.db"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		kv = store
		closers = append(closers, store.Close)
	case config.StorageFile:
		kv = filekv.NewStore(filepath.Join(cfg.DataDir, "kv"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	client, err := api.NewClient(api.Config{
		BaseURL: cfg.BaseURL,
		Timeouts: api.Timeouts{
			Auth:     cfg.AuthTimeout,
			Metadata: cfg.MetadataTimeout,
			Upload:   cfg.UploadTimeout,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire api client: %w", err)
	}

	sessions := application.NewSessionStore(kv, client, nil, logger)
	client.SetTokenSource(sessions)
	sessions.Restore(context.Background())

	var notifier ports.Notifier = notify.NewLog(logger)
	if cfg.NotifySpool != "" {
		notifier = notify.NewSpool(cfg.NotifySpool)
	}

	cache := application.NewCache(kv, nil, logger)
	service := application.NewService(
		sessions,
		cache,
		application.NewPoller(logger),
		client,
		notifier,
		logger,
		application.ServiceConfig{
			PollInterval:    cfg.PollInterval,
			PollMaxAttempts: cfg.PollMaxAttempts,
			TickCategories:  cfg.TickCategories,
		},
	)

	return &app{
		service:  service,
		sessions: sessions,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		closers:  closers,
	}, nil
}

// close drains background cache work before releasing the store, so a
// one-shot invocation does not exit with a refresh half-written.
func (a *app) close() error {
	a.cache.Flush()

	var errs []error
	for _, close := range a.closers {
		if err := close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
