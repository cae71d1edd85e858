package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/source"
	"github.com/JonMunkholm/tabdiff/internal/store"
)

// openStore connects to Postgres when a database URL is configured and
// falls back to an in-memory store otherwise.
func openStore(ctx context.Context, migrate bool) (store.Store, error) {
	if !cfg.Database.Enabled() {
		slog.Debug("no database configured, using in-memory store")
		return store.NewMemory(), nil
	}

	pool, err := connect(ctx)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := store.Migrate(pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return store.NewPostgres(pool), nil
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// newService wires the service from configuration.
func newService(st store.Store) (*core.Service, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}

	fetcher := source.New(
		source.WithProfile(cfg.Storage.S3Profile),
		source.WithRegion(cfg.Storage.S3Region),
		source.WithTempDir(cfg.Upload.TempDir),
	)

	return core.NewService(st, core.Options{
		MaxConcurrent:   cfg.Upload.MaxConcurrent,
		MaxWait:         cfg.Upload.MaxWaitTime,
		Timeout:         cfg.Upload.Timeout,
		TaskConcurrency: cfg.Scheduler.MaxConcurrent,
		Fetcher:         fetcher,
		LoadOptions:     opts,
	}), nil
}

// withService opens the store, runs fn and closes the store.
func withService(ctx context.Context, fn func(*core.Service) error) error {
	st, err := openStore(ctx, cfg.Database.Migrate)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := newService(st)
	if err != nil {
		return err
	}
	return fn(svc)
}
