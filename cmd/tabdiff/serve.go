package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the task scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"compare_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"scheduler_enabled", cfg.Scheduler.Enabled,
	)

	st, err := openStore(ctx, cfg.Database.Migrate)
	if err != nil {
		return err
	}
	defer st.Close()

	service, err := newService(st)
	if err != nil {
		return err
	}

	if cfg.Catalog.SeedOnStart {
		cat, err := core.SeedCatalog(cfg.Catalog.SeedPath)
		if err != nil {
			return err
		}
		if _, err := service.SeedMappings(ctx, cat); err != nil {
			return err
		}
	}

	// Background jobs stop with the signal context
	if cfg.Scheduler.Enabled {
		go service.StartScheduler(ctx, core.SchedulerConfig{
			Interval:      cfg.Scheduler.Interval,
			MaxConcurrent: cfg.Scheduler.MaxConcurrent,
		})
	}

	server := web.NewServer(service, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := service.Limiter().Status(); status.Active > 0 {
		slog.Info("waiting for comparisons to complete", "active", status.Active)
		if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("comparisons did not complete in time", "error", err)
		} else {
			slog.Info("all comparisons completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
