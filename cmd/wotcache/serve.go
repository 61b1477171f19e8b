package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wotcache/internal/api"
	"wotcache/internal/api/handlers"
	"wotcache/internal/banner"
	"wotcache/internal/config"
	"wotcache/internal/database"
	"wotcache/internal/ingestion"

	"github.com/pterm/pterm"
)

func serve(ctx context.Context, cfg *config.Config, logger *pterm.Logger) error {
	banner.Print()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.collector.Start(time.Second)

	purge := database.NewPurgeService(a.db, a.repo, logger, database.PurgeConfig{
		RetentionDays: cfg.Purge.RetentionDays,
		CheckInterval: cfg.Purge.CheckInterval,
		RunAt:         cfg.Purge.RunAt,
		Vacuum:        cfg.Purge.Vacuum,
	})
	purge.Start()
	defer purge.Stop()

	if cfg.Prewarm.File != "" {
		go prewarm(ctx, a, cfg.Prewarm, logger)
	}

	router := api.NewRouter(api.Handlers{
		Reputation: handlers.NewReputationHandler(a.cache, a.calc, logger),
		Widget:     handlers.NewWidgetHandler(a.cache, a.calc, logger),
		Realtime:   handlers.NewRealtimeHandler(a.collector, logger, cfg.Server.MaxSSEConnections),
		System: handlers.NewSystemHandler(
			a.repo,
			func() (int64, error) { return database.FileSize(a.db) },
			purge,
			logger,
			cfg.Database.Path,
			cfg.Cache.ExpirationDays,
		),
	}, logger, cfg.Server.Production)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		IdleTimeout:       cfg.Server.WriteTimeout,
		// No WriteTimeout: /api/v1/stats/stream is long-lived.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.Args(
			"address", srv.Addr,
			"database", cfg.Database.Path,
			"expiration_days", cfg.Cache.ExpirationDays,
			"geoip", a.geoIP.IsEnabled(),
		))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", logger.Args("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func prewarm(ctx context.Context, a *app, cfg config.PrewarmConfig, logger *pterm.Logger) {
	p := ingestion.NewPrewarmer(a.cache, logger, cfg.Concurrency)
	if cfg.Watch {
		if err := p.Watch(ctx, cfg.File); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Prewarm watcher stopped", logger.Args("file", cfg.File, "error", err))
		}
		return
	}
	if _, err := p.WarmFile(ctx, cfg.File); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Prewarm failed", logger.Args("file", cfg.File, "error", err))
	}
}
