package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/httpserver"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/scheduler"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger
	logger.Info("Starting volunteer hub...")

	sessions := services.NewSessionManager(a.dataSource, a.cache, a.policy, services.SessionSettings{
		PreloadDelay: cfg.Preload.JobDelay,
		WarmOnStart:  cfg.Session.WarmOnStart,
	}, logger, a.metrics)
	defer sessions.Close()

	catalog := services.NewCatalogService(a.dataSource, a.cache, cfg.Cache.CoalesceMisses, logger)

	// A nil sweeper means Redis owns expiry; the sweep job is skipped.
	var sweeper scheduler.Sweeper
	if a.sweeper != nil {
		sweeper = a.sweeper
	}
	sched, err := scheduler.New(scheduler.Config{
		SweepSpec:   cfg.Scheduler.SweepSpec,
		EvictSpec:   cfg.Scheduler.EvictSpec,
		IdleTimeout: cfg.Session.IdleTimeout,
	}, sweeper, sessions, logger)
	if err != nil {
		return err
	}
	sched.Start()

	server := httpserver.NewServer(&httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.JWT.Secret,
		JWTAudience:    cfg.JWT.Audience,
	}, logger, httpserver.ServerDeps{
		Sessions:       sessions,
		Catalog:        catalog,
		RateLimiter:    a.limiter,
		Metrics:        a.metrics,
		Gatherer:       a.registry,
		HealthCheckers: a.checkers,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	sched.Stop(shutdownCtx)

	logger.Info("Server exited")
	return nil
}
