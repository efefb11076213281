package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/hkjc-advisor/internal/config"
	"github.com/yourusername/hkjc-advisor/internal/ipc"
	"github.com/yourusername/hkjc-advisor/internal/metrics"
	"github.com/yourusername/hkjc-advisor/internal/scheduler"
	"github.com/yourusername/hkjc-advisor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the IPC channels over HTTP and WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// Load AWS secrets if enabled
	secretsCtx, cancelSecrets := context.WithTimeout(parent, 30*time.Second)
	err := config.LoadSecretsFromAWS(secretsCtx, cfg)
	cancelSecrets()
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := config.ValidateEnvironment(cfg); err != nil {
		return fmt.Errorf("invalid configuration for %s: %w", cfg.App.Environment, err)
	}

	logger.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     Version,
	}).Info("HKJC advisor starting")

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	eng := newEngine()
	router := ipc.NewRouter(eng, logger)

	sched := scheduler.NewScheduler(logger)
	if cache := eng.Cache(); cache != nil {
		if err := sched.ScheduleCacheMaintenance(cfg.Cache.MaintenanceSchedule, cache); err != nil {
			return fmt.Errorf("failed to schedule cache maintenance: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		logger.WithField("next_run", sched.GetNextRun()).Info("Advice cache maintenance scheduled")
	}

	if cfg.Server.AuthToken == "" && !cfg.IsDevelopment() {
		logger.WithField("environment", cfg.App.Environment).Warn("IPC server accepts unauthenticated requests")
	}

	srv := server.NewServer(server.Config{
		ServiceName:     cfg.App.Name,
		Version:         Version,
		Commit:          GitCommit,
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:     time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		AuthToken:       cfg.Server.AuthToken,
		MaxPayloadBytes: cfg.Server.MaxPayloadBytes,
		EnableMetrics:   cfg.Metrics.Enabled,
		Logger:          logger,
		Router:          router,
	})

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"addr":          cfg.ServerAddr(),
		"cache_enabled": cfg.Cache.Enabled,
		"auth_required": cfg.Server.AuthToken != "",
	}).Info("HKJC advisor is running")

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	if err := srv.Shutdown(); err != nil {
		logger.WithError(err).Error("Error during server shutdown")
	}
	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping scheduler")
		}
	}

	logger.Info("HKJC advisor shutdown complete")
	return nil
}
