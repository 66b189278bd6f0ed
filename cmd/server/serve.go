package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/webhook-receiver/internal/api"
	"github.com/Priya8975/webhook-receiver/internal/config"
	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/Priya8975/webhook-receiver/internal/engine"
	"github.com/Priya8975/webhook-receiver/internal/store"
	"github.com/Priya8975/webhook-receiver/internal/worker"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize PostgreSQL
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("creating postgres store: %w", err)
	}
	defer pgStore.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = pgStore.Ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}
	logger.Info("connected to PostgreSQL")

	if cfg.MigrateOnStart {
		status, err := store.RunMigrations(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("database migrations applied", "version", status.Version, "dirty", status.Dirty)
	}

	checks := map[string]api.Pinger{"postgres": pgStore}

	var (
		processor api.WebhookProcessor
		events    *api.EventHandler
		pool      *worker.Pool
	)
	if cfg.Webhook.Mode == domain.ModeProcessing {
		rs, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rs.Close()
		logger.Info("connected to Redis")
		checks["redis"] = rs

		p, workers, err := buildProcessor(ctx, cfg, pgStore, rs, logger)
		if err != nil {
			return err
		}
		defer workers.Stop()
		processor, pool = p, workers
		events = api.NewEventHandler(pgStore)
	}

	webhooks, err := api.NewWebhookHandler(cfg.Webhook.Mode, processor, logger.With("component", "webhooks"))
	if err != nil {
		return err
	}
	router := api.NewRouter(webhooks, api.NewHealthHandler(cfg.Webhook.Mode, checks), events)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "webhook_mode", cfg.Webhook.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if pool != nil {
		pool.Stop()
	}

	logger.Info("server stopped")
	return nil
}

// buildProcessor wires the processing-mode pipeline and starts its workers.
func buildProcessor(ctx context.Context, cfg *config.Config, pg *store.PostgresStore, rs *store.RedisStore, logger *slog.Logger) (*engine.Processor, *worker.Pool, error) {
	verifier, err := engine.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring signature verifier: %w", err)
	}

	registry := engine.NewRegistry(logger.With("component", "registry"))
	engine.RegisterDefaultHandlers(registry, logger.With("component", "handlers"))

	pool := worker.NewPool(cfg.NumWorkers, registry, logger.With("component", "worker"))
	pool.Start(context.WithoutCancel(ctx))

	dedupe := engine.NewDeduplicator(rs.Client(), cfg.Webhook.DedupeTTL, logger.With("component", "dedupe"))
	processor := engine.NewProcessor(verifier, dedupe, pg, pool, logger.With("component", "processor"))

	return processor, pool, nil
}
