package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ativushq/ativus-backend/internal/api"
	"github.com/ativushq/ativus-backend/internal/audit"
	"github.com/ativushq/ativus-backend/internal/config"
	"github.com/ativushq/ativus-backend/internal/database"
	"github.com/ativushq/ativus-backend/internal/embedding"
	"github.com/ativushq/ativus-backend/internal/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// Redis backs the job queue and readiness checks. The API still serves
	// without it, minus background reprocessing.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, background jobs disabled", "error", err)
	}
	defer rdb.Close()

	auditCfg, err := audit.LoadConfig(cfg.Audit.ConfigPath)
	if err != nil {
		logger.Error("failed to load audit checklist", "path", cfg.Audit.ConfigPath, "error", err)
		os.Exit(1)
	}
	logger.Info("audit checklist loaded",
		"items", len(auditCfg.Items), "config_hash", auditCfg.Hash, "engine", auditCfg.Engine)

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		logger.Error("failed to configure embedding provider", "error", err)
		os.Exit(1)
	}

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	router := api.NewRouter(db, rdb, cfg, logger)
	handler := router.Setup(auditCfg, embedder, queueClient)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}
	logger.Info("server stopped")
}
