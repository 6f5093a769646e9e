package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/ativushq/ativus-backend/internal/config"
	"github.com/ativushq/ativus-backend/internal/database"
	"github.com/ativushq/ativus-backend/internal/document"
	"github.com/ativushq/ativus-backend/internal/embedding"
	"github.com/ativushq/ativus-backend/internal/queue"
	"github.com/ativushq/ativus-backend/internal/queue/workers"
	"github.com/ativushq/ativus-backend/internal/storage"
	"github.com/ativushq/ativus-backend/internal/vectorstore"
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

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		logger.Error("failed to configure embedding provider", "error", err)
		os.Exit(1)
	}

	store := storage.NewSupabaseStorage(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	docSvc := document.NewService(db, store, cfg.Supabase.StorageBucket, cfg.LegacyBuckets())
	vectors := vectorstore.NewStore(db)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	chunksWorker := workers.NewChunksWorker(
		docSvc, store, vectors, embedder,
		cfg.Supabase.StorageBucket, cfg.LegacyBuckets(), logger,
	)
	registry.Register(queue.TypeChunksRebuild, asynq.HandlerFunc(chunksWorker.ProcessTask))

	logger.Info("starting worker", "concurrency", 4)
	if err := srv.Run(registry.Mux()); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
}
