package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/config"
	"github.com/dharsanguruparan/omnigo/internal/database"
	"github.com/dharsanguruparan/omnigo/internal/dispatch"
	"github.com/dharsanguruparan/omnigo/internal/logger"
	"github.com/dharsanguruparan/omnigo/internal/simulate"
	"github.com/dharsanguruparan/omnigo/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// The worker updates the same archive the API reads, so it needs Postgres.
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		slog.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	courier := dispatch.NewCourier(archive.NewPGStore(pool), simulate.NewSource(cfg.Workflow.RandomSeed), dispatch.CourierConfig{
		Delay:       cfg.Workflow.DeliveryDelay,
		FailureRate: cfg.Workflow.DeliveryFailure,
	})

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.ProcessingPool,
	})
	mux := worker.NewProcessor(courier).Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	slog.Info("worker started", "redis", cfg.RedisAddr, "concurrency", cfg.ProcessingPool)
	if err := server.Run(mux); err != nil {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
