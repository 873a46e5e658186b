// Package main is the entry point for the Omnigo API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/omnigo/internal/api"
	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/auth"
	"github.com/dharsanguruparan/omnigo/internal/config"
	"github.com/dharsanguruparan/omnigo/internal/database"
	"github.com/dharsanguruparan/omnigo/internal/dispatch"
	"github.com/dharsanguruparan/omnigo/internal/logger"
	"github.com/dharsanguruparan/omnigo/internal/processing"
	"github.com/dharsanguruparan/omnigo/internal/queue"
	"github.com/dharsanguruparan/omnigo/internal/s3storage"
	"github.com/dharsanguruparan/omnigo/internal/signing"
	"github.com/dharsanguruparan/omnigo/internal/simulate"
	"github.com/dharsanguruparan/omnigo/internal/storage"
	"github.com/dharsanguruparan/omnigo/internal/summary"
)

func main() {
	// Step 1: configuration, then logging so everything after is structured.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Step 2: the archive lives in Postgres when configured, in memory
	// otherwise.
	var store archive.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fatal("connect database", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			fatal("ensure schema", err)
		}
		store = archive.NewPGStore(pool)
	} else {
		store = archive.NewMemoryStore(archive.SeedJobs())
	}

	// Step 3: deliveries go through Redis when a worker is deployed, through
	// the in-process pool otherwise.
	rnd := simulate.NewSource(cfg.Workflow.RandomSeed)
	courier := dispatch.NewCourier(store, rnd, dispatch.CourierConfig{
		Delay:       cfg.Workflow.DeliveryDelay,
		FailureRate: cfg.Workflow.DeliveryFailure,
	})
	var dispatcher dispatch.Dispatcher
	if cfg.QueueEnabled() {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		dispatcher = queue.NewDispatcher(client)
	} else {
		pool := processing.New(courier, cfg.ProcessingPool)
		pool.Start(ctx)
		dispatcher = pool
	}

	costs, err := summary.NewCostModel(cfg.Pricing)
	if err != nil {
		fatal("pricing", err)
	}
	reporter := summary.NewReporter(costs, nil)
	recorder := dispatch.NewRecorder(store, dispatcher)
	signer := signing.NewSigner(cfg.SigningSecret)

	deps := api.Deps{
		Sessions: storage.NewMemoryStore(api.SessionFactory(cfg, rnd, reporter, recorder)),
		Archive:  store,
		Reporter: reporter,
		Signer:   signer,
		Verifier: auth.NewVerifier(cfg.AuthSecret),
	}
	if cfg.ObjectStoreEnabled() {
		objects, err := s3storage.New(cfg)
		if err != nil {
			fatal("init object store", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			fatal("ensure bucket", err)
		}
		deps.Artifacts = objects
	} else {
		local := storage.NewArtifactStore(signer, "/download")
		deps.Artifacts = local
		deps.Local = local
	}

	// Step 4: block until the HTTP server exits.
	if err := api.New(cfg, deps).Run(ctx); err != nil {
		fatal("server stopped", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
