// Package main is the entry point for the CallLogCSV HTTP API. In Go every
// executable program must define package main and a main() function, while
// libraries use other package names.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/CallLogCSV/internal/api"
	"github.com/dharsanguruparan/CallLogCSV/internal/config"
	"github.com/dharsanguruparan/CallLogCSV/internal/database"
	"github.com/dharsanguruparan/CallLogCSV/internal/export"
	"github.com/dharsanguruparan/CallLogCSV/internal/logging"
	"github.com/dharsanguruparan/CallLogCSV/internal/processing"
	"github.com/dharsanguruparan/CallLogCSV/internal/queue"
	"github.com/dharsanguruparan/CallLogCSV/internal/repository"
	"github.com/dharsanguruparan/CallLogCSV/internal/s3storage"
	"github.com/dharsanguruparan/CallLogCSV/internal/worker"
)

func main() {
	// Create a context that cancels when SIGINT/SIGTERM arrive. Context is
	// Go's mechanism for cancellation and deadline propagation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opt := logging.FromEnv()
	if opt.Service == "" {
		opt.Service = "calllog-api"
	}
	logging.Init(opt)
	logger := logging.Get()

	// Load configuration from the environment (Go prefers returning values
	// plus errors rather than throwing exceptions).
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	formatter, err := cfg.Formatter()
	if err != nil {
		logger.Fatal().Err(err).Msg("init formatter")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("ensure schema")
	}

	store, err := s3storage.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("init storage")
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ensure bucket")
	}

	calls := repository.NewCallRepository(pool)
	exports := repository.NewExportRepository(pool)

	var enqueuer queue.Enqueuer
	if cfg.InProcess() {
		// Exports run on local goroutines; no Redis or separate worker needed.
		exporter := export.New(calls, formatter, logging.Named("export"))
		processor := worker.NewProcessor(exports, exporter, store, logging.Named("worker"))
		local := processing.New(processor.Handler(), cfg.Workers, logging.Named("processing"),
			processing.WithAbandon(processor.Abandon))
		local.Start(ctx)
		defer local.Wait()
		enqueuer = local
	} else {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		enqueuer = client
	}

	srv := api.New(cfg, formatter, calls, exports, store, enqueuer, logging.Named("api"))
	// Block until the HTTP server exits.
	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
