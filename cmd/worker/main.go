package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/CallLogCSV/internal/config"
	"github.com/dharsanguruparan/CallLogCSV/internal/database"
	"github.com/dharsanguruparan/CallLogCSV/internal/export"
	"github.com/dharsanguruparan/CallLogCSV/internal/logging"
	"github.com/dharsanguruparan/CallLogCSV/internal/repository"
	"github.com/dharsanguruparan/CallLogCSV/internal/s3storage"
	"github.com/dharsanguruparan/CallLogCSV/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opt := logging.FromEnv()
	if opt.Service == "" {
		opt.Service = "calllog-worker"
	}
	logging.Init(opt)
	logger := logging.Get()

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

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Workers,
		Logger:      worker.NewAsynqLogger(logging.Named("asynq")),
	})
	exporter := export.New(repository.NewCallRepository(pool), formatter, logging.Named("export"))
	processor := worker.NewProcessor(repository.NewExportRepository(pool), exporter, store, logging.Named("worker"))
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info().Int("concurrency", cfg.Workers).Msg("worker started")
	if err := server.Run(mux); err != nil {
		logger.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
}
