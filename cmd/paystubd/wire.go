package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/async"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/ocr"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/ocr/tesseract"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/repository"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/server"
)

// app holds the long-lived dependencies shared by serve and analyze.
type app struct {
	cfg     common.Config
	logger  *slog.Logger
	proc    *core.Processor
	store   repository.AnalysisStore
	archive repository.ReportArchive

	redis *redis.Client
	db    *sql.DB
	pool  *pgxpool.Pool
}

func newProviders(cfg common.OCRConfig, logger *slog.Logger) []ocr.Provider {
	return []ocr.Provider{
		ocr.NewDocIntelProvider(ocr.DocIntelConfig{
			Endpoint:     cfg.DocIntel.Endpoint,
			APIKey:       cfg.DocIntel.APIKey,
			Model:        cfg.DocIntel.Model,
			APIVersion:   cfg.DocIntel.APIVersion,
			PollInterval: cfg.DocIntel.PollInterval,
			MaxRetries:   cfg.DocIntel.MaxRetries,
		}, nil, logger),
		ocr.NewVisionProvider(ocr.VisionConfig{
			APIKey:     cfg.Vision.APIKey,
			BaseURL:    cfg.Vision.BaseURL,
			Model:      cfg.Vision.Model,
			MaxRetries: cfg.Vision.MaxRetries,
			Timeout:    cfg.Vision.Timeout,
		}, logger),
		ocr.NewPDFTextProvider(ocr.PDFTextConfig{Binary: cfg.PDFText.Binary}, nil, logger),
		tesseract.New(tesseract.Config{
			Languages:   cfg.Tesseract.Languages,
			TessdataDir: cfg.Tesseract.TessdataDir,
		}, logger),
	}
}

// newApp opens the state store and, when configured, the report archive,
// then builds the processor on top of them.
func newApp(ctx context.Context, cfg common.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Redis.URL != "" {
		client, err := repository.OpenRedis(ctx, cfg.Redis.URL, logger)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.store = repository.NewRedisStore(client, cfg.Redis, logger)
	} else {
		a.store = repository.NewMemoryStore(cfg.Redis.TTL, logger)
		logger.Info("analysis state kept in memory")
	}

	var opts []core.ProcessorOption
	if cfg.Database.Driver != "" {
		db, pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db, a.pool = db, pool
		archive := repository.NewSQLArchive(db, cfg.Database.Driver, logger)
		if err := archive.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate report archive: %w", err)
		}
		a.archive = archive
		opts = append(opts, core.WithArchive(archive))
	}

	coordinator := ocr.NewCoordinator(logger, newProviders(cfg.OCR, logger)...)
	a.proc = core.NewProcessor(logger, cfg, coordinator, a.store, opts...)
	return a, nil
}

func (a *app) newQueue() (async.Queue, error) {
	q := a.cfg.Queue
	switch q.Backend {
	case async.BackendAsynq:
		aq, err := async.NewAsynqQueue(async.AsynqConfig{
			RedisURL:    a.cfg.Redis.URL,
			Queue:       q.Name,
			Concurrency: q.Workers,
			MaxRetry:    q.MaxRetry,
			Timeout:     q.ProcessTimeout,
		}, a.proc, a.logger)
		if err != nil {
			return nil, err
		}
		if err := aq.Start(); err != nil {
			return nil, fmt.Errorf("start asynq server: %w", err)
		}
		return aq, nil
	default:
		return async.NewProcessorQueue(a.proc, a.logger,
			async.WithWorkers(q.Workers),
			async.WithQueueSize(q.Size),
			async.WithProcessTimeout(q.ProcessTimeout),
		), nil
	}
}

// readiness returns one check per external dependency in use.
func (a *app) readiness() []server.Option {
	var opts []server.Option
	if a.redis != nil {
		opts = append(opts, server.WithReadinessCheck("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}))
	}
	if a.db != nil {
		opts = append(opts, server.WithReadinessCheck("database", func(ctx context.Context) error {
			return repository.HealthCheck(ctx, a.db, 2*time.Second, a.logger)
		}))
	}
	return opts
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", "error", err)
		}
	}
	if a.db != nil {
		repository.Close(a.db, a.pool, a.logger)
	}
}
