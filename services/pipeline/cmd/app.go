package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jobmart/common/cache"
	"jobmart/common/cache/memory"
	"jobmart/common/cache/redis"
	"jobmart/common/telemetry"
	"jobmart/services/pipeline/internal/aggregator"
	"jobmart/services/pipeline/internal/checkpoint"
	"jobmart/services/pipeline/internal/config"
	"jobmart/services/pipeline/internal/events"
	"jobmart/services/pipeline/internal/loader"
	"jobmart/services/pipeline/internal/normalizer"
	"jobmart/services/pipeline/internal/pipeline"
	"jobmart/services/pipeline/internal/store"
)

const (
	serviceName    = "jobmart-pipeline"
	serviceVersion = "1.0.0"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.LogFormat, "development") {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build(zap.Fields(zap.String("service", serviceName)))
}

type tracing struct{}

// newTracing exports spans only when a collector is configured; otherwise
// the global no-op provider stays in place.
func newTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*tracing, error) {
	if cfg.OTelCollectorURL == "" {
		return &tracing{}, nil
	}
	shutdown, err := telemetry.InitTracer(context.Background(), serviceName, serviceVersion, cfg.OTelCollectorURL)
	if err != nil {
		return nil, err
	}
	logger.Info("tracing enabled", zap.String("collector", cfg.OTelCollectorURL))
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return shutdown(ctx) }})
	return &tracing{}, nil
}

func newStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	s, err := store.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return s.Close() }})
	return s, nil
}

func newCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) cache.Cache {
	opts := cache.DefaultOptions()
	opts.DefaultTTL = cfg.CheckpointTTL

	var c cache.Cache
	if cfg.RedisAddr != "" {
		opts.RedisURL = cfg.RedisAddr
		opts.RedisPassword = cfg.RedisPassword
		opts.RedisDB = cfg.RedisDB
		rc := redis.New(opts)
		lc.Append(fx.Hook{OnStart: rc.Ping})
		c = rc
		logger.Info("checkpoints stored in redis", zap.String("addr", cfg.RedisAddr))
	} else {
		c = memory.New(opts)
		logger.Info("REDIS_ADDR not set, checkpoints kept in memory for this process")
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return c.Close() }})
	return c
}

func newCheckpoints(c cache.Cache, cfg *config.Config) *checkpoint.Store {
	return checkpoint.New(c, cfg.CheckpointTTL)
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	p, err := events.NewPublisher(cfg.NATSURL, cfg.NATSConnTimeout, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		p.Close()
		return nil
	}})
	return p, nil
}

func newSource(lc fx.Lifecycle, cfg *config.Config) (loader.Source, error) {
	src, err := loader.NewSource(context.Background(), cfg.DataSource, cfg.GCSCredentialsFile)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return src.Close() }})
	return src, nil
}

func newLoader(src loader.Source, cfg *config.Config, logger *zap.Logger) *loader.Loader {
	return loader.New(src, cfg.LoadConcurrency, logger)
}

func newNormalizer(cfg *config.Config, logger *zap.Logger) *normalizer.Normalizer {
	return normalizer.New(normalizer.Options{
		CoercionPolicy: cfg.CoercionPolicy,
		DimensionMerge: cfg.DimensionMerge,
	}, logger)
}

// newRunner depends on tracing so the tracer provider is installed before
// the first span starts.
func newRunner(
	_ *tracing,
	l *loader.Loader,
	n *normalizer.Normalizer,
	a *aggregator.Aggregator,
	s store.Store,
	cp *checkpoint.Store,
	pub events.Publisher,
	logger *zap.Logger,
) *pipeline.Runner {
	return pipeline.NewRunner(l, n, a, s, cp, pub, logger)
}

func newApp(cfg *config.Config, targets ...any) *fx.App {
	return fx.New(
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			newTracing,
			newStore,
			newCache,
			newCheckpoints,
			newPublisher,
			newSource,
			newLoader,
			newNormalizer,
			aggregator.New,
			newRunner,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Populate(targets...),
	)
}

// withApp starts an application holding targets, runs fn and stops the
// application again, whatever fn returned.
func withApp(ctx context.Context, cfg *config.Config, fn func(context.Context) error, targets ...any) (err error) {
	app := newApp(cfg, targets...)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := app.Stop(context.Background()); stopErr != nil && err == nil {
			err = stopErr
		}
	}()
	return fn(ctx)
}
