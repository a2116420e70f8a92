package main

import (
	"context"
	"fmt"
	"maps"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/user/livecast-service/internal/adapter/chromedp_crawler"
	"github.com/user/livecast-service/internal/adapter/httpfetch"
	"github.com/user/livecast-service/internal/adapter/postgres"
	redis_adapter "github.com/user/livecast-service/internal/adapter/redis"
	"github.com/user/livecast-service/internal/channel"
	"github.com/user/livecast-service/internal/extractor"
	"github.com/user/livecast-service/internal/proxy"
	"github.com/user/livecast-service/internal/repository"
	"github.com/user/livecast-service/internal/snapshot"
	"github.com/user/livecast-service/internal/usecase"
	"github.com/user/livecast-service/pkg/config"
	"github.com/user/livecast-service/pkg/logger"
	"github.com/user/livecast-service/pkg/metrics"
	"go.uber.org/zap"
)

// app holds everything a command needs. Close releases it in reverse order.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	channels *channel.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    *snapshot.Store
	runner   *usecase.CycleRunner
	failures repository.ChannelFailureRepository

	closers []func()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load config: %w", err)
	}
	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, l, nil
}

func loadChannels(cfg *config.Config) (*channel.Store, error) {
	return channel.Load(cfg.ChannelsFile, extractor.Known)
}

func newApp(ctx context.Context, cfg *config.Config, l *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: l}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg

	channels, err := loadChannels(cfg)
	if err != nil {
		return err
	}
	a.channels = channels
	a.logger.Info("channels loaded", zap.String("file", cfg.ChannelsFile), zap.Int("count", channels.Len()))

	// --- Metrics ---
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	// --- Fetcher ---
	fetcher, err := a.newFetcher()
	if err != nil {
		return err
	}

	// --- Optional persistence ---
	namespace := cfg.ChannelsFile + "|" + channels.GroupTitle()
	var (
		cache repository.SnapshotCache
		lock  repository.CycleLock
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, func() { rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("unable to connect to redis: %w", err)
		}
		cache = redis_adapter.NewSnapshotCache(rdb, namespace, 0)
		lock = redis_adapter.NewCycleLock(rdb, namespace)
		a.logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	}
	if cfg.PostgresURL != "" {
		db, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		repo := postgres.NewChannelFailureRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		a.failures = repo
		a.logger.Info("postgres connection pool established")
	}

	// --- Use cases ---
	policy := usecase.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Metrics:     a.metrics,
	}
	a.store = snapshot.NewStore()
	a.runner = usecase.NewCycleRunner(usecase.CycleRunnerConfig{
		Channels:     channels.All(),
		GroupTitle:   channels.GroupTitle(),
		Orchestrator: usecase.NewOrchestrator(fetcher, policy, cfg.CrawlWorkers, a.logger),
		Store:        a.store,
		Cache:        cache,
		Failures:     a.failures,
		Lock:         lock,
		Interval:     cfg.CrawlInterval,
		CycleTimeout: cfg.CycleTimeout,
		LockTTL:      cfg.CycleLockTTL,
		Metrics:      a.metrics,
		Logger:       a.logger,
	})
	return nil
}

func (a *app) newFetcher() (repository.StreamFetcher, error) {
	cfg := a.cfg

	extractors, err := extractor.NewRegistry(cfg.Extractor, extractor.Options{
		Host:           cfg.StreamHost,
		RequiredParams: cfg.StreamParamList(),
	})
	if err != nil {
		return nil, err
	}

	rotation, err := proxy.NewManager(cfg.ProxyList(), cfg.UserAgentList())
	if err != nil {
		return nil, err
	}

	headers := httpfetch.BrowserHeaders(cfg.Referer)
	extra, err := httpfetch.LoadHeaders(cfg.HeadersFile)
	if err != nil {
		return nil, err
	}
	maps.Copy(headers, extra)

	switch cfg.FetchMode {
	case "http", "":
		return httpfetch.New(httpfetch.Options{
			Timeout:   cfg.FetchTimeout,
			RateLimit: cfg.RateLimit,
			Headers:   headers,
			Rotation:  rotation,
		}, extractors, a.logger)
	case "browser":
		f, err := chromedp_crawler.NewChromedpFetcher(chromedp_crawler.Options{
			Timeout:   cfg.FetchTimeout,
			RateLimit: cfg.RateLimit,
			Headers:   headers,
			Rotation:  rotation,
		}, extractors, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, f.Close)
		return f, nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q (want http or browser)", cfg.FetchMode)
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
