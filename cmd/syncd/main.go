package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbaxter/skimmer/internal/cache"
	"github.com/mbaxter/skimmer/internal/config"
	"github.com/mbaxter/skimmer/internal/database"
	"github.com/mbaxter/skimmer/internal/ingest"
	"github.com/mbaxter/skimmer/internal/logging"
	"github.com/mbaxter/skimmer/internal/ratelimit"
	"github.com/mbaxter/skimmer/internal/sources"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	dbConfig := database.DefaultConfig()
	dbConfig.Host = cfg.Database.Host
	dbConfig.Port = cfg.Database.Port
	dbConfig.User = cfg.Database.User
	dbConfig.Password = cfg.Database.Password
	dbConfig.Database = cfg.Database.Database
	dbConfig.SSLMode = cfg.Database.SSLMode

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Error("Failed to connect to database", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("Failed to run migrations", logging.WithField("error", err.Error()))
		os.Exit(1)
	}

	// Initialize cache backend
	var detectCache cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		logger.Info("Using Redis cache backend", logging.WithField("addr", cfg.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, cfg.Cache.TTL)
		if err != nil {
			logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			memory := cache.NewMemory(cfg.Cache.TTL)
			defer memory.Stop()
			detectCache = memory
		} else {
			defer redisCache.Close()
			detectCache = redisCache
		}
	default:
		logger.Info("Using in-memory cache backend")
		memory := cache.NewMemory(cfg.Cache.TTL)
		defer memory.Stop()
		detectCache = memory
	}

	limiter := ratelimit.New(cfg.Fetch.RateLimitDur)
	handlerConfig := sources.HandlerConfig{
		FetchTimeout: cfg.Fetch.FeedTimeout,
		PageTimeout:  cfg.Fetch.PageTimeout,
		ProbeTimeout: cfg.Fetch.ProbeTimeout,
		UserAgent:    cfg.Fetch.UserAgent,
	}
	registry := sources.NewDefaultRegistry(limiter, handlerConfig, detectCache, logger)

	sourceStore := database.NewSourceStore(db)
	contentStore := database.NewContentStore(db)

	syncer := ingest.New(registry, sourceStore, contentStore, ingest.Config{
		RecencyWindow: cfg.Sync.RecencyWindow,
		MaxItems:      cfg.Sync.MaxItems,
		BatchSize:     cfg.Sync.BatchSize,
	}, logger)

	daemon := newDaemon(syncer, sourceStore, cfg.Sync, logger)

	if cfg.Sync.Once {
		daemon.sweep(ctx)
		return
	}
	daemon.run(ctx)
}
