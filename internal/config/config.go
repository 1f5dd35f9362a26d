package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Sync     SyncConfig
	Fetch    FetchConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// SyncConfig holds content synchronization tunables
type SyncConfig struct {
	Interval      time.Duration
	RecencyWindow time.Duration
	MaxItems      int
	BatchSize     int
	Once          bool
}

// FetchConfig holds outbound HTTP settings for source handlers
type FetchConfig struct {
	FeedTimeout  time.Duration
	PageTimeout  time.Duration
	ProbeTimeout time.Duration
	UserAgent    string
	RateLimitDur time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	cfg := &Config{}

	// Define flags with defaults
	syncInterval := flag.Duration("sync-interval", 15*time.Minute, "Delay between sync sweeps over due sources")
	recencyWindow := flag.Duration("recency-window", 24*time.Hour, "Age cutoff for incremental syncs")
	maxItems := flag.Int("max-items", 25, "Maximum items processed per source per sync")
	batchSize := flag.Int("batch-size", 5, "Items upserted concurrently per batch")
	syncOnce := flag.Bool("once", false, "Run a single sync sweep and exit")
	feedTimeout := flag.Duration("feed-timeout", 10*time.Second, "Timeout for feed fetches")
	pageTimeout := flag.Duration("page-timeout", 5*time.Second, "Timeout for HTML page fetches")
	probeTimeout := flag.Duration("probe-timeout", 2*time.Second, "Timeout per conventional feed path probe")
	userAgent := flag.String("user-agent", "Skimmer/1.0 (+https://skimmer.app/bot)", "User-Agent for outbound requests")
	rateLimitDur := flag.Duration("rate-limit", time.Second, "Minimum delay between requests to same host")
	cacheTTL := flag.Duration("cache-ttl", 30*time.Minute, "Cache TTL for detection results")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "skimmer", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.Parse()

	// Apply environment variable overrides
	applyEnvOverrides(syncInterval, recencyWindow, maxItems, batchSize, syncOnce,
		feedTimeout, pageTimeout, probeTimeout, userAgent, rateLimitDur,
		cacheTTL, cacheBackend, redisAddr, logLevel,
		dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	cfg.Sync = SyncConfig{
		Interval:      *syncInterval,
		RecencyWindow: *recencyWindow,
		MaxItems:      *maxItems,
		BatchSize:     *batchSize,
		Once:          *syncOnce,
	}

	cfg.Fetch = FetchConfig{
		FeedTimeout:  *feedTimeout,
		PageTimeout:  *pageTimeout,
		ProbeTimeout: *probeTimeout,
		UserAgent:    *userAgent,
		RateLimitDur: *rateLimitDur,
	}

	cfg.Cache = CacheConfig{
		Backend:       *cacheBackend,
		TTL:           *cacheTTL,
		RedisAddr:     *redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
	}

	cfg.Database = DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	return cfg
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func applyEnvOverrides(
	syncInterval *time.Duration,
	recencyWindow *time.Duration,
	maxItems *int,
	batchSize *int,
	syncOnce *bool,
	feedTimeout *time.Duration,
	pageTimeout *time.Duration,
	probeTimeout *time.Duration,
	userAgent *string,
	rateLimitDur *time.Duration,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	logLevel *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
) {
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*syncInterval = d
		}
	}
	if v := os.Getenv("SYNC_RECENCY_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*recencyWindow = d
		}
	}
	if v := os.Getenv("SYNC_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*maxItems = n
		}
	}
	if v := os.Getenv("SYNC_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*batchSize = n
		}
	}
	if v := os.Getenv("SYNC_ONCE"); v == "true" || v == "1" {
		*syncOnce = true
	}
	if v := os.Getenv("FEED_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*feedTimeout = d
		}
	}
	if v := os.Getenv("PAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*pageTimeout = d
		}
	}
	if v := os.Getenv("PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*probeTimeout = d
		}
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		*userAgent = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*rateLimitDur = d
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
}
