package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Config holds database configuration
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "skimmer",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DB wraps the sql.DB connection
type DB struct {
	*sql.DB
	config Config
}

// New creates a new database connection
func New(config Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, config.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, config: config}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationSources,
		migrationArticles,
		migrationVideos,
		migrationEpisodes,
		migrationIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationSources = `
CREATE TABLE IF NOT EXISTS sources (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    url VARCHAR(2048) NOT NULL UNIQUE,
    type VARCHAR(30) NOT NULL,
    title VARCHAR(512),
    feed_url VARCHAR(2048) NOT NULL,
    favicon_url VARCHAR(2048),
    last_fetched_at TIMESTAMPTZ,
    fetch_error TEXT,
    fetch_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
`

const migrationArticles = `
CREATE TABLE IF NOT EXISTS articles (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    source_id UUID NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    dedup_key VARCHAR(2048) NOT NULL,
    url VARCHAR(2048) NOT NULL,
    title VARCHAR(1024) NOT NULL,
    content TEXT,
    excerpt TEXT,
    author VARCHAR(255),
    published_at TIMESTAMPTZ NOT NULL,
    media_type VARCHAR(20),
    media_url VARCHAR(2048),
    thumbnail_url VARCHAR(2048),
    duration_seconds INTEGER,
    metadata JSONB DEFAULT '{}',
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE(source_id, dedup_key)
);
`

const migrationVideos = `
CREATE TABLE IF NOT EXISTS videos (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    source_id UUID NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    dedup_key VARCHAR(2048) NOT NULL,
    url VARCHAR(2048) NOT NULL,
    title VARCHAR(1024) NOT NULL,
    content TEXT,
    excerpt TEXT,
    author VARCHAR(255),
    published_at TIMESTAMPTZ NOT NULL,
    media_type VARCHAR(20),
    media_url VARCHAR(2048),
    thumbnail_url VARCHAR(2048),
    duration_seconds INTEGER,
    metadata JSONB DEFAULT '{}',
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE(source_id, dedup_key)
);
`

const migrationEpisodes = `
CREATE TABLE IF NOT EXISTS episodes (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    source_id UUID NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    dedup_key VARCHAR(2048) NOT NULL,
    url VARCHAR(2048) NOT NULL,
    title VARCHAR(1024) NOT NULL,
    content TEXT,
    excerpt TEXT,
    author VARCHAR(255),
    published_at TIMESTAMPTZ NOT NULL,
    media_type VARCHAR(20),
    media_url VARCHAR(2048),
    thumbnail_url VARCHAR(2048),
    duration_seconds INTEGER,
    metadata JSONB DEFAULT '{}',
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE(source_id, dedup_key)
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_sources_type ON sources(type);
CREATE INDEX IF NOT EXISTS idx_sources_last_fetched ON sources(last_fetched_at);

CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source_id);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC);
CREATE INDEX IF NOT EXISTS idx_videos_source ON videos(source_id);
CREATE INDEX IF NOT EXISTS idx_videos_published ON videos(published_at DESC);
CREATE INDEX IF NOT EXISTS idx_episodes_source ON episodes(source_id);
CREATE INDEX IF NOT EXISTS idx_episodes_published ON episodes(published_at DESC);
`
