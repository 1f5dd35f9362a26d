package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbaxter/skimmer/internal/models"
)

// SourceStore persists registered sources in Postgres.
type SourceStore struct {
	db *DB
}

func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

// CreateSource inserts a new source, assigning an ID when the caller did not.
func (s *SourceStore) CreateSource(ctx context.Context, source *models.Source) error {
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, url, type, title, feed_url, favicon_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		source.ID,
		source.URL,
		string(source.Type),
		nullString(source.Title),
		source.FeedURL,
		nullString(source.FaviconURL),
		source.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (s *SourceStore) GetSource(ctx context.Context, id string) (*models.Source, error) {
	row := s.db.QueryRowContext(ctx, sourceSelect+` WHERE id = $1`, id)
	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", id, err)
	}
	return source, nil
}

func (s *SourceStore) GetSourceByURL(ctx context.Context, url string) (*models.Source, error) {
	row := s.db.QueryRowContext(ctx, sourceSelect+` WHERE url = $1`, url)
	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source by url: %w", err)
	}
	return source, nil
}

func (s *SourceStore) ListSources(ctx context.Context) ([]models.Source, error) {
	rows, err := s.db.QueryContext(ctx, sourceSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()
	return collectSources(rows)
}

// ListSourcesDueForSync returns sources never fetched or last fetched more
// than maxAge ago. Newsletter sources are excluded: their content arrives by
// mail ingestion, not polling.
func (s *SourceStore) ListSourcesDueForSync(ctx context.Context, maxAge time.Duration) ([]models.Source, error) {
	cutoff := time.Now().Add(-maxAge)
	rows, err := s.db.QueryContext(ctx, sourceSelect+`
		WHERE type <> $1 AND (last_fetched_at IS NULL OR last_fetched_at < $2)
		ORDER BY last_fetched_at NULLS FIRST
	`, string(models.SourceTypeNewsletter), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due sources: %w", err)
	}
	defer rows.Close()
	return collectSources(rows)
}

// UpdateSourceStatus records a sync attempt. A success clears any prior fetch
// error and bumps the fetch counter; a failure preserves the counter and
// stores the error text.
func (s *SourceStore) UpdateSourceStatus(ctx context.Context, id string, status models.SourceStatus) error {
	var err error
	if status.Success {
		_, err = s.db.ExecContext(ctx, `
			UPDATE sources
			SET last_fetched_at = $2, fetch_error = NULL, fetch_count = fetch_count + 1
			WHERE id = $1
		`, id, status.FetchedAt)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE sources
			SET last_fetched_at = $2, fetch_error = $3
			WHERE id = $1
		`, id, status.FetchedAt, status.FetchError)
	}
	if err != nil {
		return fmt.Errorf("update source status %s: %w", id, err)
	}
	return nil
}

// UpdateSourceTitle sets the display title, typically after detection
// suggested one the user accepted.
func (s *SourceStore) UpdateSourceTitle(ctx context.Context, id, title string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE sources SET title = $2 WHERE id = $1`, id, title); err != nil {
		return fmt.Errorf("update source title %s: %w", id, err)
	}
	return nil
}

func (s *SourceStore) DeleteSource(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete source %s: %w", id, err)
	}
	return nil
}

const sourceSelect = `
	SELECT id, url, type, title, feed_url, favicon_url, last_fetched_at, fetch_error, fetch_count, created_at
	FROM sources`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSource(row rowScanner) (*models.Source, error) {
	var source models.Source
	var sourceType string
	var title, faviconURL, fetchError sql.NullString
	var lastFetchedAt sql.NullTime

	if err := row.Scan(
		&source.ID,
		&source.URL,
		&sourceType,
		&title,
		&source.FeedURL,
		&faviconURL,
		&lastFetchedAt,
		&fetchError,
		&source.FetchCount,
		&source.CreatedAt,
	); err != nil {
		return nil, err
	}

	source.Type = models.SourceType(sourceType)
	if title.Valid {
		source.Title = title.String
	}
	if faviconURL.Valid {
		source.FaviconURL = faviconURL.String
	}
	if lastFetchedAt.Valid {
		t := lastFetchedAt.Time
		source.LastFetchedAt = &t
	}
	if fetchError.Valid {
		source.FetchError = fetchError.String
	}
	return &source, nil
}

func collectSources(rows *sql.Rows) ([]models.Source, error) {
	sources := make([]models.Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}
