package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mbaxter/skimmer/internal/models"
)

// ContentStore persists processed content items into per-family tables.
// Articles, videos and episodes live in separate tables sharing one shape;
// the owning source's type decides which table an item lands in.
type ContentStore struct {
	db *DB
}

func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

func tableForType(sourceType models.SourceType) (string, error) {
	switch sourceType {
	case models.SourceTypeSyndication, models.SourceTypeWebsite, models.SourceTypeNewsletter:
		return "articles", nil
	case models.SourceTypeVideoChannel, models.SourceTypeVideoItem:
		return "videos", nil
	case models.SourceTypePodcast:
		return "episodes", nil
	default:
		return "", fmt.Errorf("no content table for source type %q", sourceType)
	}
}

// ExistingDedupKeys returns which of the given keys are already stored for
// the source, resolved in a single query.
func (s *ContentStore) ExistingDedupKeys(ctx context.Context, source models.Source, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return existing, nil
	}

	table, err := tableForType(source.Type)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT dedup_key FROM %s WHERE source_id = $1 AND dedup_key = ANY($2)`, table)
	rows, err := s.db.QueryContext(ctx, query, source.ID, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query existing dedup keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan dedup key: %w", err)
		}
		existing[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dedup keys: %w", err)
	}
	return existing, nil
}

// UpsertContentItem inserts or updates one item and reports whether a new
// row was created. xmax = 0 distinguishes an insert from a conflict update.
func (s *ContentStore) UpsertContentItem(ctx context.Context, source models.Source, item models.ProcessedContentItem) (bool, error) {
	table, err := tableForType(source.Type)
	if err != nil {
		return false, err
	}

	metadata := item.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return false, fmt.Errorf("marshal item metadata: %w", err)
	}

	var duration sql.NullInt64
	if item.Media.DurationSeconds > 0 {
		duration = sql.NullInt64{Int64: int64(item.Media.DurationSeconds), Valid: true}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, source_id, dedup_key,
			url, title, content, excerpt, author, published_at,
			media_type, media_url, thumbnail_url, duration_seconds,
			metadata, created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, NOW(), NOW()
		)
		ON CONFLICT (source_id, dedup_key) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			excerpt = EXCLUDED.excerpt,
			author = EXCLUDED.author,
			published_at = EXCLUDED.published_at,
			media_type = EXCLUDED.media_type,
			media_url = EXCLUDED.media_url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			duration_seconds = EXCLUDED.duration_seconds,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`, table)

	var created bool
	err = s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		source.ID,
		item.DedupKey(),
		item.URL,
		item.Title,
		nullString(item.Content),
		nullString(item.Excerpt),
		nullString(item.Author),
		item.PublishedAt,
		string(item.Media.Type),
		nullString(item.Media.URL),
		nullString(item.Media.ThumbnailURL),
		duration,
		metadataJSON,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert content item %s: %w", item.URL, err)
	}
	return created, nil
}

// CountItems reports how many rows the source currently owns.
func (s *ContentStore) CountItems(ctx context.Context, source models.Source) (int, error) {
	table, err := tableForType(source.Type)
	if err != nil {
		return 0, err
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE source_id = $1`, table)
	if err := s.db.QueryRowContext(ctx, query, source.ID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count content items: %w", err)
	}
	return count, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
