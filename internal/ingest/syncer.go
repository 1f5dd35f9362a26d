// Package ingest drives sources through fetch, filter, dedup and batched
// upsert, with per-source failure isolation. It is not a scheduler: an
// external caller decides when and how often each source syncs.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mbaxter/skimmer/internal/logging"
	"github.com/mbaxter/skimmer/internal/models"
	"github.com/mbaxter/skimmer/internal/sources"
)

// HandlerResolver yields the handler owning a source type.
// *sources.Registry satisfies it.
type HandlerResolver interface {
	HandlerFor(sourceType models.SourceType) (sources.Handler, bool)
}

// SourceStatusStore records the outcome of sync attempts.
type SourceStatusStore interface {
	UpdateSourceStatus(ctx context.Context, id string, status models.SourceStatus) error
}

// ContentStore is the narrow write contract the syncer needs.
type ContentStore interface {
	ExistingDedupKeys(ctx context.Context, source models.Source, keys []string) (map[string]bool, error)
	UpsertContentItem(ctx context.Context, source models.Source, item models.ProcessedContentItem) (bool, error)
}

// Config bounds the work one sync invocation may do
type Config struct {
	// RecencyWindow drops items older than this on incremental runs
	RecencyWindow time.Duration
	// MaxItems caps candidates per source per run
	MaxItems int
	// BatchSize bounds concurrent upserts
	BatchSize int
}

// DefaultConfig returns the production bounds
func DefaultConfig() Config {
	return Config{
		RecencyWindow: 24 * time.Hour,
		MaxItems:      25,
		BatchSize:     5,
	}
}

// Options tune a single sync invocation
type Options struct {
	// Backfill disables the recency window and, unless MaxItems is set,
	// the item cap. Used for first-time ingestion of a new source.
	Backfill bool
	// MaxItems overrides the configured cap when positive
	MaxItems int
	// OnItem is invoked once per settled item, after its batch completes
	OnItem func(item models.ProcessedContentItem, created bool)
	// OnSourceComplete is invoked by SyncSources after each source settles
	OnSourceComplete func(source models.Source, result models.SyncResult)
}

// Syncer runs the per-source ingestion pipeline
type Syncer struct {
	handlers HandlerResolver
	statuses SourceStatusStore
	content  ContentStore
	config   Config
	logger   *logging.Logger
}

func New(handlers HandlerResolver, statuses SourceStatusStore, content ContentStore, config Config, logger *logging.Logger) *Syncer {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Syncer{
		handlers: handlers,
		statuses: statuses,
		content:  content,
		config:   config,
		logger:   logger,
	}
}

// SyncSource runs one source through the full pipeline. A fetch or parse
// failure is recorded on the source and ends the cycle cleanly; retry is the
// caller's concern. The source status is updated on success even when no
// items were new, so lastFetchedAt always reflects the latest attempt.
func (s *Syncer) SyncSource(ctx context.Context, source models.Source, opts Options) models.SyncResult {
	handler, ok := s.handlers.HandlerFor(source.Type)
	if !ok {
		return s.fail(ctx, source, fmt.Sprintf("no handler for source type %q", source.Type))
	}

	feedURL := source.FeedURL
	if feedURL == "" {
		feedURL = source.URL
	}

	feed, err := handler.FetchFeed(ctx, feedURL)
	if err != nil {
		return s.fail(ctx, source, err.Error())
	}
	if feed == nil {
		return s.fail(ctx, source, "feed fetch returned no result")
	}

	candidates := s.selectCandidates(source, feed.Items, opts)

	keys := make([]string, len(candidates))
	for i, item := range candidates {
		keys[i] = item.DedupKey()
	}
	existing, err := s.content.ExistingDedupKeys(ctx, source, keys)
	if err != nil {
		return s.fail(ctx, source, fmt.Sprintf("dedup check: %v", err))
	}

	s.logger.Debug("Sync candidates resolved", logging.WithFields(map[string]interface{}{
		"source":     source.URL,
		"candidates": len(candidates),
		"known":      len(existing),
	}))

	// Incremental runs skip already-known items so polling never rewrites
	// the same rows every cycle; the batched existence check is what makes
	// that a single round-trip. Backfill writes everything, doubling as a
	// refresh pass over stored content. A key that appears between the
	// check and the write conflicts on upsert and settles as an update.
	writes := candidates
	if !opts.Backfill {
		writes = make([]models.ProcessedContentItem, 0, len(candidates)-len(existing))
		for i, item := range candidates {
			if !existing[keys[i]] {
				writes = append(writes, item)
			}
		}
	}

	var added, updated int
	for start := 0; start < len(writes); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(writes) {
			end = len(writes)
		}

		batchAdded, batchUpdated := s.upsertBatch(ctx, source, writes[start:end], opts.OnItem)
		added += batchAdded
		updated += batchUpdated
	}

	status := models.SourceStatus{FetchedAt: time.Now(), Success: true}
	if err := s.statuses.UpdateSourceStatus(ctx, source.ID, status); err != nil {
		s.logger.Warn("Failed to record sync success", logging.WithFields(map[string]interface{}{
			"source": source.URL,
			"error":  err.Error(),
		}))
	}

	s.logger.Info("Source synced", logging.WithFields(map[string]interface{}{
		"source":  source.URL,
		"added":   added,
		"updated": updated,
	}))

	return models.SyncResult{Success: true, ArticlesAdded: added, ArticlesUpdated: updated}
}

// SyncSources runs each source through SyncSource, tallying totals. One
// source's failure never stops iteration over the rest.
func (s *Syncer) SyncSources(ctx context.Context, sourceList []models.Source, opts Options) models.SyncResult {
	var total models.SyncResult
	total.Success = true
	failures := 0

	for _, source := range sourceList {
		result := s.SyncSource(ctx, source, opts)
		total.ArticlesAdded += result.ArticlesAdded
		total.ArticlesUpdated += result.ArticlesUpdated
		if !result.Success {
			failures++
		}
		if opts.OnSourceComplete != nil {
			opts.OnSourceComplete(source, result)
		}
	}

	if failures > 0 {
		total.Success = false
		total.Error = fmt.Sprintf("%d of %d sources failed", failures, len(sourceList))
	}
	return total
}

// selectCandidates filters, windows, caps and de-duplicates the fetched
// items. Podcast items without a resolvable media asset are dropped; feeds
// occasionally list episodes before their audio is published.
func (s *Syncer) selectCandidates(source models.Source, items []models.ProcessedContentItem, opts Options) []models.ProcessedContentItem {
	limit := s.config.MaxItems
	if opts.MaxItems > 0 {
		limit = opts.MaxItems
	} else if opts.Backfill {
		limit = 0
	}

	var cutoff time.Time
	if !opts.Backfill && s.config.RecencyWindow > 0 {
		cutoff = time.Now().Add(-s.config.RecencyWindow)
	}

	seen := make(map[string]bool)
	candidates := make([]models.ProcessedContentItem, 0, len(items))
	for _, item := range items {
		if item.URL == "" || item.Title == "" {
			continue
		}
		if source.Type == models.SourceTypePodcast && item.Media.URL == "" {
			continue
		}
		if !cutoff.IsZero() && item.PublishedAt.Before(cutoff) {
			continue
		}
		key := item.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		candidates = append(candidates, item)
		if limit > 0 && len(candidates) >= limit {
			break
		}
	}
	return candidates
}

type upsertResult struct {
	item    models.ProcessedContentItem
	created bool
	err     error
}

// upsertBatch issues the batch's upserts concurrently and settles them all
// before returning. A failed upsert is logged and skipped, not counted.
func (s *Syncer) upsertBatch(ctx context.Context, source models.Source, batch []models.ProcessedContentItem, onItem func(models.ProcessedContentItem, bool)) (added, updated int) {
	var wg sync.WaitGroup
	results := make(chan upsertResult, len(batch))

	for _, item := range batch {
		wg.Add(1)
		go func(item models.ProcessedContentItem) {
			defer wg.Done()
			created, err := s.content.UpsertContentItem(ctx, source, item)
			results <- upsertResult{item: item, created: created, err: err}
		}(item)
	}

	wg.Wait()
	close(results)

	for result := range results {
		if result.err != nil {
			s.logger.Warn("Failed to upsert item", logging.WithFields(map[string]interface{}{
				"source": source.URL,
				"item":   result.item.URL,
				"error":  result.err.Error(),
			}))
		} else if result.created {
			added++
		} else {
			updated++
		}
		if onItem != nil {
			onItem(result.item, result.err == nil && result.created)
		}
	}
	return added, updated
}

// fail records the error on the source and converts it into a failed result
func (s *Syncer) fail(ctx context.Context, source models.Source, message string) models.SyncResult {
	s.logger.Warn("Source sync failed", logging.WithFields(map[string]interface{}{
		"source": source.URL,
		"error":  message,
	}))

	status := models.SourceStatus{FetchedAt: time.Now(), FetchError: message}
	if err := s.statuses.UpdateSourceStatus(ctx, source.ID, status); err != nil {
		s.logger.Warn("Failed to record sync failure", logging.WithFields(map[string]interface{}{
			"source": source.URL,
			"error":  err.Error(),
		}))
	}

	return models.SyncResult{Success: false, Error: message}
}
