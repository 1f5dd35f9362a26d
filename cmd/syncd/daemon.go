package main

import (
	"context"
	"time"

	"github.com/mbaxter/skimmer/internal/config"
	"github.com/mbaxter/skimmer/internal/ingest"
	"github.com/mbaxter/skimmer/internal/logging"
	"github.com/mbaxter/skimmer/internal/models"
)

// sourceLister yields the sources due for polling
type sourceLister interface {
	ListSourcesDueForSync(ctx context.Context, maxAge time.Duration) ([]models.Source, error)
}

// daemon sweeps due sources on a fixed interval. The pipeline itself is not
// a scheduler; this is the external caller deciding when syncs happen.
type daemon struct {
	syncer  *ingest.Syncer
	lister  sourceLister
	syncCfg config.SyncConfig
	logger  *logging.Logger
}

func newDaemon(syncer *ingest.Syncer, lister sourceLister, syncCfg config.SyncConfig, logger *logging.Logger) *daemon {
	return &daemon{syncer: syncer, lister: lister, syncCfg: syncCfg, logger: logger}
}

func (d *daemon) run(ctx context.Context) {
	d.logger.Info("Sync daemon started", logging.WithField("interval", d.syncCfg.Interval.String()))

	ticker := time.NewTicker(d.syncCfg.Interval)
	defer ticker.Stop()

	d.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Sync daemon stopped")
			return
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

func (d *daemon) sweep(ctx context.Context) {
	due, err := d.lister.ListSourcesDueForSync(ctx, d.syncCfg.Interval)
	if err != nil {
		d.logger.Error("Failed to list due sources", logging.WithField("error", err.Error()))
		return
	}
	if len(due) == 0 {
		d.logger.Debug("No sources due for sync")
		return
	}

	result := d.syncer.SyncSources(ctx, due, ingest.Options{
		OnSourceComplete: func(source models.Source, result models.SyncResult) {
			if !result.Success {
				d.logger.Warn("Source failed", logging.WithFields(map[string]interface{}{
					"source": source.URL,
					"error":  result.Error,
				}))
			}
		},
	})

	d.logger.Info("Sweep complete", logging.WithFields(map[string]interface{}{
		"sources": len(due),
		"added":   result.ArticlesAdded,
		"updated": result.ArticlesUpdated,
		"success": result.Success,
	}))
}
