// Package sources classifies user-supplied URLs into feed families and
// fetches each family's feed into the common item shape. One Handler owns
// each source type; the Registry probes them in specificity order.
package sources

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/mbaxter/skimmer/internal/models"
	"github.com/mbaxter/skimmer/internal/ratelimit"
)

// Handler is the uniform contract implemented once per source family
type Handler interface {
	// Type returns the source type this handler owns
	Type() models.SourceType

	// IsValidURL is cheap format validation, never a network call
	IsValidURL(rawURL string) bool

	// DetectURL classifies a URL. Pattern matches come first; a handler may
	// fall back to a short, bounded network probe before giving up.
	DetectURL(ctx context.Context, rawURL string) (models.DetectionResult, error)

	// TransformURL converts a human-facing URL into a machine-parseable
	// feed address. Returns "" when the URL cannot be transformed.
	TransformURL(ctx context.Context, rawURL string) (string, error)

	// FetchFeed fetches and parses a feed into the normalized shape
	FetchFeed(ctx context.Context, feedURL string) (*models.FeedInfo, error)

	// FaviconURL resolves an icon for the source, best effort only
	FaviconURL(ctx context.Context, rawURL string) string
}

// HandlerConfig bounds every outbound call a handler makes
type HandlerConfig struct {
	FetchTimeout time.Duration // feed body fetch
	PageTimeout  time.Duration // HTML page scrape during detection
	ProbeTimeout time.Duration // per conventional-path HEAD probe
	UserAgent    string
}

// DefaultConfig returns the production timeouts
func DefaultConfig() HandlerConfig {
	return HandlerConfig{
		FetchTimeout: 10 * time.Second,
		PageTimeout:  5 * time.Second,
		ProbeTimeout: 2 * time.Second,
		UserAgent:    "Skimmer/1.0 (+https://skimmer.app/bot)",
	}
}

func newFeedParser(cfg HandlerConfig) *gofeed.Parser {
	parser := gofeed.NewParser()
	parser.UserAgent = cfg.UserAgent
	parser.Client = &http.Client{Timeout: cfg.FetchTimeout}
	return parser
}

func newPageClient(cfg HandlerConfig) *http.Client {
	return &http.Client{Timeout: cfg.PageTimeout}
}

func waitHost(limiter *ratelimit.Limiter, rawURL string) {
	if limiter == nil {
		return
	}
	if host := hostOf(rawURL); host != "" {
		limiter.Wait(host)
	}
}
