package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/mmcdole/gofeed"

	"github.com/mbaxter/skimmer/internal/models"
	"github.com/mbaxter/skimmer/internal/ratelimit"
)

// feedPathRe matches URL paths that conventionally address a feed directly
var feedPathRe = regexp.MustCompile(`(?i)(\.xml|\.rss|\.atom|/feed/?|/rss/?|/atom/?)$`)

// SyndicationHandler owns URLs that address a feed directly. Detection is
// pattern-only and never touches the network; page-level discovery for
// non-feed-shaped URLs belongs to WebsiteHandler, which probes after this
// handler and must not duplicate its work.
type SyndicationHandler struct {
	parser  *gofeed.Parser
	client  *http.Client
	limiter *ratelimit.Limiter
	config  HandlerConfig
}

func NewSyndicationHandler(limiter *ratelimit.Limiter, cfg HandlerConfig) *SyndicationHandler {
	return &SyndicationHandler{
		parser:  newFeedParser(cfg),
		client:  newPageClient(cfg),
		limiter: limiter,
		config:  cfg,
	}
}

func (h *SyndicationHandler) Type() models.SourceType {
	return models.SourceTypeSyndication
}

func (h *SyndicationHandler) IsValidURL(rawURL string) bool {
	return isHTTPURL(rawURL)
}

// LooksLikeFeedURL reports whether the URL addresses a feed by shape alone
func LooksLikeFeedURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if feedPathRe.MatchString(u.Path) {
		return true
	}
	// Some platforms serve feeds behind a query switch.
	q := u.Query()
	return q.Get("feed") != "" || q.Get("format") == "rss"
}

func (h *SyndicationHandler) DetectURL(ctx context.Context, rawURL string) (models.DetectionResult, error) {
	if !h.IsValidURL(rawURL) {
		return models.DetectionResult{}, nil
	}

	if !LooksLikeFeedURL(rawURL) {
		return models.DetectionResult{}, nil
	}
	return models.DetectionResult{
		Detected:       true,
		SourceType:     models.SourceTypeSyndication,
		TransformedURL: rawURL,
	}, nil
}

func (h *SyndicationHandler) TransformURL(ctx context.Context, rawURL string) (string, error) {
	if LooksLikeFeedURL(rawURL) {
		return rawURL, nil
	}
	feedURL, _, err := h.discover(ctx, rawURL)
	return feedURL, err
}

// discover scrapes the page for a feed link tag, then falls back to
// probing conventional feed paths. Both passes carry short timeouts so a
// slow site cannot stall classification.
func (h *SyndicationHandler) discover(ctx context.Context, rawURL string) (feedURL, title string, err error) {
	waitHost(h.limiter, rawURL)

	pageCtx, cancel := context.WithTimeout(ctx, h.config.PageTimeout)
	defer cancel()

	doc, pageErr := fetchPage(pageCtx, h.client, rawURL, h.config.UserAgent)
	if pageErr == nil {
		title = pageTitle(doc)
		if link := discoverFeedLink(doc, rawURL); link != "" {
			return link, title, nil
		}
	}

	if probed := probeConventionalPaths(ctx, h.client, h.config, rawURL); probed != "" {
		return probed, title, nil
	}

	if pageErr != nil {
		return "", "", fmt.Errorf("feed discovery for %s: %w", rawURL, pageErr)
	}
	return "", title, nil
}

func (h *SyndicationHandler) FetchFeed(ctx context.Context, feedURL string) (*models.FeedInfo, error) {
	waitHost(h.limiter, feedURL)

	fetchCtx, cancel := context.WithTimeout(ctx, h.config.FetchTimeout)
	defer cancel()

	feed, err := h.parser.ParseURLWithContext(feedURL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	return buildFeedInfo(feed), nil
}

func (h *SyndicationHandler) FaviconURL(ctx context.Context, rawURL string) string {
	return faviconFromPage(ctx, h.client, h.config, rawURL)
}

// ensure the contract is satisfied
var _ Handler = (*SyndicationHandler)(nil)

// WebsiteHandler is the last-resort fallback: it accepts almost any
// http(s) URL and relies entirely on page-level feed discovery. It must be
// registered after every specific family.
type WebsiteHandler struct {
	syndication *SyndicationHandler
}

func NewWebsiteHandler(limiter *ratelimit.Limiter, cfg HandlerConfig) *WebsiteHandler {
	return &WebsiteHandler{syndication: NewSyndicationHandler(limiter, cfg)}
}

func (h *WebsiteHandler) Type() models.SourceType {
	return models.SourceTypeWebsite
}

func (h *WebsiteHandler) IsValidURL(rawURL string) bool {
	return isHTTPURL(rawURL)
}

// DetectURL accepts any reachable site that exposes a discoverable feed.
// A site with no feed at all is a classification failure: there is nothing
// the pipeline could ever sync from it.
func (h *WebsiteHandler) DetectURL(ctx context.Context, rawURL string) (models.DetectionResult, error) {
	if !h.IsValidURL(rawURL) {
		return models.DetectionResult{}, nil
	}

	feedURL, title, err := h.syndication.discover(ctx, rawURL)
	if err != nil {
		return models.DetectionResult{}, err
	}
	if feedURL == "" {
		return models.DetectionResult{}, nil
	}
	return models.DetectionResult{
		Detected:       true,
		SourceType:     models.SourceTypeWebsite,
		TransformedURL: feedURL,
		SuggestedTitle: title,
	}, nil
}

func (h *WebsiteHandler) TransformURL(ctx context.Context, rawURL string) (string, error) {
	return h.syndication.TransformURL(ctx, rawURL)
}

func (h *WebsiteHandler) FetchFeed(ctx context.Context, feedURL string) (*models.FeedInfo, error) {
	return h.syndication.FetchFeed(ctx, feedURL)
}

func (h *WebsiteHandler) FaviconURL(ctx context.Context, rawURL string) string {
	return h.syndication.FaviconURL(ctx, rawURL)
}

var _ Handler = (*WebsiteHandler)(nil)
