package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/mbaxter/skimmer/internal/media"
	"github.com/mbaxter/skimmer/internal/models"
	"github.com/mbaxter/skimmer/internal/ratelimit"
)

var (
	channelIDPathRe = regexp.MustCompile(`/channel/(UC[a-zA-Z0-9_-]{10,})`)
	channelVanityRe = regexp.MustCompile(`^/(user/[^/]+|c/[^/]+|@[^/]+)/?$`)
	videoIDRe       = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|/shorts/|/embed/)([a-zA-Z0-9_-]{6,})`)

	// Channel pages do not carry one reliable channel-id marker across all
	// variants, so resolution tries an ordered chain: the canonical link
	// tag first, then several embedded-JSON key names. First match wins.
	channelIDScrapeRes = []*regexp.Regexp{
		regexp.MustCompile(`"channelId"\s*:\s*"(UC[a-zA-Z0-9_-]{10,})"`),
		regexp.MustCompile(`"externalId"\s*:\s*"(UC[a-zA-Z0-9_-]{10,})"`),
		regexp.MustCompile(`"browseId"\s*:\s*"(UC[a-zA-Z0-9_-]{10,})"`),
	}
)

func isVideoHost(host string) bool {
	switch strings.ToLower(host) {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		return true
	}
	return false
}

func channelFeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + channelID
}

func playlistFeedURL(playlistID string) string {
	return "https://www.youtube.com/feeds/videos.xml?playlist_id=" + playlistID
}

// extractVideoID pulls the video id out of a watch/short/embed URL
func extractVideoID(rawURL string) string {
	if m := videoIDRe.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1]
	}
	return ""
}

// VideoChannelHandler owns video-platform channel and playlist sources.
// Channel pages, vanity URLs, and handles all resolve to the channel's
// machine feed; the resolution may require scraping the channel HTML.
type VideoChannelHandler struct {
	parser  *gofeed.Parser
	client  *http.Client
	limiter *ratelimit.Limiter
	config  HandlerConfig
}

func NewVideoChannelHandler(limiter *ratelimit.Limiter, cfg HandlerConfig) *VideoChannelHandler {
	return &VideoChannelHandler{
		parser:  newFeedParser(cfg),
		client:  newPageClient(cfg),
		limiter: limiter,
		config:  cfg,
	}
}

func (h *VideoChannelHandler) Type() models.SourceType {
	return models.SourceTypeVideoChannel
}

func (h *VideoChannelHandler) IsValidURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !isVideoHost(u.Hostname()) {
		return false
	}
	if strings.HasPrefix(u.Path, "/feeds/videos.xml") {
		return true
	}
	if channelIDPathRe.MatchString(u.Path) || channelVanityRe.MatchString(u.Path) {
		return true
	}
	return u.Path == "/playlist" && u.Query().Get("list") != ""
}

func (h *VideoChannelHandler) DetectURL(ctx context.Context, rawURL string) (models.DetectionResult, error) {
	if !h.IsValidURL(rawURL) {
		return models.DetectionResult{}, nil
	}

	u, _ := url.Parse(strings.TrimSpace(rawURL))

	// Already a machine feed.
	if strings.HasPrefix(u.Path, "/feeds/videos.xml") {
		return models.DetectionResult{
			Detected:       true,
			SourceType:     models.SourceTypeVideoChannel,
			TransformedURL: rawURL,
		}, nil
	}

	// Channel id present in the path: no network needed.
	if m := channelIDPathRe.FindStringSubmatch(u.Path); len(m) > 1 {
		return models.DetectionResult{
			Detected:       true,
			SourceType:     models.SourceTypeVideoChannel,
			TransformedURL: channelFeedURL(m[1]),
			Metadata:       map[string]interface{}{"channelId": m[1]},
		}, nil
	}

	// Playlist URLs transform directly.
	if u.Path == "/playlist" {
		listID := u.Query().Get("list")
		return models.DetectionResult{
			Detected:       true,
			SourceType:     models.SourceTypeVideoChannel,
			TransformedURL: playlistFeedURL(listID),
			Metadata:       map[string]interface{}{"playlistId": listID},
		}, nil
	}

	// Vanity URL or handle: scrape the channel page for its internal id.
	channelID, title, err := h.resolveChannelID(ctx, rawURL)
	if err != nil {
		return models.DetectionResult{}, err
	}
	if channelID == "" {
		return models.DetectionResult{}, nil
	}
	return models.DetectionResult{
		Detected:       true,
		SourceType:     models.SourceTypeVideoChannel,
		TransformedURL: channelFeedURL(channelID),
		SuggestedTitle: title,
		Metadata:       map[string]interface{}{"channelId": channelID},
	}, nil
}

func (h *VideoChannelHandler) TransformURL(ctx context.Context, rawURL string) (string, error) {
	result, err := h.DetectURL(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return result.TransformedURL, nil
}

// resolveChannelID scrapes a channel page, trying the canonical link tag
// first and the embedded-JSON key chain second.
func (h *VideoChannelHandler) resolveChannelID(ctx context.Context, pageURL string) (channelID, title string, err error) {
	waitHost(h.limiter, pageURL)

	pageCtx, cancel := context.WithTimeout(ctx, h.config.PageTimeout)
	defer cancel()

	doc, err := fetchPage(pageCtx, h.client, pageURL, h.config.UserAgent)
	if err != nil {
		return "", "", fmt.Errorf("resolve channel id: %w", err)
	}
	title = pageTitle(doc)

	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		if m := channelIDPathRe.FindStringSubmatch(canonical); len(m) > 1 {
			return m[1], title, nil
		}
	}

	html, err := doc.Html()
	if err != nil {
		return "", title, nil
	}
	for _, re := range channelIDScrapeRes {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1], title, nil
		}
	}
	return "", title, nil
}

func (h *VideoChannelHandler) FetchFeed(ctx context.Context, feedURL string) (*models.FeedInfo, error) {
	waitHost(h.limiter, feedURL)

	fetchCtx, cancel := context.WithTimeout(ctx, h.config.FetchTimeout)
	defer cancel()

	feed, err := h.parser.ParseURLWithContext(feedURL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse video feed %s: %w", feedURL, err)
	}

	info := buildFeedInfo(feed)
	for i := range info.Items {
		normalizeVideoItem(&info.Items[i], feed.Items[i])
	}
	return info, nil
}

// normalizeVideoItem forces video semantics onto an entry of the platform
// Atom format: the canonical watch URL is the media asset, and the
// thumbnail falls back to the predictable per-video URL scheme.
func normalizeVideoItem(item *models.ProcessedContentItem, raw *gofeed.Item) {
	videoID := videoIDOf(raw)

	item.Media.Type = models.MediaTypeVideo
	item.Media.URL = item.URL
	if item.Media.ThumbnailURL == "" && videoID != "" {
		item.Media.ThumbnailURL = media.YouTubeThumbnail(videoID)
	}
	if videoID != "" {
		if item.Metadata == nil {
			item.Metadata = map[string]interface{}{}
		}
		item.Metadata["videoId"] = videoID
	}
}

func videoIDOf(raw *gofeed.Item) string {
	if raw == nil {
		return ""
	}
	for _, e := range raw.Extensions["yt"]["videoId"] {
		if e.Value != "" {
			return e.Value
		}
	}
	return extractVideoID(raw.Link)
}

func (h *VideoChannelHandler) FaviconURL(ctx context.Context, rawURL string) string {
	return "https://www.youtube.com/favicon.ico"
}

var _ Handler = (*VideoChannelHandler)(nil)
