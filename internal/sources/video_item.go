package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mbaxter/skimmer/internal/media"
	"github.com/mbaxter/skimmer/internal/models"
	"github.com/mbaxter/skimmer/internal/ratelimit"
)

var lengthSecondsRe = regexp.MustCompile(`"lengthSeconds"\s*:\s*"(\d+)"`)

// VideoItemHandler owns single-video sources: a watch page saved directly
// into the reading list. Its "feed" is the watch page itself, scraped into
// a one-item feed.
type VideoItemHandler struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	config  HandlerConfig
}

func NewVideoItemHandler(limiter *ratelimit.Limiter, cfg HandlerConfig) *VideoItemHandler {
	return &VideoItemHandler{
		client:  newPageClient(cfg),
		limiter: limiter,
		config:  cfg,
	}
}

func (h *VideoItemHandler) Type() models.SourceType {
	return models.SourceTypeVideoItem
}

func (h *VideoItemHandler) IsValidURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		return len(strings.Trim(u.Path, "/")) >= 6
	}
	if !isVideoHost(host) {
		return false
	}
	if u.Path == "/watch" {
		return u.Query().Get("v") != ""
	}
	return strings.HasPrefix(u.Path, "/shorts/")
}

// DetectURL matches watch-URL shapes without any network call
func (h *VideoItemHandler) DetectURL(ctx context.Context, rawURL string) (models.DetectionResult, error) {
	if !h.IsValidURL(rawURL) {
		return models.DetectionResult{}, nil
	}

	videoID := h.videoID(rawURL)
	if videoID == "" {
		return models.DetectionResult{}, nil
	}
	return models.DetectionResult{
		Detected:       true,
		SourceType:     models.SourceTypeVideoItem,
		TransformedURL: watchURL(videoID),
		Metadata:       map[string]interface{}{"videoId": videoID},
	}, nil
}

func (h *VideoItemHandler) TransformURL(ctx context.Context, rawURL string) (string, error) {
	if videoID := h.videoID(rawURL); videoID != "" {
		return watchURL(videoID), nil
	}
	return "", nil
}

// FetchFeed scrapes the watch page into a single-item feed using its
// og: meta tags and the embedded player metadata.
func (h *VideoItemHandler) FetchFeed(ctx context.Context, feedURL string) (*models.FeedInfo, error) {
	videoID := h.videoID(feedURL)
	if videoID == "" {
		return nil, fmt.Errorf("not a video page URL: %s", feedURL)
	}

	waitHost(h.limiter, feedURL)

	pageCtx, cancel := context.WithTimeout(ctx, h.config.PageTimeout)
	defer cancel()

	doc, err := fetchPage(pageCtx, h.client, feedURL, h.config.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("fetch video page: %w", err)
	}

	title := pageTitle(doc)
	description, _ := doc.Find(`meta[property="og:description"]`).Attr("content")
	thumbnail, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	if thumbnail == "" {
		thumbnail = media.YouTubeThumbnail(videoID)
	}
	author, _ := doc.Find(`link[itemprop="name"]`).Attr("content")

	published := time.Now()
	if datePublished, ok := doc.Find(`meta[itemprop="datePublished"]`).Attr("content"); ok {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, datePublished); err == nil {
				published = t
				break
			}
		}
	}

	duration := 0
	if html, err := doc.Html(); err == nil {
		if m := lengthSecondsRe.FindStringSubmatch(html); len(m) > 1 {
			if d, ok := media.ParseDuration(m[1]); ok {
				duration = d
			}
		}
	}

	item := models.ProcessedContentItem{
		URL:         watchURL(videoID),
		Title:       title,
		Content:     description,
		Excerpt:     excerpt(description, excerptLen),
		Author:      author,
		PublishedAt: published,
		Media: models.MediaInfo{
			Type:            models.MediaTypeVideo,
			URL:             watchURL(videoID),
			ThumbnailURL:    thumbnail,
			DurationSeconds: duration,
		},
		Metadata: map[string]interface{}{"videoId": videoID},
	}

	return &models.FeedInfo{
		Title:    title,
		ImageURL: thumbnail,
		Items:    []models.ProcessedContentItem{item},
	}, nil
}

func (h *VideoItemHandler) FaviconURL(ctx context.Context, rawURL string) string {
	return "https://www.youtube.com/favicon.ico"
}

func (h *VideoItemHandler) videoID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	if strings.EqualFold(u.Hostname(), "youtu.be") {
		return strings.Trim(u.Path, "/")
	}
	if u.Path == "/watch" {
		return u.Query().Get("v")
	}
	return extractVideoID(rawURL)
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

var _ Handler = (*VideoItemHandler)(nil)
