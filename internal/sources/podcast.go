package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/mbaxter/skimmer/internal/media"
	"github.com/mbaxter/skimmer/internal/models"
	"github.com/mbaxter/skimmer/internal/ratelimit"
)

// Podcast hosting platforms whose URLs classify as podcast by shape alone.
// Matched as the host itself or any subdomain of it.
var podcastHosts = []string{
	"anchor.fm",
	"feeds.buzzsprout.com",
	"feeds.transistor.fm",
	"feeds.simplecast.com",
	"feeds.megaphone.fm",
	"feeds.soundcloud.com",
	"feeds.acast.com",
	"rss.art19.com",
	"libsyn.com",
	"podbean.com",
	"feeds.captivate.fm",
	"feeds.podcastindex.org",
	"pinecast.com",
}

// PodcastHandler owns audio feeds: podcast-catalog RSS and audio-oriented
// video-platform playlists (the platform's Atom reinterpreted as an audio
// feed). Episodes dedup on the resolved audio asset, not the page URL.
type PodcastHandler struct {
	parser  *gofeed.Parser
	client  *http.Client
	limiter *ratelimit.Limiter
	config  HandlerConfig
}

func NewPodcastHandler(limiter *ratelimit.Limiter, cfg HandlerConfig) *PodcastHandler {
	return &PodcastHandler{
		parser:  newFeedParser(cfg),
		client:  newPageClient(cfg),
		limiter: limiter,
		config:  cfg,
	}
}

func (h *PodcastHandler) Type() models.SourceType {
	return models.SourceTypePodcast
}

func (h *PodcastHandler) IsValidURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	if isPodcastHost(u.Hostname()) {
		return true
	}
	return isAudioPlaylistURL(u)
}

func isPodcastHost(host string) bool {
	host = strings.ToLower(host)
	for _, known := range podcastHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

// isAudioPlaylistURL matches the video platform's audio-oriented playlist
// surface (its music subdomain).
func isAudioPlaylistURL(u *url.URL) bool {
	if !strings.EqualFold(u.Hostname(), "music.youtube.com") {
		return false
	}
	return u.Path == "/playlist" && u.Query().Get("list") != ""
}

// DetectURL matches known podcast hosts by pattern; no network call
func (h *PodcastHandler) DetectURL(ctx context.Context, rawURL string) (models.DetectionResult, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return models.DetectionResult{}, nil
	}

	if isAudioPlaylistURL(u) {
		listID := u.Query().Get("list")
		return models.DetectionResult{
			Detected:       true,
			SourceType:     models.SourceTypePodcast,
			TransformedURL: playlistFeedURL(listID),
			Metadata:       map[string]interface{}{"playlistId": listID, "audioPlaylist": true},
		}, nil
	}

	if isPodcastHost(u.Hostname()) {
		return models.DetectionResult{
			Detected:       true,
			SourceType:     models.SourceTypePodcast,
			TransformedURL: rawURL,
		}, nil
	}

	return models.DetectionResult{}, nil
}

func (h *PodcastHandler) TransformURL(ctx context.Context, rawURL string) (string, error) {
	result, err := h.DetectURL(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return result.TransformedURL, nil
}

func (h *PodcastHandler) FetchFeed(ctx context.Context, feedURL string) (*models.FeedInfo, error) {
	waitHost(h.limiter, feedURL)

	fetchCtx, cancel := context.WithTimeout(ctx, h.config.FetchTimeout)
	defer cancel()

	feed, err := h.parser.ParseURLWithContext(feedURL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse podcast feed %s: %w", feedURL, err)
	}

	info := buildFeedInfo(feed)
	if info.ImageURL == "" && feed.ITunesExt != nil {
		info.ImageURL = feed.ITunesExt.Image
	}

	platformPlaylist := strings.Contains(feedURL, "/feeds/videos.xml")
	for i := range info.Items {
		if platformPlaylist {
			normalizeAudioPlaylistItem(&info.Items[i], feed.Items[i])
		} else {
			normalizeEpisode(&info.Items[i], feed.Items[i])
		}
	}
	return info, nil
}

// normalizeEpisode applies podcast-catalog extensions: the enclosure is
// the audio asset, itunes fields fill author/duration/episode metadata.
func normalizeEpisode(item *models.ProcessedContentItem, raw *gofeed.Item) {
	// The extractor already resolved an audio enclosure when present; keep
	// only the artwork when it resolved something non-audio.
	if item.Media.Type != models.MediaTypeAudio {
		if audioURL := audioEnclosure(raw); audioURL != "" {
			item.Media.URL = audioURL
			item.Media.Type = models.MediaTypeAudio
		}
	}

	it := raw.ITunesExt
	if it == nil {
		return
	}

	if item.Media.ThumbnailURL == "" {
		item.Media.ThumbnailURL = it.Image
	}
	if item.Media.DurationSeconds == 0 {
		if d, ok := media.ParseDuration(it.Duration); ok {
			item.Media.DurationSeconds = d
		}
	}
	if item.Author == "" {
		item.Author = it.Author
	}

	meta := map[string]interface{}{}
	if it.Episode != "" {
		meta["episode"] = it.Episode
	}
	if it.Season != "" {
		meta["season"] = it.Season
	}
	if it.EpisodeType != "" {
		meta["episodeType"] = it.EpisodeType
	}
	if it.Explicit != "" {
		meta["explicit"] = it.Explicit
	}
	if len(meta) > 0 {
		if item.Metadata == nil {
			item.Metadata = map[string]interface{}{}
		}
		for k, v := range meta {
			item.Metadata[k] = v
		}
	}
}

// normalizeAudioPlaylistItem reinterprets a video-platform playlist entry
// as an audio episode: the watch URL is the resolvable audio asset.
func normalizeAudioPlaylistItem(item *models.ProcessedContentItem, raw *gofeed.Item) {
	videoID := videoIDOf(raw)

	item.Media.Type = models.MediaTypeAudio
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

func audioEnclosure(raw *gofeed.Item) string {
	if raw == nil {
		return ""
	}
	for _, enc := range raw.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "audio/") {
			return enc.URL
		}
	}
	return ""
}

func (h *PodcastHandler) FaviconURL(ctx context.Context, rawURL string) string {
	return faviconFromPage(ctx, h.client, h.config, rawURL)
}

var _ Handler = (*PodcastHandler)(nil)
