package models

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// MediaType classifies an item's primary media asset
type MediaType string

const (
	MediaTypeNone  MediaType = "none"
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// MediaInfo is the normalized description of an item's primary media asset
type MediaInfo struct {
	Type            MediaType `json:"mediaType"`
	URL             string    `json:"mediaUrl,omitempty"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	DurationSeconds int       `json:"durationSeconds,omitempty"`
}

// ProcessedContentItem is the common item shape every handler produces.
// It is transient: the store persists it into a per-family content table
// keyed by (sourceID, dedup key).
type ProcessedContentItem struct {
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content,omitempty"`
	Excerpt     string                 `json:"excerpt,omitempty"`
	Author      string                 `json:"author,omitempty"`
	PublishedAt time.Time              `json:"publishedAt"`
	Media       MediaInfo              `json:"media"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// DedupKey returns the key deciding whether this item is new or an update.
// Audio items dedup on the resolved media asset so an episode re-published
// at a new page URL never duplicates rows when its audio is unchanged.
func (i ProcessedContentItem) DedupKey() string {
	if i.Media.Type == MediaTypeAudio && i.Media.URL != "" {
		return NormalizeKey(i.Media.URL)
	}
	return NormalizeKey(i.URL)
}

// FeedInfo is the parsed, normalized form of one remote feed
type FeedInfo struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	ImageURL    string                 `json:"imageUrl,omitempty"`
	Items       []ProcessedContentItem `json:"items"`
}

// NormalizeKey canonicalizes a dedup key: NFC unicode form, trimmed,
// fragment stripped, lowercased. Matches the case-insensitive uniqueness
// the store enforces.
func NormalizeKey(raw string) string {
	s := norm.NFC.String(strings.TrimSpace(raw))
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}
