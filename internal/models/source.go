package models

import "time"

// SourceType identifies the feed family that owns a source
type SourceType string

const (
	SourceTypeSyndication  SourceType = "syndication"
	SourceTypeVideoChannel SourceType = "video_channel"
	SourceTypeVideoItem    SourceType = "video_item"
	SourceTypePodcast      SourceType = "podcast"
	SourceTypeNewsletter   SourceType = "newsletter"
	SourceTypeWebsite      SourceType = "website"
)

// Source is a registered external feed the system polls.
// FetchError is empty after a successful sync; a non-empty value means the
// last sync attempt failed and is surfaced to the UI as "last sync failed".
type Source struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Type          SourceType `json:"type"`
	Title         string     `json:"title,omitempty"`
	FeedURL       string     `json:"feedUrl,omitempty"`
	FaviconURL    string     `json:"faviconUrl,omitempty"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
	FetchError    string     `json:"fetchError,omitempty"`
	FetchCount    int        `json:"fetchCount"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// SourceStatus carries the outcome of a sync attempt back to the store
type SourceStatus struct {
	FetchedAt  time.Time
	FetchError string
	Success    bool
}

// DetectionResult is produced once when a source is added
type DetectionResult struct {
	Detected       bool                   `json:"detected"`
	TransformedURL string                 `json:"transformedUrl,omitempty"`
	SourceType     SourceType             `json:"sourceType,omitempty"`
	SuggestedTitle string                 `json:"suggestedTitle,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// SyncResult aggregates the outcome of one sync invocation
type SyncResult struct {
	Success         bool   `json:"success"`
	ArticlesAdded   int    `json:"articlesAdded"`
	ArticlesUpdated int    `json:"articlesUpdated"`
	Error           string `json:"error,omitempty"`
}
