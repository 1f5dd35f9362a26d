package models

import "testing"

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "https://Example.COM/Feed.xml", "https://example.com/feed.xml"},
		{"trims whitespace", "  https://example.com/a  ", "https://example.com/a"},
		{"strips fragment", "https://example.com/post#comments", "https://example.com/post"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.input); got != tt.expected {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestProcessedContentItem_DedupKey(t *testing.T) {
	article := ProcessedContentItem{
		URL:   "https://example.com/Post",
		Media: MediaInfo{Type: MediaTypeImage, URL: "https://example.com/img.jpg"},
	}
	if got := article.DedupKey(); got != "https://example.com/post" {
		t.Errorf("DedupKey() = %q, want canonical item URL", got)
	}

	episode := ProcessedContentItem{
		URL:   "https://pod.example/episodes/42",
		Media: MediaInfo{Type: MediaTypeAudio, URL: "https://cdn.example/ep42.mp3"},
	}
	if got := episode.DedupKey(); got != "https://cdn.example/ep42.mp3" {
		t.Errorf("DedupKey() = %q, want resolved audio asset URL", got)
	}

	// An audio item without a resolved asset falls back to the page URL.
	noAsset := ProcessedContentItem{
		URL:   "https://pod.example/episodes/43",
		Media: MediaInfo{Type: MediaTypeAudio},
	}
	if got := noAsset.DedupKey(); got != "https://pod.example/episodes/43" {
		t.Errorf("DedupKey() = %q, want page URL fallback", got)
	}
}

func TestProcessedContentItem_DedupKey_RepublishedEpisode(t *testing.T) {
	a := ProcessedContentItem{
		URL:   "https://pod.example/episodes/42",
		Media: MediaInfo{Type: MediaTypeAudio, URL: "https://cdn.example/ep42.mp3"},
	}
	b := ProcessedContentItem{
		URL:   "https://pod.example/posts/ep-42-rerun",
		Media: MediaInfo{Type: MediaTypeAudio, URL: "https://cdn.example/ep42.mp3"},
	}
	if a.DedupKey() != b.DedupKey() {
		t.Error("episodes sharing an audio asset must share a dedup key")
	}
}
