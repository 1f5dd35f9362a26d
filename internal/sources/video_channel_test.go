package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mbaxter/skimmer/internal/models"
)

const sampleVideoAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015"
      xmlns:media="http://search.yahoo.com/mrss/"
      xmlns="http://www.w3.org/2005/Atom">
  <title>Example Channel</title>
  <entry>
    <id>yt:video:abc123xyz00</id>
    <yt:videoId>abc123xyz00</yt:videoId>
    <title>A Video</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=abc123xyz00"/>
    <author><name>Example Creator</name></author>
    <published>2024-05-01T10:00:00+00:00</published>
    <media:group>
      <media:title>A Video</media:title>
      <media:content url="https://www.youtube.com/v/abc123xyz00?version=3" type="application/x-shockwave-flash" width="640" height="390"/>
      <media:thumbnail url="https://i1.ytimg.com/vi/abc123xyz00/hqdefault.jpg" width="480" height="360"/>
      <media:description>About the video</media:description>
    </media:group>
  </entry>
</feed>`

func TestVideoChannelHandler_IsValidURL(t *testing.T) {
	h := NewVideoChannelHandler(nil, DefaultConfig())

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://www.youtube.com/channel/UCabcdef123456", true},
		{"https://youtube.com/user/somecreator", true},
		{"https://www.youtube.com/c/SomeCreator", true},
		{"https://www.youtube.com/@somehandle", true},
		{"https://www.youtube.com/playlist?list=PL123abc", true},
		{"https://www.youtube.com/feeds/videos.xml?channel_id=UCabcdef123456", true},
		{"https://m.youtube.com/channel/UCabcdef123456", true},
		{"https://www.youtube.com/watch?v=abc123xyz00", false},
		{"https://vimeo.com/channels/staff", false},
		{"https://example.com/channel/UCabcdef123456", false},
	}

	for _, tt := range tests {
		if got := h.IsValidURL(tt.url); got != tt.expected {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.url, got, tt.expected)
		}
	}
}

func TestVideoChannelHandler_DetectURL_ChannelID(t *testing.T) {
	h := NewVideoChannelHandler(nil, DefaultConfig())

	result, err := h.DetectURL(context.Background(), "https://www.youtube.com/channel/UCabcdef123456")
	if err != nil {
		t.Fatalf("DetectURL() error = %v", err)
	}
	if !result.Detected || result.SourceType != models.SourceTypeVideoChannel {
		t.Fatalf("DetectURL() = %+v", result)
	}
	if result.TransformedURL != "https://www.youtube.com/feeds/videos.xml?channel_id=UCabcdef123456" {
		t.Errorf("TransformedURL = %q", result.TransformedURL)
	}
	if result.Metadata["channelId"] != "UCabcdef123456" {
		t.Errorf("Metadata = %v, want channelId recorded", result.Metadata)
	}
}

func TestVideoChannelHandler_DetectURL_Playlist(t *testing.T) {
	h := NewVideoChannelHandler(nil, DefaultConfig())

	result, err := h.DetectURL(context.Background(), "https://www.youtube.com/playlist?list=PLabc123")
	if err != nil {
		t.Fatalf("DetectURL() error = %v", err)
	}
	if !result.Detected {
		t.Fatal("DetectURL() should detect playlist URLs")
	}
	if result.TransformedURL != "https://www.youtube.com/feeds/videos.xml?playlist_id=PLabc123" {
		t.Errorf("TransformedURL = %q", result.TransformedURL)
	}
}

func TestVideoChannelHandler_ResolveChannelID_CanonicalLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<title>Creator - YouTube</title>
			<link rel="canonical" href="https://www.youtube.com/channel/UCcanonical12345">
		</head><body></body></html>`)
	}))
	defer server.Close()

	h := NewVideoChannelHandler(nil, DefaultConfig())

	channelID, title, err := h.resolveChannelID(context.Background(), server.URL+"/@creator")
	if err != nil {
		t.Fatalf("resolveChannelID() error = %v", err)
	}
	if channelID != "UCcanonical12345" {
		t.Errorf("resolveChannelID() = %q, want canonical link id", channelID)
	}
	if title != "Creator - YouTube" {
		t.Errorf("title = %q", title)
	}
}

func TestVideoChannelHandler_ResolveChannelID_EmbeddedJSONFallbacks(t *testing.T) {
	// No canonical link on these page variants: the embedded-JSON key
	// chain must find the id, first matching key wins.
	tests := []struct {
		name string
		body string
	}{
		{"channelId key", `<html><body><script>var cfg = {"channelId":"UCembedded12345","other":1};</script></body></html>`},
		{"externalId key", `<html><body><script>{"metadata":{"externalId":"UCembedded12345"}}</script></body></html>`},
		{"browseId key", `<html><body><script>{"browseEndpoint":{"browseId":"UCembedded12345"}}</script></body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			h := NewVideoChannelHandler(nil, DefaultConfig())
			channelID, _, err := h.resolveChannelID(context.Background(), server.URL+"/@creator")
			if err != nil {
				t.Fatalf("resolveChannelID() error = %v", err)
			}
			if channelID != "UCembedded12345" {
				t.Errorf("resolveChannelID() = %q", channelID)
			}
		})
	}
}

func TestVideoChannelHandler_ResolveChannelID_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	h := NewVideoChannelHandler(nil, DefaultConfig())

	// A markup or availability change degrades to a detection error, which
	// the registry treats as not-detected.
	if _, _, err := h.resolveChannelID(context.Background(), server.URL+"/@creator"); err == nil {
		t.Error("resolveChannelID() should surface page fetch failures")
	}
}

func TestVideoChannelHandler_FetchFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, sampleVideoAtom)
	}))
	defer server.Close()

	h := NewVideoChannelHandler(nil, DefaultConfig())

	info, err := h.FetchFeed(context.Background(), server.URL+"/feeds/videos.xml?channel_id=UCabc")
	if err != nil {
		t.Fatalf("FetchFeed() error = %v", err)
	}
	if info.Title != "Example Channel" {
		t.Errorf("FeedInfo.Title = %q", info.Title)
	}
	if len(info.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(info.Items))
	}

	item := info.Items[0]
	if item.URL != "https://www.youtube.com/watch?v=abc123xyz00" {
		t.Errorf("Items[0].URL = %q", item.URL)
	}
	if item.Media.Type != models.MediaTypeVideo {
		t.Errorf("Media.Type = %q, want video", item.Media.Type)
	}
	if item.Media.ThumbnailURL != "https://i1.ytimg.com/vi/abc123xyz00/hqdefault.jpg" {
		t.Errorf("Media.ThumbnailURL = %q, want the media:group thumbnail", item.Media.ThumbnailURL)
	}
	if item.Metadata["videoId"] != "abc123xyz00" {
		t.Errorf("Metadata = %v, want videoId recorded", item.Metadata)
	}
	if item.Author != "Example Creator" {
		t.Errorf("Author = %q", item.Author)
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.youtube.com/watch?v=abc123xyz00", "abc123xyz00"},
		{"https://youtu.be/abc123xyz00", "abc123xyz00"},
		{"https://www.youtube.com/shorts/abc123xyz00", "abc123xyz00"},
		{"https://www.youtube.com/embed/abc123xyz00", "abc123xyz00"},
		{"https://example.com/page", ""},
	}

	for _, tt := range tests {
		if got := extractVideoID(tt.url); got != tt.expected {
			t.Errorf("extractVideoID(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}
