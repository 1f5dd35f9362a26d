package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbaxter/skimmer/internal/cache"
	"github.com/mbaxter/skimmer/internal/logging"
	"github.com/mbaxter/skimmer/internal/models"
)

// stubHandler is a scriptable handler for registry tests
type stubHandler struct {
	sourceType models.SourceType
	result     models.DetectionResult
	err        error
	calls      int
}

func (s *stubHandler) Type() models.SourceType { return s.sourceType }
func (s *stubHandler) IsValidURL(string) bool  { return true }
func (s *stubHandler) DetectURL(context.Context, string) (models.DetectionResult, error) {
	s.calls++
	return s.result, s.err
}
func (s *stubHandler) TransformURL(context.Context, string) (string, error) {
	return s.result.TransformedURL, s.err
}
func (s *stubHandler) FetchFeed(context.Context, string) (*models.FeedInfo, error) {
	return nil, errors.New("not implemented")
}
func (s *stubHandler) FaviconURL(context.Context, string) string { return "" }

func testLogger() *logging.Logger {
	return logging.New(logging.LevelError)
}

func TestRegistry_Register_Idempotent(t *testing.T) {
	r := NewRegistry(nil, testLogger())

	first := &stubHandler{sourceType: models.SourceTypePodcast}
	second := &stubHandler{sourceType: models.SourceTypePodcast}
	other := &stubHandler{sourceType: models.SourceTypeWebsite}

	r.Register(first)
	r.Register(other)
	r.Register(second) // re-registration replaces in place

	types := r.SupportedTypes()
	if len(types) != 2 {
		t.Fatalf("SupportedTypes() = %v, want 2 entries", types)
	}
	if types[0] != models.SourceTypePodcast || types[1] != models.SourceTypeWebsite {
		t.Errorf("SupportedTypes() = %v, re-registration must keep probe order", types)
	}

	h, ok := r.HandlerFor(models.SourceTypePodcast)
	if !ok || h != Handler(second) {
		t.Error("HandlerFor() should return the replacement handler")
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry(nil, testLogger())
	r.Register(&stubHandler{sourceType: models.SourceTypePodcast})
	r.Register(&stubHandler{sourceType: models.SourceTypeWebsite})

	r.Unregister(models.SourceTypePodcast)
	r.Unregister(models.SourceTypePodcast) // no-op

	if r.IsTypeSupported(models.SourceTypePodcast) {
		t.Error("IsTypeSupported() should be false after Unregister()")
	}
	if !r.IsTypeSupported(models.SourceTypeWebsite) {
		t.Error("Unregister() should not remove other handlers")
	}
}

func TestRegistry_Detect_FirstMatchWins(t *testing.T) {
	r := NewRegistry(nil, testLogger())
	specific := &stubHandler{
		sourceType: models.SourceTypePodcast,
		result:     models.DetectionResult{Detected: true, SourceType: models.SourceTypePodcast},
	}
	fallback := &stubHandler{
		sourceType: models.SourceTypeWebsite,
		result:     models.DetectionResult{Detected: true, SourceType: models.SourceTypeWebsite},
	}
	r.Register(specific)
	r.Register(fallback)

	result := r.Detect(context.Background(), "https://pods.example/show")

	if !result.Detected || result.SourceType != models.SourceTypePodcast {
		t.Errorf("Detect() = %+v, want the specific family", result)
	}
	if fallback.calls != 0 {
		t.Error("Detect() should stop at the first positive handler")
	}
}

func TestRegistry_Detect_HandlerErrorFallsThrough(t *testing.T) {
	r := NewRegistry(nil, testLogger())
	broken := &stubHandler{
		sourceType: models.SourceTypeVideoChannel,
		err:        errors.New("network down"),
	}
	working := &stubHandler{
		sourceType: models.SourceTypeSyndication,
		result:     models.DetectionResult{Detected: true, SourceType: models.SourceTypeSyndication},
	}
	r.Register(broken)
	r.Register(working)

	result := r.Detect(context.Background(), "https://example.com/feed.xml")

	if !result.Detected || result.SourceType != models.SourceTypeSyndication {
		t.Errorf("Detect() = %+v, a handler error must not abort the chain", result)
	}
}

func TestRegistry_Detect_NoneDetected(t *testing.T) {
	r := NewRegistry(nil, testLogger())
	r.Register(&stubHandler{sourceType: models.SourceTypePodcast})

	result := r.Detect(context.Background(), "ftp://example.com")
	if result.Detected {
		t.Errorf("Detect() = %+v, want not detected", result)
	}
}

func TestRegistry_Detect_CachesResult(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	defer c.Stop()

	r := NewRegistry(c, testLogger())
	h := &stubHandler{
		sourceType: models.SourceTypePodcast,
		result:     models.DetectionResult{Detected: true, SourceType: models.SourceTypePodcast},
	}
	r.Register(h)

	r.Detect(context.Background(), "https://anchor.fm/show")
	r.Detect(context.Background(), "https://anchor.fm/show")

	if h.calls != 1 {
		t.Errorf("handler called %d times, want 1 (second Detect served from cache)", h.calls)
	}
}

func TestNewDefaultRegistry_SpecificityOrder(t *testing.T) {
	r := NewDefaultRegistry(nil, DefaultConfig(), nil, testLogger())

	types := r.SupportedTypes()
	expected := []models.SourceType{
		models.SourceTypeVideoChannel,
		models.SourceTypeVideoItem,
		models.SourceTypePodcast,
		models.SourceTypeSyndication,
		models.SourceTypeWebsite,
	}
	if len(types) != len(expected) {
		t.Fatalf("SupportedTypes() = %v", types)
	}
	for i, want := range expected {
		if types[i] != want {
			t.Errorf("SupportedTypes()[%d] = %q, want %q", i, types[i], want)
		}
	}

	if r.IsTypeSupported(models.SourceTypeNewsletter) {
		t.Error("newsletter sources are created by mail ingestion, not URL classification")
	}
}

func TestDefaultRegistry_PodcastHostBeatsWebsite(t *testing.T) {
	// A podcast-hosting URL also satisfies the generic fallback; ordering
	// must classify it as podcast without any network call.
	r := NewDefaultRegistry(nil, DefaultConfig(), nil, testLogger())

	result := r.Detect(context.Background(), "https://anchor.fm/s/abc/podcast/rss")

	if !result.Detected {
		t.Fatal("Detect() should classify a known podcast host")
	}
	if result.SourceType != models.SourceTypePodcast {
		t.Errorf("Detect().SourceType = %q, want podcast", result.SourceType)
	}
}

func TestDefaultRegistry_FeedURLDetectedWithoutNetwork(t *testing.T) {
	r := NewDefaultRegistry(nil, DefaultConfig(), nil, testLogger())

	result := r.Detect(context.Background(), "https://example.com/feed.xml")

	if !result.Detected {
		t.Fatal("Detect() should classify a feed-shaped URL")
	}
	if result.SourceType != models.SourceTypeSyndication {
		t.Errorf("Detect().SourceType = %q, want syndication", result.SourceType)
	}
	if result.TransformedURL != "https://example.com/feed.xml" {
		t.Errorf("Detect().TransformedURL = %q", result.TransformedURL)
	}
}

func TestDefaultRegistry_PageURLClassifiesAsWebsite(t *testing.T) {
	pageGets := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			pageGets++
		}
		fmt.Fprint(w, `<html><head>
			<title>Example Blog</title>
			<link rel="alternate" type="application/rss+xml" href="/blog/feed.xml">
		</head><body></body></html>`)
	}))
	defer server.Close()

	r := NewDefaultRegistry(nil, DefaultConfig(), nil, testLogger())

	result := r.Detect(context.Background(), server.URL+"/")

	if !result.Detected {
		t.Fatal("Detect() should classify a page with a discoverable feed")
	}
	if result.SourceType != models.SourceTypeWebsite {
		t.Errorf("Detect().SourceType = %q, want website", result.SourceType)
	}
	if result.TransformedURL != server.URL+"/blog/feed.xml" {
		t.Errorf("Detect().TransformedURL = %q, want discovered feed link", result.TransformedURL)
	}
	// Only the website fallback may touch the page; the chain before it is
	// pattern-only, so classification costs exactly one page fetch.
	if pageGets != 1 {
		t.Errorf("page fetched %d times during Detect(), want 1", pageGets)
	}
}
