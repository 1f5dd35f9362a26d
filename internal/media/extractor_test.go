package media

import (
	"testing"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/mbaxter/skimmer/internal/models"
)

func mediaGroupItem(contentAttrs, thumbAttrs map[string]string) *gofeed.Item {
	return &gofeed.Item{
		Extensions: ext.Extensions{
			"media": {
				"group": []ext.Extension{{
					Name: "group",
					Children: map[string][]ext.Extension{
						"content":   {{Name: "content", Attrs: contentAttrs}},
						"thumbnail": {{Name: "thumbnail", Attrs: thumbAttrs}},
					},
				}},
			},
		},
	}
}

func TestExtract_MediaGroup(t *testing.T) {
	item := mediaGroupItem(
		map[string]string{"url": "https://video.example/v/abc", "medium": "video", "duration": "125"},
		map[string]string{"url": "https://video.example/t/abc.jpg"},
	)

	info := Extract(item)

	if info.Type != models.MediaTypeVideo {
		t.Errorf("Extract().Type = %q, want video", info.Type)
	}
	if info.URL != "https://video.example/v/abc" {
		t.Errorf("Extract().URL = %q", info.URL)
	}
	if info.ThumbnailURL != "https://video.example/t/abc.jpg" {
		t.Errorf("Extract().ThumbnailURL = %q", info.ThumbnailURL)
	}
	if info.DurationSeconds != 125 {
		t.Errorf("Extract().DurationSeconds = %d, want 125", info.DurationSeconds)
	}
}

func TestExtract_MediaGroupBeatsBareThumbnail(t *testing.T) {
	// An item carrying both a rich media:group and a standalone thumbnail
	// must extract via the group's thumbnail, not the generic one.
	item := mediaGroupItem(
		map[string]string{"url": "https://video.example/v/abc", "medium": "video"},
		map[string]string{"url": "https://video.example/rich.jpg"},
	)
	item.Extensions["media"]["thumbnail"] = []ext.Extension{
		{Name: "thumbnail", Attrs: map[string]string{"url": "https://video.example/generic.jpg"}},
	}

	info := Extract(item)

	if info.Type != models.MediaTypeVideo {
		t.Fatalf("Extract().Type = %q, want video", info.Type)
	}
	if info.ThumbnailURL != "https://video.example/rich.jpg" {
		t.Errorf("Extract().ThumbnailURL = %q, want the media:group thumbnail", info.ThumbnailURL)
	}
}

func TestExtract_EnclosureMIME(t *testing.T) {
	tests := []struct {
		mime     string
		expected models.MediaType
	}{
		{"audio/mpeg", models.MediaTypeAudio},
		{"video/mp4", models.MediaTypeVideo},
		{"image/jpeg", models.MediaTypeImage},
	}

	for _, tt := range tests {
		item := &gofeed.Item{
			Enclosures: []*gofeed.Enclosure{{URL: "https://cdn.example/asset", Type: tt.mime}},
		}
		info := Extract(item)
		if info.Type != tt.expected {
			t.Errorf("Extract() with enclosure %q = %q, want %q", tt.mime, info.Type, tt.expected)
		}
		if info.URL != "https://cdn.example/asset" {
			t.Errorf("Extract().URL = %q", info.URL)
		}
	}
}

func TestExtract_EnclosureSkipsUnknownMIME(t *testing.T) {
	item := &gofeed.Item{
		Enclosures: []*gofeed.Enclosure{
			{URL: "https://cdn.example/doc.pdf", Type: "application/pdf"},
			{URL: "https://cdn.example/ep.mp3", Type: "audio/mpeg"},
		},
	}
	info := Extract(item)
	if info.Type != models.MediaTypeAudio || info.URL != "https://cdn.example/ep.mp3" {
		t.Errorf("Extract() = %+v, want the typed audio enclosure", info)
	}
}

func TestExtract_ITunesImageAndDuration(t *testing.T) {
	// Podcast item with no enclosure: artwork plus duration string.
	item := &gofeed.Item{
		ITunesExt: &ext.ITunesItemExtension{
			Image:    "https://pod.example/art.jpg",
			Duration: "01:02:03",
		},
	}

	info := Extract(item)

	if info.Type != models.MediaTypeImage {
		t.Errorf("Extract().Type = %q, want image", info.Type)
	}
	if info.URL != "https://pod.example/art.jpg" {
		t.Errorf("Extract().URL = %q", info.URL)
	}
	if info.DurationSeconds != 3723 {
		t.Errorf("Extract().DurationSeconds = %d, want 3723", info.DurationSeconds)
	}
}

func TestExtract_BareThumbnail(t *testing.T) {
	item := &gofeed.Item{
		Extensions: ext.Extensions{
			"media": {
				"thumbnail": []ext.Extension{{Name: "thumbnail", Attrs: map[string]string{"url": "https://x.example/t.jpg"}}},
			},
		},
	}
	info := Extract(item)
	if info.Type != models.MediaTypeImage || info.ThumbnailURL != "https://x.example/t.jpg" {
		t.Errorf("Extract() = %+v, want bare thumbnail image", info)
	}
}

func TestExtract_ItemImage(t *testing.T) {
	item := &gofeed.Item{Image: &gofeed.Image{URL: "https://x.example/page.jpg"}}
	info := Extract(item)
	if info.Type != models.MediaTypeImage || info.URL != "https://x.example/page.jpg" {
		t.Errorf("Extract() = %+v, want page-level image", info)
	}
}

func TestExtract_EmbeddedYouTubeIframe(t *testing.T) {
	item := &gofeed.Item{
		Content: `<p>Watch:</p><iframe src="https://www.youtube.com/embed/dQw4w9WgXcQ"></iframe><img src="https://x.example/later.jpg">`,
	}

	info := Extract(item)

	if info.Type != models.MediaTypeVideo {
		t.Fatalf("Extract().Type = %q, want video", info.Type)
	}
	if info.URL != "https://www.youtube.com/embed/dQw4w9WgXcQ" {
		t.Errorf("Extract().URL = %q", info.URL)
	}
	if info.ThumbnailURL != "https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Errorf("Extract().ThumbnailURL = %q, want derived thumbnail", info.ThumbnailURL)
	}
}

func TestExtract_EmbeddedVideoTag(t *testing.T) {
	item := &gofeed.Item{
		Content: `<video poster="https://x.example/p.jpg"><source src="https://x.example/clip.mp4"></video>`,
	}
	info := Extract(item)
	if info.Type != models.MediaTypeVideo || info.URL != "https://x.example/clip.mp4" {
		t.Errorf("Extract() = %+v, want native video tag", info)
	}
	if info.ThumbnailURL != "https://x.example/p.jpg" {
		t.Errorf("Extract().ThumbnailURL = %q, want poster", info.ThumbnailURL)
	}
}

func TestExtract_EmbeddedFirstImage(t *testing.T) {
	item := &gofeed.Item{
		Description: `<p>text</p><img src="https://x.example/one.jpg"><img src="https://x.example/two.jpg">`,
	}
	info := Extract(item)
	if info.Type != models.MediaTypeImage || info.URL != "https://x.example/one.jpg" {
		t.Errorf("Extract() = %+v, want first inline image", info)
	}
}

func TestExtract_NoMedia(t *testing.T) {
	info := Extract(&gofeed.Item{Title: "plain", Description: "no markup here"})
	if info.Type != models.MediaTypeNone {
		t.Errorf("Extract().Type = %q, want none", info.Type)
	}

	if got := Extract(nil); got.Type != models.MediaTypeNone {
		t.Errorf("Extract(nil).Type = %q, want none", got.Type)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"90", 90, true},
		{"0", 0, true},
		{"02:30", 150, true},
		{"01:02:03", 3723, true},
		{"1:00:00", 3600, true},
		{" 45 ", 45, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1:2:3:4", 0, false},
		{"-5", 0, false},
		{"1:xx", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseDuration(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseDuration(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}
