// Package media derives normalized media info from raw parsed feed items.
// Feeds describe media in wildly different ways, so extraction runs a
// prioritized list of strategies and stops at the first one that matches.
package media

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/mbaxter/skimmer/internal/models"
)

var youtubeIframeRe = regexp.MustCompile(`(?:youtube\.com/embed/|youtube-nocookie\.com/embed/|youtu\.be/)([a-zA-Z0-9_-]{6,})`)

// Extract derives {type, url, thumbnail, duration} for one parsed item.
// Strategy order, first match wins:
//  1. media:group / media:content markers (typed, with thumbnail and duration)
//  2. a single enclosure, typed by its MIME type
//  3. itunes artwork (with itunes duration when present)
//  4. a bare media:thumbnail
//  5. the item-level image
//  6. scan of embedded HTML for a video-host iframe, a video tag, or an img
func Extract(item *gofeed.Item) models.MediaInfo {
	if item == nil {
		return models.MediaInfo{Type: models.MediaTypeNone}
	}

	if info, ok := fromMediaExtension(item); ok {
		return info
	}
	if info, ok := fromEnclosure(item); ok {
		return info
	}
	if info, ok := fromITunes(item); ok {
		return info
	}
	if info, ok := fromThumbnail(item); ok {
		return info
	}
	if item.Image != nil && item.Image.URL != "" {
		return models.MediaInfo{Type: models.MediaTypeImage, URL: item.Image.URL, ThumbnailURL: item.Image.URL}
	}
	if info, ok := fromEmbeddedHTML(item); ok {
		return info
	}

	return models.MediaInfo{Type: models.MediaTypeNone}
}

func fromMediaExtension(item *gofeed.Item) (models.MediaInfo, bool) {
	ext, ok := item.Extensions["media"]
	if !ok {
		return models.MediaInfo{}, false
	}

	// media:group wraps content + thumbnail; flat media:content stands alone.
	contents := ext["content"]
	thumbnails := ext["thumbnail"]
	for _, group := range ext["group"] {
		contents = append(contents, group.Children["content"]...)
		thumbnails = append(thumbnails, group.Children["thumbnail"]...)
	}

	thumbURL := ""
	if len(thumbnails) > 0 {
		thumbURL = thumbnails[0].Attrs["url"]
	}

	for _, content := range contents {
		url := content.Attrs["url"]
		if url == "" {
			continue
		}

		mediaType := typeFromAttrs(content.Attrs["medium"], content.Attrs["type"])
		if mediaType == models.MediaTypeNone {
			continue
		}

		duration := 0
		if d, ok := ParseDuration(content.Attrs["duration"]); ok {
			duration = d
		}

		return models.MediaInfo{
			Type:            mediaType,
			URL:             url,
			ThumbnailURL:    thumbURL,
			DurationSeconds: duration,
		}, true
	}

	return models.MediaInfo{}, false
}

func fromEnclosure(item *gofeed.Item) (models.MediaInfo, bool) {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		mediaType := typeFromAttrs("", enc.Type)
		if mediaType == models.MediaTypeNone {
			continue
		}

		info := models.MediaInfo{Type: mediaType, URL: enc.URL}
		if item.ITunesExt != nil {
			info.ThumbnailURL = item.ITunesExt.Image
			if d, ok := ParseDuration(item.ITunesExt.Duration); ok {
				info.DurationSeconds = d
			}
		}
		return info, true
	}
	return models.MediaInfo{}, false
}

func fromITunes(item *gofeed.Item) (models.MediaInfo, bool) {
	if item.ITunesExt == nil || item.ITunesExt.Image == "" {
		return models.MediaInfo{}, false
	}

	info := models.MediaInfo{
		Type:         models.MediaTypeImage,
		URL:          item.ITunesExt.Image,
		ThumbnailURL: item.ITunesExt.Image,
	}
	if d, ok := ParseDuration(item.ITunesExt.Duration); ok {
		info.DurationSeconds = d
	}
	return info, true
}

func fromThumbnail(item *gofeed.Item) (models.MediaInfo, bool) {
	thumbnails := item.Extensions["media"]["thumbnail"]
	for _, group := range item.Extensions["media"]["group"] {
		thumbnails = append(thumbnails, group.Children["thumbnail"]...)
	}
	for _, thumb := range thumbnails {
		if url := thumb.Attrs["url"]; url != "" {
			return models.MediaInfo{Type: models.MediaTypeImage, URL: url, ThumbnailURL: url}, true
		}
	}
	return models.MediaInfo{}, false
}

func fromEmbeddedHTML(item *gofeed.Item) (models.MediaInfo, bool) {
	html := item.Content
	if html == "" {
		html = item.Description
	}
	if !strings.Contains(html, "<") {
		return models.MediaInfo{}, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.MediaInfo{}, false
	}

	var found models.MediaInfo

	doc.Find("iframe").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src == "" {
			return true
		}
		found = models.MediaInfo{Type: models.MediaTypeVideo, URL: src}
		if m := youtubeIframeRe.FindStringSubmatch(src); len(m) > 1 {
			found.ThumbnailURL = YouTubeThumbnail(m[1])
		}
		return false
	})
	if found.URL != "" {
		return found, true
	}

	doc.Find("video").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src == "" {
			src, _ = s.Find("source").Attr("src")
		}
		if src == "" {
			return true
		}
		poster, _ := s.Attr("poster")
		found = models.MediaInfo{Type: models.MediaTypeVideo, URL: src, ThumbnailURL: poster}
		return false
	})
	if found.URL != "" {
		return found, true
	}

	if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
		return models.MediaInfo{Type: models.MediaTypeImage, URL: src, ThumbnailURL: src}, true
	}

	return models.MediaInfo{}, false
}

func typeFromAttrs(medium, mime string) models.MediaType {
	switch medium {
	case "video":
		return models.MediaTypeVideo
	case "image":
		return models.MediaTypeImage
	case "audio":
		return models.MediaTypeAudio
	}

	switch {
	case strings.HasPrefix(mime, "video/"):
		return models.MediaTypeVideo
	case strings.HasPrefix(mime, "image/"):
		return models.MediaTypeImage
	case strings.HasPrefix(mime, "audio/"):
		return models.MediaTypeAudio
	}
	return models.MediaTypeNone
}

// YouTubeThumbnail returns the predictable thumbnail URL for a video id
func YouTubeThumbnail(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
}
