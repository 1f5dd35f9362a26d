package sources

import (
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/mbaxter/skimmer/internal/media"
	"github.com/mbaxter/skimmer/internal/models"
)

const excerptLen = 300

// buildFeedInfo converts a parsed gofeed feed into the normalized shape,
// running media extraction per item.
func buildFeedInfo(feed *gofeed.Feed) *models.FeedInfo {
	info := &models.FeedInfo{
		Title:       feed.Title,
		Description: feed.Description,
		Items:       make([]models.ProcessedContentItem, 0, len(feed.Items)),
	}
	if feed.Image != nil {
		info.ImageURL = feed.Image.URL
	}

	for _, item := range feed.Items {
		info.Items = append(info.Items, convertItem(item))
	}
	return info
}

func convertItem(item *gofeed.Item) models.ProcessedContentItem {
	content := item.Content
	if content == "" {
		content = item.Description
	}

	converted := models.ProcessedContentItem{
		URL:         item.Link,
		Title:       item.Title,
		Content:     content,
		Excerpt:     excerpt(item.Description, excerptLen),
		Author:      itemAuthor(item),
		PublishedAt: itemPublished(item),
		Media:       media.Extract(item),
	}
	if converted.Excerpt == "" {
		converted.Excerpt = excerpt(content, excerptLen)
	}

	if len(item.Categories) > 0 {
		converted.Metadata = map[string]interface{}{"categories": item.Categories}
	}
	if item.GUID != "" {
		if converted.Metadata == nil {
			converted.Metadata = map[string]interface{}{}
		}
		converted.Metadata["guid"] = item.GUID
	}
	return converted
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if item.ITunesExt != nil && item.ITunesExt.Author != "" {
		return item.ITunesExt.Author
	}
	return ""
}

func itemPublished(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Now()
}
