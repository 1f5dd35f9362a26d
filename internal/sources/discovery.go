package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Conventional feed locations probed, in order, when a page carries no
// feed link tag.
var conventionalFeedPaths = []string{
	"/feed",
	"/feed/",
	"/rss",
	"/rss.xml",
	"/feed.xml",
	"/atom.xml",
	"/index.xml",
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func isHTTPURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

// fetchPage GETs an HTML page with the page-scrape timeout applied
func fetchPage(ctx context.Context, client *http.Client, rawURL, userAgent string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page %s returned status %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", rawURL, err)
	}
	return doc, nil
}

// discoverFeedLink scans a page for an alternate feed link tag
func discoverFeedLink(doc *goquery.Document, baseURL string) string {
	found := ""
	doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		linkType, _ := s.Attr("type")
		if !strings.Contains(linkType, "rss") && !strings.Contains(linkType, "atom") && !strings.Contains(linkType, "feed+json") {
			return true
		}
		href, _ := s.Attr("href")
		if href == "" {
			return true
		}
		found = resolveRef(baseURL, href)
		return false
	})
	return found
}

// probeConventionalPaths issues HEAD requests against well-known feed
// locations, each bounded by the probe timeout, and returns the first hit.
func probeConventionalPaths(ctx context.Context, client *http.Client, cfg HandlerConfig, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	base := u.Scheme + "://" + u.Host

	for _, path := range conventionalFeedPaths {
		candidate := base + path

		probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
		req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, candidate, nil)
		if err != nil {
			cancel()
			continue
		}
		req.Header.Set("User-Agent", cfg.UserAgent)

		resp, err := client.Do(req)
		cancel()
		if err != nil {
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			contentType := resp.Header.Get("Content-Type")
			if contentType == "" || strings.Contains(contentType, "xml") || strings.Contains(contentType, "rss") || strings.Contains(contentType, "atom") || strings.Contains(contentType, "json") {
				return candidate
			}
		}
	}
	return ""
}

// resolveRef resolves a possibly-relative href against a base URL
func resolveRef(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// pageTitle extracts a display title from a scraped page
func pageTitle(doc *goquery.Document) string {
	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && title != "" {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// faviconFromPage resolves an icon link from the page, falling back to the
// conventional /favicon.ico location.
func faviconFromPage(ctx context.Context, client *http.Client, cfg HandlerConfig, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}

	pageCtx, cancel := context.WithTimeout(ctx, cfg.PageTimeout)
	defer cancel()

	if doc, err := fetchPage(pageCtx, client, u.Scheme+"://"+u.Host, cfg.UserAgent); err == nil {
		icon := ""
		doc.Find(`link[rel~="icon"], link[rel="shortcut icon"], link[rel="apple-touch-icon"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if href, ok := s.Attr("href"); ok && href != "" {
				icon = resolveRef(rawURL, href)
				return false
			}
			return true
		})
		if icon != "" {
			return icon
		}
	}

	return u.Scheme + "://" + u.Host + "/favicon.ico"
}

// stripTags flattens HTML to text for excerpts
func stripTags(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// excerpt builds a short plain-text summary from item HTML
func excerpt(s string, maxLen int) string {
	s = stripTags(s)
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	// The byte cut may land inside a multi-byte rune; back up to a boundary
	// so text without ASCII spaces still yields valid UTF-8.
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
