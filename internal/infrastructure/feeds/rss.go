package feeds

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"DailySets/internal/domain"
	"DailySets/internal/fingerprint"
	"DailySets/internal/ports"
)

const (
	defaultMinPromptLength = 10
	snippetLimit           = 280
	rssAccept              = "application/rss+xml, application/atom+xml, application/xml, text/xml, */*"
)

var spaceExpr = regexp.MustCompile(`\s+`)

// RSSSource turns the entries of one RSS or Atom feed into headline items.
type RSSSource struct {
	meta      Meta
	url       string
	minLength int
	fetcher   *Fetcher
	policy    *bluemonday.Policy
}

var _ ports.ContentSource = (*RSSSource)(nil)

// NewRSSSource wires a feed URL; minLength defaults to 10 characters.
func NewRSSSource(meta Meta, url string, minLength int, fetcher *Fetcher) *RSSSource {
	if minLength <= 0 {
		minLength = defaultMinPromptLength
	}
	if meta.License == "" {
		meta.License = "fair-use"
	}
	return &RSSSource{
		meta:      meta,
		url:       url,
		minLength: minLength,
		fetcher:   fetcher,
		policy:    bluemonday.StrictPolicy(),
	}
}

func (s *RSSSource) ID() string     { return s.meta.ID }
func (s *RSSSource) Name() string   { return s.meta.Name }
func (s *RSSSource) ModeID() string { return s.meta.ModeID }

// Fetch downloads and parses the feed. Entries without title or link are skipped.
func (s *RSSSource) Fetch(ctx context.Context) ([]domain.Item, error) {
	body, err := s.fetcher.Get(ctx, s.url, rssAccept)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", s.url, err)
	}

	items := make([]domain.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		title := s.plain(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			continue
		}

		externalID := entry.GUID
		if externalID == "" {
			externalID = link
		}

		metadata := map[string]any{}
		if published := entryTime(entry); !published.IsZero() {
			metadata[domain.PublishDateKey] = published.UTC().Format(time.RFC3339)
		}
		if snippet := truncate(s.plain(entry.Description), snippetLimit); snippet != "" {
			metadata["snippet"] = snippet
		}

		items = append(items, domain.Item{
			ModeID:     s.meta.ModeID,
			Prompt:     title,
			Answer:     s.meta.Category,
			AssetType:  domain.AssetText,
			SourceName: s.meta.Name,
			SourceURL:  link,
			License:    s.meta.License,
			ExternalID: externalID,
			Hash:       fingerprint.Of(entry.Title, entry.Link),
			Metadata:   metadata,
		})
	}
	return items, nil
}

// Validate requires a headline of at least minLength characters in this mode.
func (s *RSSSource) Validate(item domain.Item) bool {
	if item.ModeID != s.meta.ModeID {
		return false
	}
	return len([]rune(item.Prompt)) >= s.minLength
}

func (s *RSSSource) plain(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.TrimSpace(spaceExpr.ReplaceAllString(text, " "))
}

func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
