package feeds

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"DailySets/internal/domain"
	"DailySets/internal/fingerprint"
	"DailySets/internal/ports"
)

const htmlAccept = "text/html,application/xhtml+xml"

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// HTMLOptions selects the parts of a list page.
type HTMLOptions struct {
	// Item matches one entry per element.
	Item string
	// Title, Link and Date are evaluated inside an entry. An empty Title uses
	// the entry text; an empty Link uses the first a[href].
	Title string
	Link  string
	Date  string
	// Next matches the link to the following page; MaxPages bounds the walk.
	Next     string
	MaxPages int
}

// HTMLOptionsFrom reads the connector options of a source definition.
func HTMLOptionsFrom(selector string, opts map[string]string) HTMLOptions {
	o := HTMLOptions{
		Item:  selector,
		Title: opts["title"],
		Link:  opts["link"],
		Date:  opts["date"],
		Next:  opts["next"],
	}
	if n, err := strconv.Atoi(opts["maxPages"]); err == nil {
		o.MaxPages = n
	}
	return o
}

// HTMLListSource scrapes headline-like entries from list pages.
type HTMLListSource struct {
	meta      Meta
	url       string
	opts      HTMLOptions
	minLength int
	fetcher   *Fetcher
}

var _ ports.ContentSource = (*HTMLListSource)(nil)

// NewHTMLListSource wires a list page URL and its selectors.
func NewHTMLListSource(meta Meta, pageURL string, opts HTMLOptions, minLength int, fetcher *Fetcher) *HTMLListSource {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if opts.Link == "" {
		opts.Link = "a[href]"
	}
	if minLength <= 0 {
		minLength = defaultMinPromptLength
	}
	if meta.License == "" {
		meta.License = "fair-use"
	}
	return &HTMLListSource{meta: meta, url: pageURL, opts: opts, minLength: minLength, fetcher: fetcher}
}

func (s *HTMLListSource) ID() string     { return s.meta.ID }
func (s *HTMLListSource) Name() string   { return s.meta.Name }
func (s *HTMLListSource) ModeID() string { return s.meta.ModeID }

// Fetch walks up to MaxPages pages and returns their entries, deduplicated by link.
func (s *HTMLListSource) Fetch(ctx context.Context) ([]domain.Item, error) {
	if s.opts.Item == "" {
		return nil, fmt.Errorf("source %s: no item selector", s.meta.ID)
	}

	var (
		items   []domain.Item
		seen    = map[string]struct{}{}
		pageURL = s.url
	)
	for page := 0; page < s.opts.MaxPages && pageURL != ""; page++ {
		base, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("invalid page url %s: %w", pageURL, err)
		}

		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page+1, err)
		}

		doc.Find(s.opts.Item).Each(func(_ int, sel *goquery.Selection) {
			item, ok := s.parseEntry(sel, base)
			if !ok {
				return
			}
			if _, dup := seen[item.SourceURL]; dup {
				return
			}
			seen[item.SourceURL] = struct{}{}
			items = append(items, item)
		})

		pageURL = ""
		if s.opts.Next != "" {
			if href, ok := doc.Find(s.opts.Next).First().Attr("href"); ok {
				pageURL = resolve(base, href)
			}
		}
	}
	return items, nil
}

// Validate requires a title of at least minLength characters.
func (s *HTMLListSource) Validate(item domain.Item) bool {
	return item.ModeID == s.meta.ModeID && len([]rune(item.Prompt)) >= s.minLength
}

func (s *HTMLListSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := s.fetcher.Get(ctx, pageURL, htmlAccept)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (s *HTMLListSource) parseEntry(sel *goquery.Selection, base *url.URL) (domain.Item, bool) {
	titleSel := sel
	if s.opts.Title != "" {
		titleSel = sel.Find(s.opts.Title).First()
	}
	title := strings.TrimSpace(spaceExpr.ReplaceAllString(titleSel.Text(), " "))

	linkSel := sel
	if !sel.Is(s.opts.Link) {
		linkSel = sel.Find(s.opts.Link).First()
	}
	href, ok := linkSel.Attr("href")
	if !ok || title == "" {
		return domain.Item{}, false
	}
	link := resolve(base, href)

	metadata := map[string]any{}
	if s.opts.Date != "" {
		if published, ok := parseListDate(sel.Find(s.opts.Date).First()); ok {
			metadata[domain.PublishDateKey] = domain.DateKey(published)
		}
	}

	return domain.Item{
		ModeID:     s.meta.ModeID,
		Prompt:     title,
		Answer:     s.meta.Category,
		AssetType:  domain.AssetText,
		SourceName: s.meta.Name,
		SourceURL:  link,
		License:    s.meta.License,
		ExternalID: link,
		Hash:       fingerprint.Of(title, link),
		Metadata:   metadata,
	}, true
}

// parseListDate reads "2 Jan 2006" dates, or a datetime attribute on <time>.
func parseListDate(sel *goquery.Selection) (time.Time, bool) {
	if attr, ok := sel.Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, attr); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(domain.DateLayout, attr); err == nil {
			return parsed, true
		}
	}
	match := dateExpr.FindString(sel.Text())
	if match == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2 Jan 2006", match)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
