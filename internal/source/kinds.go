package source

import (
	"DailySets/internal/config"
	"DailySets/internal/infrastructure/feeds"
	"DailySets/internal/ports"
)

// NewDefaultRegistry registers the built-in connectors, all sharing fetcher.
func NewDefaultRegistry(fetcher *feeds.Fetcher) *Registry {
	reg := NewRegistry()

	reg.Register(config.SourceRSS, func(cfg config.SourceConfig) (ports.ContentSource, error) {
		return feeds.NewRSSSource(metaOf(cfg), cfg.URL, cfg.MinLength, fetcher), nil
	})

	reg.Register(config.SourceHTML, func(cfg config.SourceConfig) (ports.ContentSource, error) {
		opts := feeds.HTMLOptionsFrom(cfg.Selector, cfg.Options)
		return feeds.NewHTMLListSource(metaOf(cfg), cfg.URL, opts, cfg.MinLength, fetcher), nil
	})

	reg.Register(config.SourceWikidata, func(cfg config.SourceConfig) (ports.ContentSource, error) {
		return feeds.NewWikidataSource(metaOf(cfg), cfg.URL, cfg.Query, cfg.Prompt, fetcher), nil
	})

	reg.Register(config.SourceStatic, func(cfg config.SourceConfig) (ports.ContentSource, error) {
		entries := make([]feeds.StaticEntry, 0, len(cfg.Items))
		for _, it := range cfg.Items {
			entries = append(entries, feeds.StaticEntry{Text: it.Text, Answer: it.Answer, Metadata: it.Metadata})
		}
		return feeds.NewStaticSource(metaOf(cfg), entries), nil
	})

	return reg
}

func metaOf(cfg config.SourceConfig) feeds.Meta {
	name := cfg.Name
	if name == "" {
		name = cfg.ID
	}
	return feeds.Meta{
		ID:       cfg.ID,
		Name:     name,
		ModeID:   cfg.Mode,
		Category: cfg.Category,
		License:  cfg.License,
	}
}
