package feeds

import (
	"context"
	"maps"
	"strings"

	"DailySets/internal/domain"
	"DailySets/internal/fingerprint"
	"DailySets/internal/ports"
)

// StaticEntry is one hand-curated prompt.
type StaticEntry struct {
	Text     string
	Answer   string
	Metadata map[string]any
}

// StaticSource serves a fixed corpus from configuration.
type StaticSource struct {
	meta    Meta
	entries []StaticEntry
}

var _ ports.ContentSource = (*StaticSource)(nil)

// NewStaticSource wraps entries; an entry without answer takes the source category.
func NewStaticSource(meta Meta, entries []StaticEntry) *StaticSource {
	if meta.License == "" {
		meta.License = "cc0"
	}
	return &StaticSource{meta: meta, entries: entries}
}

func (s *StaticSource) ID() string     { return s.meta.ID }
func (s *StaticSource) Name() string   { return s.meta.Name }
func (s *StaticSource) ModeID() string { return s.meta.ModeID }

// Fetch returns the corpus. Hashes cover text, category and mode.
func (s *StaticSource) Fetch(_ context.Context) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(s.entries))
	for _, e := range s.entries {
		answer := e.Answer
		if answer == "" {
			answer = s.meta.Category
		}
		hash := fingerprint.Of(e.Text, s.meta.Category, s.meta.ModeID)
		items = append(items, domain.Item{
			ModeID:     s.meta.ModeID,
			Prompt:     e.Text,
			Answer:     answer,
			AssetType:  domain.AssetText,
			SourceName: s.meta.Name,
			License:    s.meta.License,
			ExternalID: hash,
			Hash:       hash,
			Metadata:   maps.Clone(e.Metadata),
		})
	}
	return items, nil
}

// Validate rejects blank prompts.
func (s *StaticSource) Validate(item domain.Item) bool {
	return strings.TrimSpace(item.Prompt) != ""
}
