package domain

import (
	"strings"
	"time"
)

// UnknownAnswer groups items that carry no category label.
const UnknownAnswer = "unknown"

// PublishDateKey is the metadata key connectors use for the upstream publish date.
const PublishDateKey = "publish_date"

// AssetType enumerates the media an item presents to the player.
type AssetType string

const (
	AssetText  AssetType = "text"
	AssetImage AssetType = "image"
	AssetAudio AssetType = "audio"
	AssetVideo AssetType = "video"
)

// ItemStatus toggles whether an item takes part in generation.
type ItemStatus string

const (
	StatusActive   ItemStatus = "active"
	StatusInactive ItemStatus = "inactive"
)

// Item is a single candidate piece of content with a ground-truth label.
type Item struct {
	ID         string
	ModeID     string
	Prompt     string
	Answer     string
	Choices    []string
	AssetType  AssetType
	SourceName string
	SourceURL  string
	License    string
	ExternalID string
	Hash       string
	Metadata   map[string]any
	Status     ItemStatus
	CreatedAt  time.Time
}

// Category returns the balance bucket of the item.
func (i Item) Category() string {
	if answer := strings.TrimSpace(i.Answer); answer != "" {
		return answer
	}
	return UnknownAnswer
}

var publishLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	DateLayout,
}

// Freshness is the recency timestamp used for ordering: the upstream publish
// date when present and parseable, otherwise the ingestion time.
func (i Item) Freshness() time.Time {
	if published, ok := i.PublishedAt(); ok {
		return published
	}
	return i.CreatedAt
}

// PublishedAt extracts metadata.publish_date.
func (i Item) PublishedAt() (time.Time, bool) {
	raw, ok := i.Metadata[PublishDateKey]
	if !ok || raw == nil {
		return time.Time{}, false
	}

	switch v := raw.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, false
		}
		for _, layout := range publishLayouts {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed, true
			}
		}
	}

	return time.Time{}, false
}
