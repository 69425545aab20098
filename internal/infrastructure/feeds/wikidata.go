package feeds

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"DailySets/internal/domain"
	"DailySets/internal/fingerprint"
	"DailySets/internal/ports"
	"DailySets/internal/rng"
)

const (
	// WikidataEndpoint is the public SPARQL service.
	WikidataEndpoint = "https://query.wikidata.org/sparql"

	wikidataAccept = "application/sparql-results+json"
	choiceCount    = 4
	imageURLKey    = "image_url"
	choicesKey     = "choices"
)

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

// WikidataSource runs a SPARQL query returning ?item ?itemLabel ?image and turns
// every row into a multiple-choice image item whose answer is the label.
type WikidataSource struct {
	meta     Meta
	endpoint string
	query    string
	prompt   string
	fetcher  *Fetcher
}

var _ ports.ContentSource = (*WikidataSource)(nil)

// NewWikidataSource wires a query; an empty endpoint uses WikidataEndpoint.
func NewWikidataSource(meta Meta, endpoint, query, prompt string, fetcher *Fetcher) *WikidataSource {
	if endpoint == "" {
		endpoint = WikidataEndpoint
	}
	if prompt == "" {
		prompt = fmt.Sprintf("What is this %s?", strings.ToLower(meta.Name))
	}
	if meta.License == "" {
		meta.License = "cc-by-sa"
	}
	return &WikidataSource{meta: meta, endpoint: endpoint, query: query, prompt: prompt, fetcher: fetcher}
}

func (s *WikidataSource) ID() string     { return s.meta.ID }
func (s *WikidataSource) Name() string   { return s.meta.Name }
func (s *WikidataSource) ModeID() string { return s.meta.ModeID }

// Fetch runs the query. Fewer than four rows cannot build choices and yield nothing.
func (s *WikidataSource) Fetch(ctx context.Context) ([]domain.Item, error) {
	endpoint, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %s: %w", s.endpoint, err)
	}
	q := endpoint.Query()
	q.Set("query", s.query)
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()

	body, err := s.fetcher.Get(ctx, endpoint.String(), wikidataAccept)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp sparqlResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode sparql response: %w", err)
	}

	rows := resp.Results.Bindings
	if len(rows) < choiceCount {
		return nil, nil
	}

	labels := distinctLabels(rows)
	seen := map[string]struct{}{}
	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		label := strings.TrimSpace(row["itemLabel"].Value)
		image := strings.TrimSpace(row["image"].Value)
		entity := row["item"].Value
		if label == "" || image == "" {
			continue
		}

		hash := fingerprint.Of(image, label)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}

		choices := buildChoices(label, labels, rng.New(hash))
		items = append(items, domain.Item{
			ModeID:     s.meta.ModeID,
			Prompt:     s.prompt,
			Answer:     label,
			Choices:    choices,
			AssetType:  domain.AssetImage,
			SourceName: "Wikidata",
			SourceURL:  entity,
			License:    s.meta.License,
			ExternalID: entity,
			Hash:       hash,
			Metadata: map[string]any{
				imageURLKey: image,
				choicesKey:  choices,
			},
		})
	}
	return items, nil
}

// Validate requires a prompt, an image and a full set of choices.
func (s *WikidataSource) Validate(item domain.Item) bool {
	image, _ := item.Metadata[imageURLKey].(string)
	return item.Prompt != "" && image != "" && len(item.Choices) == choiceCount
}

func distinctLabels(rows []map[string]sparqlValue) []string {
	var labels []string
	for _, row := range rows {
		label := strings.TrimSpace(row["itemLabel"].Value)
		if label != "" && !slices.Contains(labels, label) {
			labels = append(labels, label)
		}
	}
	return labels
}

// buildChoices draws three distractors from labels and shuffles them with the
// answer. The draw is keyed by the item so re-ingestion is stable.
func buildChoices(answer string, labels []string, r *rng.Rng) []string {
	available := make([]string, 0, len(labels))
	for _, l := range labels {
		if l != answer {
			available = append(available, l)
		}
	}

	choices := make([]string, 0, choiceCount)
	for len(choices) < choiceCount-1 && len(available) > 0 {
		idx := r.IntN(len(available))
		choices = append(choices, available[idx])
		available = slices.Delete(available, idx, idx+1)
	}
	choices = append(choices, answer)

	r.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	return choices
}
