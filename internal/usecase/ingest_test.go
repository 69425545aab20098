package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailySets/internal/domain"
	"DailySets/internal/fingerprint"
	"DailySets/internal/infrastructure/storage"
	"DailySets/internal/ports"
)

type stubSource struct {
	id       string
	mode     string
	items    []domain.Item
	err      error
	inflight *atomic.Int32
	peak     *atomic.Int32
}

func (s *stubSource) ID() string     { return s.id }
func (s *stubSource) Name() string   { return "stub " + s.id }
func (s *stubSource) ModeID() string { return s.mode }

func (s *stubSource) Fetch(_ context.Context) ([]domain.Item, error) {
	if s.inflight != nil {
		n := s.inflight.Add(1)
		for {
			p := s.peak.Load()
			if n <= p || s.peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		s.inflight.Add(-1)
	}
	return s.items, s.err
}

func (s *stubSource) Validate(item domain.Item) bool {
	return len(item.Prompt) >= 3
}

func headline(prompt, link string) domain.Item {
	return domain.Item{Prompt: prompt, SourceURL: link, Answer: "Real"}
}

func TestIngestorStoresNewItems(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	src := &stubSource{id: "bbc", mode: satireMode, items: []domain.Item{
		headline("Budget passes", "https://bbc/1"),
		headline("Budget passes", "https://bbc/1"),
		headline("no", "https://bbc/2"),
		{Prompt: "Untagged story", SourceURL: "https://bbc/3"},
	}}
	in := NewIngestor(IngestDeps{Sources: []ports.ContentSource{src}, Store: store, Now: func() time.Time { return now }})

	report, err := in.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)

	res := report.Sources[0]
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 1, res.Invalid)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, report.Inserted())

	items, err := store.ItemsFor(context.Background(), satireMode)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, fingerprint.Of("Budget passes", "https://bbc/1"), items[0].Hash)
	assert.Equal(t, "stub bbc", items[0].SourceName)
	assert.Equal(t, now, items[0].CreatedAt)
	assert.Equal(t, domain.AssetText, items[0].AssetType)
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, domain.UnknownAnswer, items[1].Answer)

	again, err := in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Inserted())
	assert.Equal(t, 3, again.Sources[0].Duplicates)
}

func TestIngestorIsolatesFailingSources(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	broken := &stubSource{id: "onion", mode: satireMode, err: errors.New("502 bad gateway")}
	healthy := &stubSource{id: "bbc", mode: satireMode, items: []domain.Item{headline("Budget passes", "https://bbc/1")}}
	in := NewIngestor(IngestDeps{Sources: []ports.ContentSource{broken, healthy}, Store: store, Concurrency: 2})

	report, err := in.Run(context.Background())
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "onion", failed[0].SourceID)
	assert.ErrorContains(t, failed[0].Err, "502 bad gateway")
	assert.Equal(t, "bbc", report.Sources[1].SourceID)
	assert.Equal(t, 1, report.Sources[1].Inserted)
}

func TestIngestorStopsSourceOnStoreError(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	store.FailOn("upsert_item", errors.New("disk full"))
	src := &stubSource{id: "bbc", mode: satireMode, items: []domain.Item{
		headline("Budget passes", "https://bbc/1"),
		headline("Rates rise", "https://bbc/2"),
	}}
	in := NewIngestor(IngestDeps{Sources: []ports.ContentSource{src}, Store: store})

	report, err := in.Run(context.Background())
	require.NoError(t, err)

	var storeErr *domain.StoreError
	require.ErrorAs(t, report.Sources[0].Err, &storeErr)
	assert.Equal(t, "upsert_item", storeErr.Op)
	assert.Equal(t, 0, report.Sources[0].Inserted)
}

func TestIngestorBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inflight, peak atomic.Int32
	sources := make([]ports.ContentSource, 6)
	for i := range sources {
		sources[i] = &stubSource{id: string(rune('a' + i)), mode: satireMode, inflight: &inflight, peak: &peak}
	}
	in := NewIngestor(IngestDeps{Sources: sources, Store: storage.NewMemoryStore(), Concurrency: 2})

	report, err := in.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Sources, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestIngestorReportsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &stubSource{id: "bbc", mode: satireMode, items: []domain.Item{headline("Budget passes", "https://bbc/1")}}
	in := NewIngestor(IngestDeps{Sources: []ports.ContentSource{src}, Store: storage.NewMemoryStore()})

	_, err := in.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
