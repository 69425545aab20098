package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"DailySets/internal/domain"
	"DailySets/internal/fingerprint"
	"DailySets/internal/metrics"
	"DailySets/internal/ports"
)

// IngestDeps wires the content sources and the store into ingestion.
type IngestDeps struct {
	Sources     []ports.ContentSource
	Store       ports.ItemStore
	Concurrency int
	Logger      *slog.Logger
	Now         func() time.Time
}

// SourceResult counts what one source contributed to a run.
type SourceResult struct {
	SourceID   string
	Name       string
	ModeID     string
	Fetched    int
	Inserted   int
	Duplicates int
	Invalid    int
	Err        error
}

// IngestReport lists per-source results in source order.
type IngestReport struct {
	Sources []SourceResult
}

// Inserted sums new items across sources.
func (r IngestReport) Inserted() int {
	var n int
	for _, s := range r.Sources {
		n += s.Inserted
	}
	return n
}

// Failed lists the sources that could not be fetched or stored.
func (r IngestReport) Failed() []SourceResult {
	var failed []SourceResult
	for _, s := range r.Sources {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Ingestor pulls candidate items from every source into the store.
type Ingestor struct {
	sources     []ports.ContentSource
	store       ports.ItemStore
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewIngestor constructs the ingestion component.
func NewIngestor(deps IngestDeps) *Ingestor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Ingestor{
		sources:     deps.Sources,
		store:       deps.Store,
		concurrency: concurrency,
		logger:      logger,
		now:         now,
	}
}

// Run fetches all sources, at most concurrency at a time. A failing source is
// recorded in the report and does not stop the others.
func (in *Ingestor) Run(ctx context.Context) (IngestReport, error) {
	report := IngestReport{Sources: make([]SourceResult, len(in.sources))}
	if len(in.sources) == 0 {
		return report, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for i, src := range in.sources {
		g.Go(func() error {
			report.Sources[i] = in.ingestSource(gctx, src)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("ingest: %w", err)
	}

	in.logger.Info("ingestion complete",
		"sources", len(report.Sources),
		"inserted", report.Inserted(),
		"failed", len(report.Failed()))
	return report, nil
}

func (in *Ingestor) ingestSource(ctx context.Context, src ports.ContentSource) SourceResult {
	res := SourceResult{SourceID: src.ID(), Name: src.Name(), ModeID: src.ModeID()}
	logger := in.logger.With("source", src.ID(), "mode", src.ModeID())

	items, err := src.Fetch(ctx)
	if err != nil {
		res.Err = fmt.Errorf("fetch %s: %w", src.ID(), err)
		metrics.RecordSourceError(src.ID())
		logger.Error("source fetch failed", "error", err)
		return res
	}
	res.Fetched = len(items)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		if !src.Validate(item) {
			res.Invalid++
			continue
		}

		item = in.normalize(src, item)
		outcome, err := in.store.UpsertItem(ctx, item)
		if err != nil {
			res.Err = fmt.Errorf("store item from %s: %w", src.ID(), err)
			metrics.RecordSourceError(src.ID())
			logger.Error("item upsert failed", "hash", item.Hash, "error", err)
			break
		}
		if outcome == domain.AlreadyExists {
			res.Duplicates++
			continue
		}
		res.Inserted++
	}

	metrics.RecordIngest(src.ID(), res.Inserted, res.Duplicates, res.Invalid)
	logger.Info("source ingested",
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"invalid", res.Invalid)
	return res
}

func (in *Ingestor) normalize(src ports.ContentSource, item domain.Item) domain.Item {
	if item.ModeID == "" {
		item.ModeID = src.ModeID()
	}
	if item.SourceName == "" {
		item.SourceName = src.Name()
	}
	if item.Hash == "" {
		item.Hash = fingerprint.Of(item.Prompt, item.SourceURL)
	}
	if item.Answer == "" {
		item.Answer = domain.UnknownAnswer
	}
	if item.AssetType == "" {
		item.AssetType = domain.AssetText
	}
	if item.Status == "" {
		item.Status = domain.StatusActive
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = in.now().UTC()
	}
	return item
}
