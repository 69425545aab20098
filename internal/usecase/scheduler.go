package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"DailySets/internal/domain"
	"DailySets/internal/ports"
)

// SchedulerDeps wires the daily job.
type SchedulerDeps struct {
	Driver     ports.Scheduler
	Ingestor   *Ingestor
	Generator  *Generator
	Notifier   ports.Notifier
	Location   *time.Location
	Regenerate bool
	Logger     *slog.Logger
}

// Scheduler wires the cron driver with ingestion and generation.
type Scheduler struct {
	driver     ports.Scheduler
	ingestor   *Ingestor
	generator  *Generator
	notifier   ports.Notifier
	loc        *time.Location
	regenerate bool
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop the daily job.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		driver:     deps.Driver,
		ingestor:   deps.Ingestor,
		generator:  deps.Generator,
		notifier:   deps.Notifier,
		loc:        loc,
		regenerate: deps.Regenerate,
		logger:     logger,
	}
}

// RunOnce ingests, then generates the daily set of trigger's local day and
// publishes a report. Ingestion failures do not prevent generation.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) (Report, error) {
	date := domain.DateKey(domain.Today(trigger, s.loc))
	logger := s.logger.With("date", date)

	var ingest *IngestReport
	if s.ingestor != nil {
		res, err := s.ingestor.Run(ctx)
		if err != nil {
			logger.Error("ingestion failed", "error", err)
		}
		ingest = &res
	}

	if s.generator == nil {
		return Report{Date: date}, nil
	}

	generate := s.generator.Generate
	if s.regenerate {
		generate = s.generator.Regenerate
	}
	report, genErr := generate(ctx, date)
	if genErr != nil {
		logger.Error("daily set generation failed", "error", genErr)
	}

	if s.notifier != nil {
		if err := s.notifier.PublishReport(ctx, FormatRunReport(ingest, report, genErr)); err != nil {
			logger.Warn("publish run report", "error", err)
		}
	}

	if genErr != nil {
		return report, fmt.Errorf("daily job %s: %w", date, genErr)
	}
	return report, nil
}

// Start registers the daily job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_, _ = s.RunOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
