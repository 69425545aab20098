package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"DailySets/internal/domain"
	"DailySets/internal/metrics"
	"DailySets/internal/ports"
	"DailySets/internal/rng"
	"DailySets/internal/selection"
)

// Phase is the generator's position in NotStarted → SetCreated →
// PerModeGenerated → Complete.
type Phase string

const (
	PhaseNotStarted       Phase = "not_started"
	PhaseSetCreated       Phase = "set_created"
	PhasePerModeGenerated Phase = "per_mode_generated"
	PhaseComplete         Phase = "complete"
)

// ModeStatus is the per-mode result of a run.
type ModeStatus string

const (
	ModeGenerated        ModeStatus = "generated"
	ModeAlreadyPopulated ModeStatus = "already_populated"
	ModeInsufficient     ModeStatus = "insufficient"
	ModeFailed           ModeStatus = "failed"
)

// ModeOutcome records what happened to one mode.
type ModeOutcome struct {
	ModeID     string
	Status     ModeStatus
	Strategy   string
	Candidates int
	Selected   int
	FellBack   bool
	Degraded   bool
	Err        error
}

// Report is the operator-facing summary of a run.
type Report struct {
	Date    string
	Seed    int64
	Resumed bool
	Phase   Phase
	Modes   []ModeOutcome
}

// Failed lists the modes whose generation failed.
func (r Report) Failed() []ModeOutcome {
	var failed []ModeOutcome
	for _, m := range r.Modes {
		if m.Status == ModeFailed {
			failed = append(failed, m)
		}
	}
	return failed
}

// GeneratorDeps wires the collaborators of the generator.
type GeneratorDeps struct {
	Store          ports.ItemStore
	Admin          ports.AdminStore
	Modes          ports.ModeCatalog
	Freshness      selection.FreshnessPolicy
	MinItems       int
	PositionOffset int
	Logger         *slog.Logger
}

// Generator materialises the daily set of a date, at most once per mode.
type Generator struct {
	store     ports.ItemStore
	admin     ports.AdminStore
	modes     ports.ModeCatalog
	freshness selection.FreshnessPolicy
	minItems  int
	offset    int
	logger    *slog.Logger
}

// NewGenerator constructs the orchestration component.
func NewGenerator(deps GeneratorDeps) *Generator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		store:     deps.Store,
		admin:     deps.Admin,
		modes:     deps.Modes,
		freshness: deps.Freshness,
		minItems:  deps.MinItems,
		offset:    deps.PositionOffset,
		logger:    logger,
	}
}

// Generate builds the daily set for date (YYYY-MM-DD). Only a failure to
// create the daily set row, an invalid date or cancellation return an error;
// per-mode failures are reported in the Report.
func (g *Generator) Generate(ctx context.Context, date string) (Report, error) {
	report := Report{Date: date, Phase: PhaseNotStarted}

	day, err := domain.ParseDate(date)
	if err != nil {
		return report, err
	}
	dateKey := domain.DateKey(day)
	report.Date = dateKey

	exists, err := g.store.DailySetExists(ctx, day)
	if err != nil {
		metrics.RecordRun(false)
		return report, fmt.Errorf("check daily set %s: %w", dateKey, err)
	}

	report.Seed = rng.DaySeed(dateKey)
	if exists {
		report.Resumed = true
		g.logger.Info("daily set exists, resuming", "date", dateKey)
	} else {
		res, err := g.store.InsertDailySet(ctx, domain.DailySet{Date: day, Seed: report.Seed})
		if err != nil {
			metrics.RecordRun(false)
			return report, fmt.Errorf("create daily set %s: %w", dateKey, err)
		}
		report.Resumed = res == domain.AlreadyExists
		g.logger.Info("daily set created", "date", dateKey, "seed", report.Seed, "result", res.String())
	}
	report.Phase = PhaseSetCreated

	modes, err := g.modes.ActiveModes(ctx)
	if err != nil {
		metrics.RecordRun(false)
		return report, fmt.Errorf("list active modes: %w", err)
	}
	if len(modes) == 0 {
		g.logger.Warn("no active modes", "date", dateKey)
	}

	for _, mode := range modes {
		if err := ctx.Err(); err != nil {
			g.logger.Warn("generation interrupted", "date", dateKey, "remaining_from", mode.ID)
			return report, fmt.Errorf("generate %s: %w", dateKey, err)
		}

		outcome := g.generateMode(ctx, day, dateKey, mode)
		report.Modes = append(report.Modes, outcome)
		report.Phase = PhasePerModeGenerated
		metrics.RecordMode(mode.ID, string(outcome.Status), outcome.Selected, outcome.FellBack)
		g.logOutcome(dateKey, outcome)
	}

	report.Phase = PhaseComplete
	metrics.RecordRun(true)
	g.logger.Info("daily set generation complete",
		"date", dateKey, "modes", len(report.Modes), "failed", len(report.Failed()))
	return report, nil
}

// Regenerate drops the daily set of date and builds it again.
func (g *Generator) Regenerate(ctx context.Context, date string) (Report, error) {
	if g.admin == nil {
		return Report{Date: date}, errors.New("regenerate requires an admin store")
	}
	day, err := domain.ParseDate(date)
	if err != nil {
		return Report{Date: date}, err
	}
	if err := g.admin.ResetDailySet(ctx, day); err != nil {
		return Report{Date: date}, fmt.Errorf("reset daily set %s: %w", date, err)
	}
	g.logger.Info("daily set reset", "date", domain.DateKey(day))
	return g.Generate(ctx, date)
}

func (g *Generator) generateMode(ctx context.Context, day time.Time, dateKey string, mode domain.Mode) ModeOutcome {
	outcome := ModeOutcome{ModeID: mode.ID, Strategy: mode.Strategy}
	fail := func(stage string, err error) ModeOutcome {
		outcome.Status = ModeFailed
		outcome.Err = fmt.Errorf("%s: %w", stage, err)
		return outcome
	}

	assigned, err := g.store.CountAssigned(ctx, day, mode.ID)
	if err != nil {
		return fail("count assigned", err)
	}
	if assigned > 0 {
		outcome.Status = ModeAlreadyPopulated
		outcome.Selected = assigned
		return outcome
	}

	strategy, err := selection.ParseStrategy(mode.Strategy)
	if err != nil {
		return fail("resolve strategy", err)
	}

	items, err := g.store.ItemsFor(ctx, mode.ID)
	if err != nil {
		return fail("fetch candidates", err)
	}
	outcome.Candidates = len(items)
	if len(items) < g.minItems {
		outcome.Status = ModeInsufficient
		return outcome
	}

	since, before := g.freshness.Window(day)
	used, err := g.store.RecentlyUsedItemIDs(ctx, mode.ID, since, before)
	if err != nil {
		return fail("load recently used", err)
	}
	pool, fellBack := selection.FilterFresh(items, used, g.freshness.MinFresh)
	outcome.FellBack = fellBack

	result := selection.Select(pool, selection.Params{
		Strategy:   strategy,
		Target:     mode.Target,
		PoolSize:   mode.PoolSize,
		Categories: mode.Categories,
	}, rng.ForMode(dateKey, mode.ID))
	outcome.Strategy = result.Strategy.String()
	outcome.Degraded = result.Degraded

	rows := selection.Assign(day, mode.ID, result.Items, g.offset)
	res, err := g.store.InsertDailySetItems(ctx, day, mode.ID, rows)
	if err != nil {
		return fail("insert lineup", err)
	}
	if res == domain.AlreadyExists {
		outcome.Status = ModeAlreadyPopulated
		return outcome
	}

	outcome.Status = ModeGenerated
	outcome.Selected = len(rows)
	return outcome
}

func (g *Generator) logOutcome(dateKey string, o ModeOutcome) {
	attrs := []any{
		"date", dateKey,
		"mode", o.ModeID,
		"status", string(o.Status),
		"strategy", o.Strategy,
		"candidates", o.Candidates,
		"selected", o.Selected,
	}

	switch o.Status {
	case ModeFailed:
		g.logger.Error("mode generation failed", append(attrs, "error", o.Err)...)
	case ModeInsufficient:
		g.logger.Warn("not enough items, skipping mode", append(attrs, "min_items", g.minItems)...)
	case ModeAlreadyPopulated:
		g.logger.Info("mode already populated", attrs...)
	default:
		if o.FellBack {
			g.logger.Warn("fresh pool below minimum, used full active set", "date", dateKey, "mode", o.ModeID)
		}
		if o.Degraded {
			g.logger.Warn("binary mode without two categories, used freshness order", "date", dateKey, "mode", o.ModeID)
		}
		g.logger.Info("mode generated", attrs...)
	}
}
