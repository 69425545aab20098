package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"DailySets/internal/config"
	"DailySets/internal/domain"
	"DailySets/internal/infrastructure/feeds"
	"DailySets/internal/infrastructure/scheduler"
	"DailySets/internal/infrastructure/storage"
	"DailySets/internal/infrastructure/telegram"
	"DailySets/internal/logging"
	"DailySets/internal/metrics"
	"DailySets/internal/ports"
	"DailySets/internal/selection"
	"DailySets/internal/source"
	"DailySets/internal/usecase"
)

// Store is the full persistence surface used by the application.
type Store interface {
	ports.ItemStore
	ports.AdminStore
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	store     Store
	postgres  *storage.PostgresRepository
	sources   []ports.ContentSource
	generator *usecase.Generator
	scheduler *usecase.Scheduler
	notifier  ports.Notifier
}

// New opens the configured store and builds the use cases.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := storage.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.postgres = storage.NewPostgresRepository(db)
		a.store = a.postgres
	default:
		a.store = storage.NewMemoryStore()
	}

	if err := a.build(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore builds the application over an existing store.
func NewWithStore(cfg config.Config, store Store, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.Discard()
	}
	a := &Application{cfg: cfg, logger: baseLogger, store: store}
	if err := a.build(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Application) build() error {
	modes, err := config.NewModeCatalog(a.cfg.Modes)
	if err != nil {
		return fmt.Errorf("mode catalog: %w", err)
	}

	fetcher := feeds.NewFetcher(
		&http.Client{Timeout: a.cfg.Ingestion.Timeout},
		a.cfg.Ingestion.RequestsPerSecond,
		a.cfg.Ingestion.UserAgent,
	)
	a.sources, err = source.NewDefaultRegistry(fetcher).Build(a.cfg.Sources)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}

	a.generator = usecase.NewGenerator(usecase.GeneratorDeps{
		Store: a.store,
		Admin: a.store,
		Modes: modes,
		Freshness: selection.FreshnessPolicy{
			WindowDays: a.cfg.Generation.WindowDays,
			MinFresh:   a.cfg.Generation.MinFresh,
		},
		MinItems:       a.cfg.Generation.MinItems,
		PositionOffset: a.cfg.Generation.Offset(),
		Logger:         a.logger.With("component", "generator"),
	})

	tg := a.cfg.Notifications.Telegram
	if n := telegram.NewNotifier(tg.BotToken, tg.ChatID); n.Configured() {
		a.notifier = n
	}

	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	if err != nil {
		return err
	}
	a.scheduler = usecase.NewScheduler(usecase.SchedulerDeps{
		Driver:     driver,
		Ingestor:   a.ingestor(a.sources),
		Generator:  a.generator,
		Notifier:   a.notifier,
		Location:   a.cfg.Scheduler.Location(),
		Regenerate: a.cfg.Scheduler.Regenerate,
		Logger:     a.logger.With("component", "scheduler"),
	})
	return nil
}

func (a *Application) ingestor(sources []ports.ContentSource) *usecase.Ingestor {
	return usecase.NewIngestor(usecase.IngestDeps{
		Sources:     sources,
		Store:       a.store,
		Concurrency: a.cfg.Ingestion.Concurrency,
		Logger:      a.logger.With("component", "ingest"),
	})
}

// Store exposes the underlying store for maintenance commands.
func (a *Application) Store() Store {
	return a.store
}

// Today is the current calendar day in the scheduler timezone.
func (a *Application) Today() string {
	return domain.DateKey(domain.Today(time.Now(), a.cfg.Scheduler.Location()))
}

// Generate builds (or with regenerate, rebuilds) the daily set of date.
func (a *Application) Generate(ctx context.Context, date string, regenerate bool) (usecase.Report, error) {
	if regenerate {
		return a.generator.Regenerate(ctx, date)
	}
	return a.generator.Generate(ctx, date)
}

// Ingest runs the configured sources, or only those listed in ids.
func (a *Application) Ingest(ctx context.Context, ids []string) (usecase.IngestReport, error) {
	selected := source.Filter(a.sources, ids)
	if len(ids) > 0 && len(selected) == 0 {
		return usecase.IngestReport{}, fmt.Errorf("no configured source matches %v", ids)
	}
	return a.ingestor(selected).Run(ctx)
}

// Migrate applies the schema when running on Postgres.
func (a *Application) Migrate(ctx context.Context) error {
	if a.postgres == nil {
		return errors.New("migrate requires the postgres driver")
	}
	return a.postgres.Migrate(ctx)
}

// Serve runs the daily job on its cron schedule and exposes /metrics until
// ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := a.scheduler.Start(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(),
		"metrics_addr", a.cfg.Metrics.Addr)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("metrics server shutdown", "error", err)
	}
	a.logger.Info("scheduler stopped")
	return runErr
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
