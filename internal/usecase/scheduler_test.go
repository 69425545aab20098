package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailySets/internal/domain"
	"DailySets/internal/infrastructure/storage"
	"DailySets/internal/ports"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) PublishReport(_ context.Context, report string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, report)
	return n.err
}

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func headlines(answer string, n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = headline(fmt.Sprintf("%s headline number %d", answer, i), fmt.Sprintf("https://%s/%d", answer, i))
		items[i].Answer = answer
	}
	return items
}

func TestRunOnceIngestsGeneratesAndReports(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	sources := []ports.ContentSource{
		&stubSource{id: "real", mode: satireMode, items: headlines("Real", 8)},
		&stubSource{id: "satire", mode: satireMode, items: headlines("Satire", 8)},
	}
	notifier := &recordingNotifier{}
	sched := NewScheduler(SchedulerDeps{
		Ingestor:  NewIngestor(IngestDeps{Sources: sources, Store: store}),
		Generator: newGenerator(store, catalog(t, binaryMode(10)), 1),
		Notifier:  notifier,
		Location:  time.FixedZone("UTC-5", -5*60*60),
	})

	// 02:00 UTC on the 2nd is still the 1st five hours west
	report, err := sched.RunOnce(context.Background(), time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", report.Date)
	assert.Equal(t, ModeGenerated, outcomeOf(t, report, satireMode).Status)
	assert.Len(t, lineup(t, store, "2024-03-01", satireMode), 10)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Daily set 2024-03-01")
	assert.Contains(t, notifier.messages[0], "headline-satire: generated, 10 items (binary)")
	assert.Contains(t, notifier.messages[0], "Ingested 16 new items from 2 sources")
}

func TestRunOnceRegenerates(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	seedItems(t, store, satireMode, "Real", 10)
	seedItems(t, store, satireMode, "Satire", 10)
	gen := newGenerator(store, catalog(t, binaryMode(10)), 1)
	_, err := gen.Generate(context.Background(), "2024-03-01")
	require.NoError(t, err)

	sched := NewScheduler(SchedulerDeps{Generator: gen, Regenerate: true})
	report, err := sched.RunOnce(context.Background(), time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, report.Resumed)
	assert.Equal(t, ModeGenerated, outcomeOf(t, report, satireMode).Status)
}

func TestRunOnceReportsFatalGeneration(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	store.FailOn("daily_set_exists", errors.New("connection refused"))
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	sched := NewScheduler(SchedulerDeps{
		Generator: newGenerator(store, catalog(t, binaryMode(10)), 1),
		Notifier:  notifier,
	})

	_, err := sched.RunOnce(context.Background(), time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.Error(t, err)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "FAILED")
	assert.Contains(t, notifier.messages[0], "connection refused")
}

func TestSchedulerStartRegistersJob(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	seedItems(t, store, satireMode, "Real", 10)
	seedItems(t, store, satireMode, "Satire", 10)
	driver := &manualDriver{}
	sched := NewScheduler(SchedulerDeps{Driver: driver, Generator: newGenerator(store, catalog(t, binaryMode(10)), 1)})

	require.NoError(t, sched.Start(context.Background()))
	require.NotNil(t, driver.job)
	driver.job(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	assert.Len(t, lineup(t, store, "2024-03-05", satireMode), 10)

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestFormatRunReport(t *testing.T) {
	t.Parallel()

	msg := FormatRunReport(
		&IngestReport{Sources: []SourceResult{
			{SourceID: "bbc", Inserted: 3},
			{SourceID: "onion", Err: errors.New("timeout")},
		}},
		Report{Date: "2024-03-01", Resumed: true, Modes: []ModeOutcome{
			{ModeID: "a", Status: ModeGenerated, Selected: 100, Strategy: "binary", FellBack: true},
			{ModeID: "b", Status: ModeInsufficient, Candidates: 2},
			{ModeID: "c", Status: ModeFailed, Err: errors.New("insert lineup: boom")},
			{ModeID: "d", Status: ModeAlreadyPopulated},
		}},
		nil,
	)

	assert.Equal(t, `Daily set 2024-03-01 (resumed)
- a: generated, 100 items (binary), repeats allowed
- b: insufficient, 2 candidates
- c: failed: insert lineup: boom
- d: already_populated
Ingested 3 new items from 2 sources
- source onion: timeout`, msg)
}
