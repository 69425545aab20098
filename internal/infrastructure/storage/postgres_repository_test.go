package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailySets/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresItemsFor(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	created := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(itemColumns).
		AddRow("id-1", "headline-satire", "Man bites dog", "Real", "{}", "text", "BBC", "https://bbc/1",
			"fair-use", "guid-1", "h1", []byte(`{"publish_date":"2024-02-29T10:00:00Z"}`), "active", created).
		AddRow("id-2", "headline-satire", "Dog bites man", "Satire", nil, "text", "Onion", "https://onion/2",
			"fair-use", "guid-2", "h2", nil, "active", created)

	mock.ExpectQuery(regexp.QuoteMeta("FROM items WHERE mode_id = $1 AND status = $2 ORDER BY created_at, id")).
		WithArgs("headline-satire", "active").
		WillReturnRows(rows)

	items, err := repo.ItemsFor(context.Background(), "headline-satire")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Real", items[0].Answer)
	assert.Equal(t, domain.AssetText, items[0].AssetType)
	published, ok := items[0].PublishedAt()
	require.True(t, ok)
	assert.Equal(t, 2024, published.Year())
	assert.Nil(t, items[1].Metadata)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresItemsForWrapsErrors(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM items").WillReturnError(errors.New("connection reset"))

	_, err := repo.ItemsFor(context.Background(), "m")
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "items_for", storeErr.Op)
}

func TestPostgresRecentlyUsed(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	since := day.AddDate(0, 0, -7)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT item_id FROM daily_set_items WHERE mode_id = $1 AND date >= $2 AND date < $3")).
		WithArgs("m", since, day).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow("a").AddRow("b"))

	used, err := repo.RecentlyUsedItemIDs(context.Background(), "m", since, day)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, used)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDailySetExistsAndCount(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM daily_sets WHERE date = $1 )")).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM daily_set_items WHERE date = $1 AND mode_id = $2")).
		WithArgs(day, "m").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	exists, err := repo.DailySetExists(context.Background(), day)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := repo.CountAssigned(context.Background(), day, "m")
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertDailySetConflict(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_sets (date,seed,snapshot_url) VALUES ($1,$2,$3) ON CONFLICT (date) DO NOTHING")).
		WithArgs(day, int64(99), sql.NullString{}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO daily_sets").
		WillReturnResult(sqlmock.NewResult(0, 0))

	res, err := repo.InsertDailySet(context.Background(), domain.DailySet{Date: day, Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, domain.Inserted, res)

	res, err = repo.InsertDailySet(context.Background(), domain.DailySet{Date: day, Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyExists, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertDailySetItemsInTransaction(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	rows := []domain.DailySetItem{
		{Date: day, ModeID: "m", ItemID: "a", Position: 1},
		{Date: day, ModeID: "m", ItemID: "b", Position: 2},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("2024-03-01|m").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM daily_set_items")).
		WithArgs(day, "m").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_set_items (date,mode_id,item_id,position) VALUES ($1,$2,$3,$4),($5,$6,$7,$8) ON CONFLICT (date, mode_id, item_id) DO NOTHING")).
		WithArgs(day, "m", "a", 1, day, "m", "b", 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	res, err := repo.InsertDailySetItems(context.Background(), day, "m", rows)
	require.NoError(t, err)
	assert.Equal(t, domain.Inserted, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertDailySetItemsAlreadyPopulated(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	res, err := repo.InsertDailySetItems(context.Background(), day, "m", []domain.DailySetItem{{Date: day, ModeID: "m", ItemID: "a"}})
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyExists, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertDailySetItemsRollsBackOnFailure(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO daily_set_items").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := repo.InsertDailySetItems(context.Background(), day, "m", []domain.DailySetItem{{Date: day, ModeID: "m", ItemID: "a"}})
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "insert_daily_set_items", storeErr.Op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertItem(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	item := domain.Item{
		ID:        "id-1",
		ModeID:    "headline-satire",
		Prompt:    "Man bites dog",
		Answer:    "Real",
		AssetType: domain.AssetText,
		Hash:      "h1",
		Metadata:  map[string]any{"snippet": "x"},
		CreatedAt: day,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO items (id,mode_id,prompt_text,answer,choices,asset_type,source_name,source_url,license,external_id,hash,metadata,status,created_at) VALUES")).
		WithArgs("id-1", "headline-satire", "Man bites dog", "Real", sqlmock.AnyArg(), "text", "", "", "", "", "h1",
			[]byte(`{"snippet":"x"}`), "active", day).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("ON CONFLICT \\(hash\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO items").WillReturnError(&pq.Error{Code: "23505"})

	res, err := repo.UpsertItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, domain.Inserted, res)

	res, err = repo.UpsertItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyExists, res)

	res, err = repo.UpsertItem(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyExists, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetItemStatusNotFound(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE items SET status = $1 WHERE id = $2")).
		WithArgs("inactive", "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetItemStatus(context.Background(), "nope", domain.StatusInactive)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResetDailySet(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_set_items WHERE date = $1")).WithArgs(day).WillReturnResult(sqlmock.NewResult(0, 100))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_sets WHERE date = $1")).WithArgs(day).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ResetDailySet(context.Background(), day))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDailySetItemsAndCounts(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT date, mode_id, item_id, position FROM daily_set_items WHERE date = $1 AND mode_id = $2 ORDER BY mode_id, position")).
		WithArgs(day, "m").
		WillReturnRows(sqlmock.NewRows([]string{"date", "mode_id", "item_id", "position"}).
			AddRow(day, "m", "a", 1).AddRow(day, "m", "b", 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT mode_id, status, COUNT(*) FROM items GROUP BY mode_id, status ORDER BY mode_id, status")).
		WillReturnRows(sqlmock.NewRows([]string{"mode_id", "status", "count"}).AddRow("m", "active", 160))

	lineup, err := repo.DailySetItems(context.Background(), day, "m")
	require.NoError(t, err)
	require.Len(t, lineup, 2)
	assert.Equal(t, "b", lineup[1].ItemID)

	counts, err := repo.CountItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemCount{{ModeID: "m", Status: domain.StatusActive, Count: 160}}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS items").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}
