package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"DailySets/internal/domain"
	"DailySets/internal/ports"
)

//go:embed schema.sql
var schema string

var itemColumns = []string{
	"id", "mode_id", "prompt_text", "answer", "choices", "asset_type", "source_name",
	"source_url", "license", "external_id", "hash", "metadata", "status", "created_at",
}

// PostgresRepository persists items and daily sets into Postgres.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.ItemStore  = (*PostgresRepository)(nil)
	_ ports.AdminStore = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the tables when they are missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return domain.WrapStore("migrate", err)
	}
	return nil
}

// ItemsFor returns the active items of a mode, oldest first.
func (r *PostgresRepository) ItemsFor(ctx context.Context, modeID string) ([]domain.Item, error) {
	query, args, err := r.sb.Select(itemColumns...).
		From("items").
		Where(sq.Eq{"mode_id": modeID, "status": string(domain.StatusActive)}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, domain.WrapStore("items_for", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapStore("items_for", err)
	}

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			_ = rows.Close()
			return nil, domain.WrapStore("items_for", err)
		}
		items = append(items, item)
	}

	if err := closeRows(rows); err != nil {
		return nil, domain.WrapStore("items_for", err)
	}
	return items, nil
}

// RecentlyUsedItemIDs lists items assigned to modeID on dates in [since, before).
func (r *PostgresRepository) RecentlyUsedItemIDs(ctx context.Context, modeID string, since, before time.Time) (map[string]struct{}, error) {
	query, args, err := r.sb.Select("DISTINCT item_id").
		From("daily_set_items").
		Where(sq.Eq{"mode_id": modeID}).
		Where(sq.GtOrEq{"date": since}).
		Where(sq.Lt{"date": before}).
		ToSql()
	if err != nil {
		return nil, domain.WrapStore("recently_used", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapStore("recently_used", err)
	}

	used := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, domain.WrapStore("recently_used", fmt.Errorf("scan id: %w", err))
		}
		used[id] = struct{}{}
	}

	if err := closeRows(rows); err != nil {
		return nil, domain.WrapStore("recently_used", err)
	}
	return used, nil
}

// DailySetExists reports whether the daily_sets row for date is present.
func (r *PostgresRepository) DailySetExists(ctx context.Context, date time.Time) (bool, error) {
	query, args, err := r.sb.Select("1").
		Prefix("SELECT EXISTS (").
		From("daily_sets").
		Where(sq.Eq{"date": date}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, domain.WrapStore("daily_set_exists", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, domain.WrapStore("daily_set_exists", err)
	}
	return exists, nil
}

// CountAssigned counts the lineup rows of (date, modeID).
func (r *PostgresRepository) CountAssigned(ctx context.Context, date time.Time, modeID string) (int, error) {
	count, err := countAssigned(ctx, r.db, r.sb, date, modeID)
	if err != nil {
		return 0, domain.WrapStore("count_assigned", err)
	}
	return count, nil
}

// InsertDailySet creates the per-date row; a concurrent winner yields AlreadyExists.
func (r *PostgresRepository) InsertDailySet(ctx context.Context, set domain.DailySet) (domain.InsertResult, error) {
	snapshot := sql.NullString{String: set.SnapshotURL, Valid: set.SnapshotURL != ""}
	query, args, err := r.sb.Insert("daily_sets").
		Columns("date", "seed", "snapshot_url").
		Values(set.Date, set.Seed, snapshot).
		Suffix("ON CONFLICT (date) DO NOTHING").
		ToSql()
	if err != nil {
		return domain.Inserted, domain.WrapStore("insert_daily_set", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Inserted, domain.WrapStore("insert_daily_set", err)
	}
	return resultOf(res, "insert_daily_set")
}

// InsertDailySetItems writes a lineup inside a transaction serialised per
// (date, mode) by an advisory lock, so concurrent runs cannot interleave rows.
func (r *PostgresRepository) InsertDailySetItems(ctx context.Context, date time.Time, modeID string, items []domain.DailySetItem) (result domain.InsertResult, err error) {
	const op = "insert_daily_set_items"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Inserted, domain.WrapStore(op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockKey := domain.DateKey(date) + "|" + modeID
	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lockKey); err != nil {
		return domain.Inserted, domain.WrapStore(op, fmt.Errorf("lock %s: %w", lockKey, err))
	}

	existing, err := countAssigned(ctx, tx, r.sb, date, modeID)
	if err != nil {
		return domain.Inserted, domain.WrapStore(op, err)
	}
	if existing > 0 {
		err = tx.Rollback()
		return domain.AlreadyExists, domain.WrapStore(op, err)
	}

	if len(items) > 0 {
		insert := r.sb.Insert("daily_set_items").
			Columns("date", "mode_id", "item_id", "position").
			Suffix("ON CONFLICT (date, mode_id, item_id) DO NOTHING")
		for _, it := range items {
			insert = insert.Values(it.Date, it.ModeID, it.ItemID, it.Position)
		}

		query, args, buildErr := insert.ToSql()
		if buildErr != nil {
			err = buildErr
			return domain.Inserted, domain.WrapStore(op, err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return domain.Inserted, domain.WrapStore(op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return domain.Inserted, domain.WrapStore(op, err)
	}
	return domain.Inserted, nil
}

// UpsertItem inserts an item unless its hash is already known.
func (r *PostgresRepository) UpsertItem(ctx context.Context, item domain.Item) (domain.InsertResult, error) {
	var metadata []byte
	if len(item.Metadata) > 0 {
		raw, err := json.Marshal(item.Metadata)
		if err != nil {
			return domain.Inserted, domain.WrapStore("upsert_item", fmt.Errorf("marshal metadata: %w", err))
		}
		metadata = raw
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := item.Status
	if status == "" {
		status = domain.StatusActive
	}

	query, args, err := r.sb.Insert("items").
		Columns(itemColumns...).
		Values(
			item.ID, item.ModeID, item.Prompt, item.Answer, pq.Array(item.Choices), string(item.AssetType),
			item.SourceName, item.SourceURL, item.License, item.ExternalID, item.Hash,
			metadata, string(status), createdAt,
		).
		Suffix("ON CONFLICT (hash) DO NOTHING").
		ToSql()
	if err != nil {
		return domain.Inserted, domain.WrapStore("upsert_item", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		// a primary key collision means the same row was written by a concurrent ingest
		if IsUniqueViolation(err) {
			return domain.AlreadyExists, nil
		}
		return domain.Inserted, domain.WrapStore("upsert_item", err)
	}
	return resultOf(res, "upsert_item")
}

// SetItemStatus toggles an item between active and inactive.
func (r *PostgresRepository) SetItemStatus(ctx context.Context, itemID string, status domain.ItemStatus) error {
	query, args, err := r.sb.Update("items").
		Set("status", string(status)).
		Where(sq.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return domain.WrapStore("set_item_status", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.WrapStore("set_item_status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapStore("set_item_status", err)
	}
	if affected == 0 {
		return domain.WrapStore("set_item_status", fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound))
	}
	return nil
}

// DailySetItems returns the lineup of date ordered by mode and position; an
// empty modeID returns every mode.
func (r *PostgresRepository) DailySetItems(ctx context.Context, date time.Time, modeID string) ([]domain.DailySetItem, error) {
	builder := r.sb.Select("date", "mode_id", "item_id", "position").
		From("daily_set_items").
		Where(sq.Eq{"date": date}).
		OrderBy("mode_id", "position")
	if modeID != "" {
		builder = builder.Where(sq.Eq{"mode_id": modeID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, domain.WrapStore("daily_set_items", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapStore("daily_set_items", err)
	}

	var lineup []domain.DailySetItem
	for rows.Next() {
		var it domain.DailySetItem
		if err := rows.Scan(&it.Date, &it.ModeID, &it.ItemID, &it.Position); err != nil {
			_ = rows.Close()
			return nil, domain.WrapStore("daily_set_items", fmt.Errorf("scan row: %w", err))
		}
		lineup = append(lineup, it)
	}

	if err := closeRows(rows); err != nil {
		return nil, domain.WrapStore("daily_set_items", err)
	}
	return lineup, nil
}

// ResetDailySet deletes the lineup rows and then the daily set of date.
func (r *PostgresRepository) ResetDailySet(ctx context.Context, date time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapStore("reset_daily_set", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"daily_set_items", "daily_sets"} {
		query, args, buildErr := r.sb.Delete(table).Where(sq.Eq{"date": date}).ToSql()
		if buildErr != nil {
			err = buildErr
			return domain.WrapStore("reset_daily_set", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return domain.WrapStore("reset_daily_set", fmt.Errorf("delete %s: %w", table, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return domain.WrapStore("reset_daily_set", err)
	}
	return nil
}

// CountItems tallies the catalog per mode and status.
func (r *PostgresRepository) CountItems(ctx context.Context) ([]domain.ItemCount, error) {
	query, args, err := r.sb.Select("mode_id", "status", "COUNT(*)").
		From("items").
		GroupBy("mode_id", "status").
		OrderBy("mode_id", "status").
		ToSql()
	if err != nil {
		return nil, domain.WrapStore("count_items", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapStore("count_items", err)
	}

	var counts []domain.ItemCount
	for rows.Next() {
		var (
			c      domain.ItemCount
			status string
		)
		if err := rows.Scan(&c.ModeID, &status, &c.Count); err != nil {
			_ = rows.Close()
			return nil, domain.WrapStore("count_items", fmt.Errorf("scan count: %w", err))
		}
		c.Status = domain.ItemStatus(status)
		counts = append(counts, c)
	}

	if err := closeRows(rows); err != nil {
		return nil, domain.WrapStore("count_items", err)
	}
	return counts, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func countAssigned(ctx context.Context, q queryer, sb sq.StatementBuilderType, date time.Time, modeID string) (int, error) {
	query, args, err := sb.Select("COUNT(*)").
		From("daily_set_items").
		Where(sq.Eq{"date": date, "mode_id": modeID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assigned: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item      domain.Item
		assetType string
		status    string
		metadata  []byte
	)

	err := row.Scan(
		&item.ID, &item.ModeID, &item.Prompt, &item.Answer, pq.Array(&item.Choices), &assetType,
		&item.SourceName, &item.SourceURL, &item.License, &item.ExternalID, &item.Hash,
		&metadata, &status, &item.CreatedAt,
	)
	if err != nil {
		return domain.Item{}, fmt.Errorf("scan item: %w", err)
	}

	item.AssetType = domain.AssetType(assetType)
	item.Status = domain.ItemStatus(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return domain.Item{}, fmt.Errorf("decode metadata of %s: %w", item.ID, err)
		}
	}
	return item, nil
}

func closeRows(rows *sql.Rows) error {
	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}

func resultOf(res sql.Result, op string) (domain.InsertResult, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Inserted, domain.WrapStore(op, err)
	}
	if affected == 0 {
		return domain.AlreadyExists, nil
	}
	return domain.Inserted, nil
}

// IsUniqueViolation reports whether err carries Postgres SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
