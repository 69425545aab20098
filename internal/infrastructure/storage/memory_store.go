package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"DailySets/internal/domain"
	"DailySets/internal/ports"
)

// MemoryStore is an in-process ItemStore for local runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	items    []domain.Item
	byHash   map[string]int
	byID     map[string]int
	sets     map[string]domain.DailySet
	lineups  map[string][]domain.DailySetItem
	failures map[string]error
}

var (
	_ ports.ItemStore  = (*MemoryStore)(nil)
	_ ports.AdminStore = (*MemoryStore)(nil)
)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash:   map[string]int{},
		byID:     map[string]int{},
		sets:     map[string]domain.DailySet{},
		lineups:  map[string][]domain.DailySetItem{},
		failures: map[string]error{},
	}
}

// FailOn makes every call of op return err until cleared with a nil err.
// Ops are named like the StoreError ops, optionally suffixed ":<mode>".
func (m *MemoryStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MemoryStore) failure(op, modeID string) error {
	if err, ok := m.failures[op+":"+modeID]; ok {
		return domain.WrapStore(op, err)
	}
	if err, ok := m.failures[op]; ok {
		return domain.WrapStore(op, err)
	}
	return nil
}

func lineupKey(date time.Time, modeID string) string {
	return domain.DateKey(date) + "|" + modeID
}

// ItemsFor returns active items of modeID in insertion order.
func (m *MemoryStore) ItemsFor(_ context.Context, modeID string) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("items_for", modeID); err != nil {
		return nil, err
	}

	var items []domain.Item
	for _, item := range m.items {
		if item.ModeID == modeID && item.Status == domain.StatusActive {
			items = append(items, item)
		}
	}
	return items, nil
}

// RecentlyUsedItemIDs scans lineups of modeID dated in [since, before).
func (m *MemoryStore) RecentlyUsedItemIDs(_ context.Context, modeID string, since, before time.Time) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("recently_used", modeID); err != nil {
		return nil, err
	}

	used := map[string]struct{}{}
	for _, rows := range m.lineups {
		for _, row := range rows {
			if row.ModeID != modeID || row.Date.Before(since) || !row.Date.Before(before) {
				continue
			}
			used[row.ItemID] = struct{}{}
		}
	}
	return used, nil
}

// DailySetExists reports whether date has a daily set.
func (m *MemoryStore) DailySetExists(_ context.Context, date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("daily_set_exists", ""); err != nil {
		return false, err
	}
	_, ok := m.sets[domain.DateKey(date)]
	return ok, nil
}

// CountAssigned counts the lineup of (date, modeID).
func (m *MemoryStore) CountAssigned(_ context.Context, date time.Time, modeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("count_assigned", modeID); err != nil {
		return 0, err
	}
	return len(m.lineups[lineupKey(date, modeID)]), nil
}

// InsertDailySet stores the daily set unless one exists for its date.
func (m *MemoryStore) InsertDailySet(_ context.Context, set domain.DailySet) (domain.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("insert_daily_set", ""); err != nil {
		return domain.Inserted, err
	}

	key := domain.DateKey(set.Date)
	if _, ok := m.sets[key]; ok {
		return domain.AlreadyExists, nil
	}
	m.sets[key] = set
	return domain.Inserted, nil
}

// InsertDailySetItems stores a lineup unless (date, modeID) is already populated.
func (m *MemoryStore) InsertDailySetItems(_ context.Context, date time.Time, modeID string, items []domain.DailySetItem) (domain.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("insert_daily_set_items", modeID); err != nil {
		return domain.Inserted, err
	}
	if _, ok := m.sets[domain.DateKey(date)]; !ok {
		return domain.Inserted, domain.WrapStore("insert_daily_set_items",
			fmt.Errorf("daily set %s: %w", domain.DateKey(date), domain.ErrNotFound))
	}

	key := lineupKey(date, modeID)
	if len(m.lineups[key]) > 0 {
		return domain.AlreadyExists, nil
	}

	seen := make(map[string]struct{}, len(items))
	rows := make([]domain.DailySetItem, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ItemID]; dup {
			continue
		}
		if _, ok := m.byID[it.ItemID]; !ok {
			return domain.Inserted, domain.WrapStore("insert_daily_set_items",
				fmt.Errorf("item %s: %w", it.ItemID, domain.ErrNotFound))
		}
		seen[it.ItemID] = struct{}{}
		rows = append(rows, it)
	}
	if len(rows) > 0 {
		m.lineups[key] = rows
	}
	return domain.Inserted, nil
}

// UpsertItem inserts item unless its hash is known.
func (m *MemoryStore) UpsertItem(_ context.Context, item domain.Item) (domain.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("upsert_item", item.ModeID); err != nil {
		return domain.Inserted, err
	}
	if item.Hash == "" {
		return domain.Inserted, domain.WrapStore("upsert_item", fmt.Errorf("item %s has no hash", item.ID))
	}

	if _, ok := m.byHash[item.Hash]; ok {
		return domain.AlreadyExists, nil
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if _, ok := m.byID[item.ID]; ok {
		return domain.AlreadyExists, nil
	}
	if item.Status == "" {
		item.Status = domain.StatusActive
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	m.items = append(m.items, item)
	m.byHash[item.Hash] = len(m.items) - 1
	m.byID[item.ID] = len(m.items) - 1
	return domain.Inserted, nil
}

// SetItemStatus toggles an item between active and inactive.
func (m *MemoryStore) SetItemStatus(_ context.Context, itemID string, status domain.ItemStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byID[itemID]
	if !ok {
		return domain.WrapStore("set_item_status", fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound))
	}
	m.items[idx].Status = status
	return nil
}

// DailySetItems returns the lineups of date, ordered by mode and position.
func (m *MemoryStore) DailySetItems(_ context.Context, date time.Time, modeID string) ([]domain.DailySetItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lineup []domain.DailySetItem
	prefix := domain.DateKey(date) + "|"
	for key, rows := range m.lineups {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if modeID != "" && key != prefix+modeID {
			continue
		}
		lineup = append(lineup, rows...)
	}

	slices.SortFunc(lineup, func(a, b domain.DailySetItem) int {
		if c := strings.Compare(a.ModeID, b.ModeID); c != 0 {
			return c
		}
		return a.Position - b.Position
	})
	return lineup, nil
}

// DailySet returns the stored daily set of date.
func (m *MemoryStore) DailySet(date time.Time) (domain.DailySet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[domain.DateKey(date)]
	return set, ok
}

// ResetDailySet removes the lineups and the daily set of date.
func (m *MemoryStore) ResetDailySet(_ context.Context, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("reset_daily_set", ""); err != nil {
		return err
	}

	prefix := domain.DateKey(date) + "|"
	for key := range m.lineups {
		if strings.HasPrefix(key, prefix) {
			delete(m.lineups, key)
		}
	}
	delete(m.sets, domain.DateKey(date))
	return nil
}

// CountItems tallies the catalog per mode and status.
func (m *MemoryStore) CountItems(_ context.Context) ([]domain.ItemCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tally := map[[2]string]int{}
	for _, item := range m.items {
		tally[[2]string{item.ModeID, string(item.Status)}]++
	}

	counts := make([]domain.ItemCount, 0, len(tally))
	for key, n := range tally {
		counts = append(counts, domain.ItemCount{ModeID: key[0], Status: domain.ItemStatus(key[1]), Count: n})
	}
	slices.SortFunc(counts, func(a, b domain.ItemCount) int {
		if c := strings.Compare(a.ModeID, b.ModeID); c != 0 {
			return c
		}
		return strings.Compare(string(a.Status), string(b.Status))
	})
	return counts, nil
}
