package ports

import (
	"context"
	"time"

	"DailySets/internal/domain"
)

// ItemStore persists the item catalog and the daily set assignments.
// Failures are returned as *domain.StoreError.
type ItemStore interface {
	ItemsFor(ctx context.Context, modeID string) ([]domain.Item, error)
	RecentlyUsedItemIDs(ctx context.Context, modeID string, since, before time.Time) (map[string]struct{}, error)
	DailySetExists(ctx context.Context, date time.Time) (bool, error)
	CountAssigned(ctx context.Context, date time.Time, modeID string) (int, error)
	InsertDailySet(ctx context.Context, set domain.DailySet) (domain.InsertResult, error)
	// InsertDailySetItems writes a whole lineup for (date, modeID) atomically;
	// it reports AlreadyExists without writing when the lineup is populated.
	InsertDailySetItems(ctx context.Context, date time.Time, modeID string, items []domain.DailySetItem) (domain.InsertResult, error)
	UpsertItem(ctx context.Context, item domain.Item) (domain.InsertResult, error)
}

// AdminStore carries the maintenance operations used by operators.
type AdminStore interface {
	SetItemStatus(ctx context.Context, itemID string, status domain.ItemStatus) error
	DailySetItems(ctx context.Context, date time.Time, modeID string) ([]domain.DailySetItem, error)
	ResetDailySet(ctx context.Context, date time.Time) error
	CountItems(ctx context.Context) ([]domain.ItemCount, error)
}

// ModeCatalog lists the modes that take part in generation.
type ModeCatalog interface {
	ActiveModes(ctx context.Context) ([]domain.Mode, error)
}

// ContentSource yields raw candidate items from one upstream provider.
type ContentSource interface {
	ID() string
	Name() string
	ModeID() string
	Fetch(ctx context.Context) ([]domain.Item, error)
	Validate(item domain.Item) bool
}

// Notifier streams run reports to operators.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
