package selection

import (
	"time"

	"DailySets/internal/domain"
)

// FreshnessPolicy configures the repeat-avoidance window.
type FreshnessPolicy struct {
	WindowDays int
	MinFresh   int
}

// Window returns [date - WindowDays, date).
func (p FreshnessPolicy) Window(date time.Time) (since, before time.Time) {
	return date.AddDate(0, 0, -p.WindowDays), date
}

// FilterFresh drops items whose ID is in used. When fewer than minFresh items
// survive, the unfiltered items are returned and fellBack is true.
func FilterFresh(items []domain.Item, used map[string]struct{}, minFresh int) (pool []domain.Item, fellBack bool) {
	if len(used) == 0 {
		return items, false
	}

	fresh := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if _, seen := used[item.ID]; seen {
			continue
		}
		fresh = append(fresh, item)
	}

	if len(fresh) < minFresh && len(fresh) < len(items) {
		return items, true
	}
	return fresh, false
}
