// Package selection holds the pure parts of daily set generation: freshness
// filtering, category-balanced sampling and position assignment.
package selection

import (
	"slices"
	"time"

	"DailySets/internal/domain"
	"DailySets/internal/rng"
)

// Params describes one mode's selection request.
type Params struct {
	Strategy   Strategy
	Target     int
	PoolSize   int
	Categories []string
}

// Result is the shuffled lineup plus the strategy that actually ran.
type Result struct {
	Items    []domain.Item
	Strategy Strategy
	// Degraded is set when a binary mode saw other than two categories and
	// fell back to freshness ordering.
	Degraded bool
}

// Select picks up to p.Target items from pool and shuffles them with r.
func Select(pool []domain.Item, p Params, r *rng.Rng) Result {
	res := Result{Strategy: p.Strategy}
	if p.Target <= 0 || len(pool) == 0 {
		return res
	}

	switch p.Strategy {
	case BinaryBalance:
		labels := p.Categories
		if len(labels) != 2 {
			labels = Labels(Partition(pool))
		}
		if len(labels) == 2 {
			res.Items = selectBinary(pool, labels, p.Target)
			break
		}
		res.Strategy = FreshnessFallback
		res.Degraded = true
		res.Items = selectFreshest(pool, p.Target)
	case RoundRobinBalance:
		res.Items = selectRoundRobin(pool, p.Target, p.PoolSize, r)
	default:
		res.Strategy = FreshnessFallback
		res.Items = selectFreshest(pool, p.Target)
	}

	r.Shuffle(len(res.Items), func(i, j int) {
		res.Items[i], res.Items[j] = res.Items[j], res.Items[i]
	})
	return res
}

// Partition groups items by category, keeping pool order inside each group.
func Partition(items []domain.Item) map[string][]domain.Item {
	groups := make(map[string][]domain.Item)
	for _, item := range items {
		key := item.Category()
		groups[key] = append(groups[key], item)
	}
	return groups
}

// Labels returns the category keys in sorted order.
func Labels(groups map[string][]domain.Item) []string {
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}

// ByFreshness returns a newest-first copy; equal timestamps keep input order.
func ByFreshness(items []domain.Item) []domain.Item {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b domain.Item) int {
		return b.Freshness().Compare(a.Freshness())
	})
	return sorted
}

func selectBinary(pool []domain.Item, labels []string, target int) []domain.Item {
	groups := Partition(pool)
	perCategory := target / 2

	selected := make([]domain.Item, 0, target)
	for _, label := range labels {
		ordered := ByFreshness(groups[label])
		selected = append(selected, ordered[:min(perCategory, len(ordered))]...)
	}
	return selected
}

func selectFreshest(pool []domain.Item, target int) []domain.Item {
	ordered := ByFreshness(pool)
	return ordered[:min(target, len(ordered))]
}

func selectRoundRobin(pool []domain.Item, target, poolSize int, r *rng.Rng) []domain.Item {
	ordered := ByFreshness(pool)
	if poolSize <= 0 || poolSize > len(ordered) {
		poolSize = len(ordered)
	}
	head, rest := ordered[:poolSize], ordered[poolSize:]

	groups := Partition(head)
	labels := Labels(groups)

	selected := make([]domain.Item, 0, target)
	for len(selected) < target {
		picked := false
		for _, label := range labels {
			if len(selected) >= target {
				break
			}
			candidates := groups[label]
			if len(candidates) == 0 {
				continue
			}
			idx := r.IntN(len(candidates))
			selected = append(selected, candidates[idx])
			groups[label] = slices.Delete(candidates, idx, idx+1)
			picked = true
		}
		if !picked {
			break
		}
	}

	// Under-filled lineups are topped up from the items outside the pool.
	for _, item := range rest {
		if len(selected) >= target {
			break
		}
		selected = append(selected, item)
	}

	return selected
}

// Assign turns an ordered selection into positioned rows starting at offset.
func Assign(date time.Time, modeID string, items []domain.Item, offset int) []domain.DailySetItem {
	rows := make([]domain.DailySetItem, 0, len(items))
	for i, item := range items {
		rows = append(rows, domain.DailySetItem{
			Date:     date,
			ModeID:   modeID,
			ItemID:   item.ID,
			Position: i + offset,
		})
	}
	return rows
}
