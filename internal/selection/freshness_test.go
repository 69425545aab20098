package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFreshnessWindow(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	since, before := FreshnessPolicy{WindowDays: 7}.Window(day)
	assert.Equal(t, time.Date(2024, 2, 23, 0, 0, 0, 0, time.UTC), since)
	assert.Equal(t, day, before)
}

func TestFilterFreshExcludesRecentlyUsed(t *testing.T) {
	t.Parallel()

	items := makeItems("x", "X", 40)
	used := map[string]struct{}{"x-000": {}, "x-001": {}, "x-002": {}}

	pool, fellBack := FilterFresh(items, used, 20)
	assert.False(t, fellBack)
	assert.Len(t, pool, 37)
	for _, item := range pool {
		assert.NotContains(t, used, item.ID)
	}
}

func TestFilterFreshFallsBackWhenStarved(t *testing.T) {
	t.Parallel()

	items := makeItems("x", "X", 25)
	used := map[string]struct{}{}
	for _, item := range items[:10] {
		used[item.ID] = struct{}{}
	}

	pool, fellBack := FilterFresh(items, used, 20)
	assert.True(t, fellBack)
	assert.Len(t, pool, 25)
}

func TestFilterFreshNothingUsed(t *testing.T) {
	t.Parallel()

	items := makeItems("x", "X", 6)
	pool, fellBack := FilterFresh(items, nil, 20)
	assert.False(t, fellBack)
	assert.Len(t, pool, 6)
}
