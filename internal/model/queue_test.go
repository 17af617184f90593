package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortQueue(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []QueueItem{
		{ID: "m-old", Priority: PriorityMedium, CreatedAt: base},
		{ID: "h-old", Priority: PriorityHigh, CreatedAt: base},
		{ID: "l-new", Priority: PriorityLow, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "m-new", Priority: PriorityMedium, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "h-new", Priority: PriorityHigh, CreatedAt: base.Add(time.Hour)},
	}

	SortQueue(items)

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	assert.Equal(t, []string{"h-new", "h-old", "m-new", "m-old", "l-new"}, ids)

	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		assert.GreaterOrEqual(t, prev.Priority.Rank(), cur.Priority.Rank())
		if prev.Priority == cur.Priority {
			assert.False(t, prev.CreatedAt.Before(cur.CreatedAt))
		}
	}
}

func TestSortQueue_TiesBrokenByID(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []QueueItem{
		{ID: "c", Priority: PriorityMedium, CreatedAt: at},
		{ID: "a", Priority: PriorityMedium, CreatedAt: at},
		{ID: "b", Priority: PriorityMedium, CreatedAt: at},
	}

	SortQueue(items)
	assert.Equal(t, []string{"a", "b", "c"}, []string{items[0].ID, items[1].ID, items[2].ID})
}

func TestPriorityForConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		overall float64
		want    Priority
	}{
		{0, PriorityHigh},
		{0.1, PriorityHigh},
		{0.299, PriorityHigh},
		{0.3, PriorityMedium},
		{0.74, PriorityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriorityForConfidence(tt.overall), "overall=%v", tt.overall)
	}
}

func TestPriorityRank_Unknown(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, Priority("urgent").Rank())
}
