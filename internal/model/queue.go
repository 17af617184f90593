package model

import (
	"sort"
	"time"
)

// QueueItemType classifies a verification task.
type QueueItemType string

const (
	QueueTypeDataVerification QueueItemType = "data_verification"
	QueueTypeCompanyProfiling QueueItemType = "company_profiling"
)

// Priority orders verification tasks.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a sort key where higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// HighPriorityCutoff is the overall confidence below which a review item is
// queued as high priority.
const HighPriorityCutoff = 0.3

// PriorityForConfidence maps an overall confidence to a queue priority.
func PriorityForConfidence(overall float64) Priority {
	if overall < HighPriorityCutoff {
		return PriorityHigh
	}
	return PriorityMedium
}

// QueueItem is one entry in the human verification backlog.
type QueueItem struct {
	ID          string         `json:"id"`
	Type        QueueItemType  `json:"type"`
	CompanyName string         `json:"company_name"`
	Data        map[string]any `json:"data,omitempty"`
	Reason      string         `json:"reason"`
	Priority    Priority       `json:"priority"`
	LinkedInURL string         `json:"linkedin_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SortQueue orders items by priority (high first), then by creation time,
// newest first, then by ID. The slice is sorted in place.
func SortQueue(items []QueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Priority.Rank(), items[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
