package entity

import "time"

// PlaylistEntry is one line of the published playlist.
type PlaylistEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PlaylistSnapshot is the published artifact of one cycle. It is read-only
// once built: readers may hold on to it while newer snapshots are published.
type PlaylistSnapshot struct {
	CycleID      string          `json:"cycle_id"`
	GroupTitle   string          `json:"group_title,omitempty"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Entries      []PlaylistEntry `json:"entries"`
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
}

// CycleReport summarizes a finished cycle, published or not.
type CycleReport struct {
	CycleID      string
	StartedAt    time.Time
	FinishedAt   time.Time
	SuccessCount int
	FailureCount int
	Published    bool
}

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// Health is what the health probe reports.
type Health struct {
	Status              string     `json:"status"`
	LastSuccessfulCycle *time.Time `json:"last_successful_cycle"`
	LastCycleAt         *time.Time `json:"last_cycle_at,omitempty"`
	SuccessCount        int        `json:"success_count"`
	FailureCount        int        `json:"failure_count"`
}
