package entity

import "time"

// ChannelFailure mirrors the `channel_failures` PostgreSQL table schema.
type ChannelFailure struct {
	ChannelID           string    `json:"channel_id"`
	Name                string    `json:"name"`
	SourceURL           string    `json:"source_url"`
	Reason              string    `json:"reason"`
	Error               string    `json:"error,omitempty"`
	Attempts            int       `json:"attempts"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CycleID             string    `json:"cycle_id"`
	LastFailedAt        time.Time `json:"last_failed_at"`
}

// NewChannelFailure builds a ledger row from a failed outcome.
func NewChannelFailure(cycleID string, o FetchOutcome, at time.Time) *ChannelFailure {
	return &ChannelFailure{
		ChannelID:    o.Descriptor.ID,
		Name:         o.Descriptor.Name,
		SourceURL:    o.Descriptor.SourceURL,
		Reason:       string(o.Reason),
		Error:        o.Error,
		Attempts:     o.Attempts,
		CycleID:      cycleID,
		LastFailedAt: at,
	}
}
