package repository

import (
	"context"

	"github.com/user/livecast-service/internal/entity"
)

// ChannelFailureRepository records channels that failed their latest cycle.
type ChannelFailureRepository interface {
	// SaveOrUpdate creates or updates a record for a failed channel.
	SaveOrUpdate(ctx context.Context, failure *entity.ChannelFailure) error
	// FindRecent returns the most recently failed channels.
	FindRecent(ctx context.Context, limit int) ([]*entity.ChannelFailure, error)
	// Delete removes a channel's record, typically after a successful fetch.
	Delete(ctx context.Context, channelID string) error
}
