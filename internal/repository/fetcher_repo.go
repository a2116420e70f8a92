package repository

import (
	"context"

	"github.com/user/livecast-service/internal/entity"
)

// StreamFetcher defines the contract for resolving one channel to its stream URL.
type StreamFetcher interface {
	// Fetch requests the channel's source and extracts the stream URL from it.
	// Errors wrap ErrNetwork or ErrExtractionMiss.
	Fetch(ctx context.Context, ch entity.ChannelDescriptor) (string, error)
}

// Extractor locates an embedded stream URL in a fetched response body.
type Extractor interface {
	// Extract returns the stream URL or an error wrapping ErrExtractionMiss.
	Extract(body []byte) (string, error)
}
