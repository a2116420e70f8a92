package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/repository"
	"github.com/user/livecast-service/pkg/utils"
)

const snapshotKeyPrefix = "livecast:snapshot:"

// SnapshotCacheImpl provides a concrete implementation for the SnapshotCache interface using Redis.
type SnapshotCacheImpl struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSnapshotCache creates a snapshot cache. Instances crawling the same
// channel list should share a namespace; ttl of 0 keeps the snapshot forever.
func NewSnapshotCache(client *redis.Client, namespace string, ttl time.Duration) *SnapshotCacheImpl {
	return &SnapshotCacheImpl{
		client: client,
		key:    namespaceKey(snapshotKeyPrefix, namespace),
		ttl:    ttl,
	}
}

// namespaceKey creates a consistent, bounded Redis key for a namespace by hashing it.
func namespaceKey(prefix, namespace string) string {
	return fmt.Sprintf("%s%s", prefix, utils.HashURL(namespace)[:16])
}

// Save replaces the cached snapshot. SET is atomic, so readers see either
// the old or the new document.
func (c *SnapshotCacheImpl) Save(ctx context.Context, s *entity.PlaylistSnapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.client.Set(ctx, c.key, payload, c.ttl).Err()
}

// Load returns the cached snapshot, or ErrSnapshotNotFound when the key is absent.
func (c *SnapshotCacheImpl) Load(ctx context.Context) (*entity.PlaylistSnapshot, error) {
	payload, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	var s entity.PlaylistSnapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}
