package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const cycleLockKeyPrefix = "livecast:cycle-lock:"

// releaseScript deletes the lock only while it still carries the caller's
// token, so an expired holder cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CycleLockImpl provides a concrete implementation for the CycleLock interface using Redis.
type CycleLockImpl struct {
	client *redis.Client
	key    string
}

// NewCycleLock creates a new instance of CycleLockImpl.
func NewCycleLock(client *redis.Client, namespace string) *CycleLockImpl {
	return &CycleLockImpl{
		client: client,
		key:    namespaceKey(cycleLockKeyPrefix, namespace),
	}
}

// Acquire sets the lock key with an expiry if nobody holds it.
func (l *CycleLockImpl) Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key, token, ttl).Result()
}

// Release removes the lock if token still owns it.
func (l *CycleLockImpl) Release(ctx context.Context, token string) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
}
