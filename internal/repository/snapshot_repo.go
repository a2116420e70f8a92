package repository

import (
	"context"
	"time"

	"github.com/user/livecast-service/internal/entity"
)

// SnapshotCache keeps the latest published playlist outside the process so a
// restarted instance can serve it before its first cycle completes.
type SnapshotCache interface {
	// Save replaces the cached snapshot.
	Save(ctx context.Context, s *entity.PlaylistSnapshot) error
	// Load returns the cached snapshot or ErrSnapshotNotFound.
	Load(ctx context.Context) (*entity.PlaylistSnapshot, error)
}

// CycleLock serializes crawl cycles across replicas.
type CycleLock interface {
	// Acquire takes the lock for ttl. It reports false if another holder has it.
	Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error)
	// Release drops the lock if it is still held under token.
	Release(ctx context.Context, token string) error
}
