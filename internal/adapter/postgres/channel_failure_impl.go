package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/livecast-service/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS channel_failures (
	channel_id           TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	source_url           TEXT NOT NULL,
	reason               TEXT NOT NULL,
	error                TEXT NOT NULL DEFAULT '',
	attempts             INTEGER NOT NULL,
	consecutive_failures INTEGER NOT NULL DEFAULT 1,
	cycle_id             TEXT NOT NULL,
	last_failed_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS channel_failures_last_failed_at_idx ON channel_failures (last_failed_at DESC);
`

// NewPool connects to PostgreSQL and verifies the connection.
func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return db, nil
}

// ChannelFailureRepoImpl provides a concrete implementation for the ChannelFailureRepository interface using PostgreSQL.
type ChannelFailureRepoImpl struct {
	db *pgxpool.Pool
}

// NewChannelFailureRepo creates a new instance of ChannelFailureRepoImpl.
func NewChannelFailureRepo(db *pgxpool.Pool) *ChannelFailureRepoImpl {
	return &ChannelFailureRepoImpl{db: db}
}

// EnsureSchema creates the channel_failures table if it does not exist.
func (r *ChannelFailureRepoImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// SaveOrUpdate creates or updates a record for a failed channel.
// It increments consecutive_failures on conflict.
func (r *ChannelFailureRepoImpl) SaveOrUpdate(ctx context.Context, f *entity.ChannelFailure) error {
	query := `
		INSERT INTO channel_failures (channel_id, name, source_url, reason, error, attempts, consecutive_failures, cycle_id, last_failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
		ON CONFLICT (channel_id) DO UPDATE SET
			name = EXCLUDED.name,
			source_url = EXCLUDED.source_url,
			reason = EXCLUDED.reason,
			error = EXCLUDED.error,
			attempts = EXCLUDED.attempts,
			consecutive_failures = channel_failures.consecutive_failures + 1,
			cycle_id = EXCLUDED.cycle_id,
			last_failed_at = EXCLUDED.last_failed_at
		RETURNING consecutive_failures;
	`
	return r.db.QueryRow(ctx, query,
		f.ChannelID,
		f.Name,
		f.SourceURL,
		f.Reason,
		f.Error,
		f.Attempts,
		f.CycleID,
		f.LastFailedAt,
	).Scan(&f.ConsecutiveFailures)
}

// FindRecent retrieves the most recently failed channels.
func (r *ChannelFailureRepoImpl) FindRecent(ctx context.Context, limit int) ([]*entity.ChannelFailure, error) {
	query := `
		SELECT channel_id, name, source_url, reason, error, attempts, consecutive_failures, cycle_id, last_failed_at
		FROM channel_failures
		ORDER BY last_failed_at DESC, channel_id ASC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	failures := make([]*entity.ChannelFailure, 0)
	for rows.Next() {
		var f entity.ChannelFailure
		if err := rows.Scan(
			&f.ChannelID,
			&f.Name,
			&f.SourceURL,
			&f.Reason,
			&f.Error,
			&f.Attempts,
			&f.ConsecutiveFailures,
			&f.CycleID,
			&f.LastFailedAt,
		); err != nil {
			return nil, err
		}
		failures = append(failures, &f)
	}

	return failures, rows.Err()
}

// Delete removes a channel's record, typically after a successful fetch.
func (r *ChannelFailureRepoImpl) Delete(ctx context.Context, channelID string) error {
	query := `DELETE FROM channel_failures WHERE channel_id = $1;`
	_, err := r.db.Exec(ctx, query, channelID)
	return err
}
