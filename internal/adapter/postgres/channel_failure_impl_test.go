package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/livecast-service/internal/entity"
)

// Runs against a real database when LIVECAST_TEST_POSTGRES_URL is set.
func newRepo(t *testing.T) *ChannelFailureRepoImpl {
	t.Helper()
	connStr := os.Getenv("LIVECAST_TEST_POSTGRES_URL")
	if connStr == "" {
		t.Skip("LIVECAST_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	db, err := NewPool(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := NewChannelFailureRepo(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	_, err = db.Exec(ctx, `TRUNCATE channel_failures`)
	require.NoError(t, err)
	return repo
}

func TestChannelFailureRepo(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	f := &entity.ChannelFailure{
		ChannelID: "cctv1", Name: "CCTV-1", SourceURL: "https://example.com/1",
		Reason: "network", Error: "connection reset", Attempts: 3,
		CycleID: "c1", LastFailedAt: at,
	}
	require.NoError(t, repo.SaveOrUpdate(ctx, f))
	assert.Equal(t, 1, f.ConsecutiveFailures)

	f2 := *f
	f2.CycleID = "c2"
	f2.Reason = "extraction_miss"
	f2.LastFailedAt = at.Add(time.Minute)
	require.NoError(t, repo.SaveOrUpdate(ctx, &f2))
	assert.Equal(t, 2, f2.ConsecutiveFailures)

	other := &entity.ChannelFailure{
		ChannelID: "cctv2", Name: "CCTV-2", SourceURL: "https://example.com/2",
		Reason: "timeout", CycleID: "c2", LastFailedAt: at,
	}
	require.NoError(t, repo.SaveOrUpdate(ctx, other))

	recent, err := repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "cctv1", recent[0].ChannelID)
	assert.Equal(t, "extraction_miss", recent[0].Reason)
	assert.Equal(t, "c2", recent[0].CycleID)

	require.NoError(t, repo.Delete(ctx, "cctv1"))
	recent, err = repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "cctv2", recent[0].ChannelID)
}
