package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/playlist"
	"github.com/user/livecast-service/internal/repository"
	"go.uber.org/zap/zaptest"
)

func descriptors(n int) []entity.ChannelDescriptor {
	out := make([]entity.ChannelDescriptor, n)
	for i := range out {
		id := fmt.Sprintf("ch%d", i+1)
		out[i] = entity.ChannelDescriptor{ID: id, Name: "Channel " + id, SourceURL: "https://example.com/" + id}
	}
	return out
}

// latencyFetcher sleeps a per-channel latency and tracks concurrency.
type latencyFetcher struct {
	latency  map[string]time.Duration
	block    map[string]bool // blocks until ctx is done
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *latencyFetcher) Fetch(ctx context.Context, ch entity.ChannelDescriptor) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.block[ch.ID] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	select {
	case <-time.After(f.latency[ch.ID]):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "https://cdn.example.com/" + ch.ID + ".m3u8", nil
}

type panicFetcher struct{}

func (panicFetcher) Fetch(ctx context.Context, ch entity.ChannelDescriptor) (string, error) {
	if ch.ID == "ch2" {
		panic("parser exploded")
	}
	return "https://cdn.example.com/" + ch.ID + ".m3u8", nil
}

func assertOrder(t *testing.T, want []entity.ChannelDescriptor, got entity.CrawlResultSet) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].Descriptor.ID, "position %d", i)
	}
}

func TestRunCycle_OrderIndependentOfCompletion(t *testing.T) {
	ds := descriptors(6)
	f := &latencyFetcher{latency: map[string]time.Duration{
		"ch1": 60 * time.Millisecond,
		"ch2": 5 * time.Millisecond,
		"ch3": 40 * time.Millisecond,
		"ch4": 1 * time.Millisecond,
		"ch5": 30 * time.Millisecond,
		"ch6": 0,
	}}
	o := NewOrchestrator(f, testPolicy(1, &recordSleep{}), 6, zaptest.NewLogger(t))

	got := o.RunCycle(context.Background(), ds)

	assertOrder(t, ds, got)
	for _, out := range got {
		assert.True(t, out.OK())
		assert.Equal(t, "https://cdn.example.com/"+out.Descriptor.ID+".m3u8", out.StreamURL)
	}
}

func TestRunCycle_BoundedConcurrency(t *testing.T) {
	ds := descriptors(5)
	f := &latencyFetcher{latency: map[string]time.Duration{
		"ch1": 30 * time.Millisecond,
		"ch2": 10 * time.Millisecond,
		"ch3": 25 * time.Millisecond,
		"ch4": 5 * time.Millisecond,
		"ch5": 15 * time.Millisecond,
	}}
	o := NewOrchestrator(f, testPolicy(1, &recordSleep{}), 2, zaptest.NewLogger(t))

	got := o.RunCycle(context.Background(), ds)

	assert.LessOrEqual(t, f.maxSeen.Load(), int32(2))
	assertOrder(t, ds, got)
	s, fails := got.Counts()
	assert.Equal(t, 5, s)
	assert.Equal(t, 0, fails)
}

func TestRunCycle_RetriedChannelKeepsPosition(t *testing.T) {
	ds := descriptors(3)
	f := newScriptedFetcher(map[string][]error{"ch2": netErr(2)})
	o := NewOrchestrator(f, testPolicy(3, &recordSleep{}), 3, zaptest.NewLogger(t))

	results := o.RunCycle(context.Background(), ds)
	snap := playlist.Build("c", "", results, time.Now())

	assertOrder(t, ds, results)
	assert.Equal(t, 3, results[1].Attempts)
	assert.Equal(t, 3, snap.SuccessCount)
	assert.Equal(t, 0, snap.FailureCount)
	require.Len(t, snap.Entries, 3)
	assert.Equal(t, "Channel ch1", snap.Entries[0].Name)
	assert.Equal(t, "Channel ch2", snap.Entries[1].Name)
	assert.Equal(t, "Channel ch3", snap.Entries[2].Name)
}

func TestRunCycle_FailuresIsolated(t *testing.T) {
	ds := descriptors(3)
	o := NewOrchestrator(panicFetcher{}, testPolicy(1, &recordSleep{}), 2, zaptest.NewLogger(t))

	got := o.RunCycle(context.Background(), ds)

	assertOrder(t, ds, got)
	assert.True(t, got[0].OK())
	assert.False(t, got[1].OK())
	assert.Equal(t, entity.ReasonNetwork, got[1].Reason)
	assert.Contains(t, got[1].Error, "parser exploded")
	assert.True(t, got[2].OK())
}

func TestRunCycle_DeadlineMarksPendingAsTimeout(t *testing.T) {
	ds := descriptors(4)
	f := &latencyFetcher{block: map[string]bool{"ch2": true, "ch4": true}}
	o := NewOrchestrator(f, testPolicy(3, &recordSleep{}), 4, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	results := o.RunCycle(ctx, ds)

	assertOrder(t, ds, results)
	assert.True(t, results[0].OK())
	assert.Equal(t, entity.ReasonTimeout, results[1].Reason)
	assert.True(t, results[2].OK())
	assert.Equal(t, entity.ReasonTimeout, results[3].Reason)

	snap := playlist.Build("c", "", results, time.Now())
	assert.Equal(t, 2, snap.SuccessCount)
	assert.Equal(t, 2, snap.FailureCount)
	assert.Len(t, snap.Entries, 2)
}

// stuckAfterFailures fails fast with a network error, then hangs past any
// deadline without watching ctx.
type stuckAfterFailures struct {
	failures int32
	calls    atomic.Int32
}

func (f *stuckAfterFailures) Fetch(ctx context.Context, ch entity.ChannelDescriptor) (string, error) {
	if f.calls.Add(1) <= f.failures {
		return "", fmt.Errorf("%w: connection reset", repository.ErrNetwork)
	}
	time.Sleep(300 * time.Millisecond)
	return "", fmt.Errorf("%w: too late", repository.ErrNetwork)
}

func TestRunCycle_DeadlineKeepsAttemptCount(t *testing.T) {
	ds := descriptors(1)
	f := &stuckAfterFailures{failures: 2}
	o := NewOrchestrator(f, testPolicy(5, &recordSleep{}), 1, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	results := o.RunCycle(ctx, ds)

	require.Len(t, results, 1)
	assert.Equal(t, entity.ReasonTimeout, results[0].Reason)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestRunCycle_DeadlineBeforeDispatch(t *testing.T) {
	ds := descriptors(5)
	f := &latencyFetcher{block: map[string]bool{"ch1": true}}
	o := NewOrchestrator(f, testPolicy(1, &recordSleep{}), 1, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	results := o.RunCycle(ctx, ds)

	assertOrder(t, ds, results)
	for _, r := range results {
		assert.Equal(t, entity.ReasonTimeout, r.Reason, r.Descriptor.ID)
	}
}

func TestRunCycle_Empty(t *testing.T) {
	o := NewOrchestrator(panicFetcher{}, RetryPolicy{}, 3, zaptest.NewLogger(t))
	assert.Empty(t, o.RunCycle(context.Background(), nil))
}
