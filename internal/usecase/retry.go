package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/repository"
	"github.com/user/livecast-service/pkg/metrics"
)

const (
	defaultMaxAttempts = 3
	// The source occasionally serves a placeholder page; one more look is
	// enough to tell a placeholder from a real layout change.
	maxExtractionAttempts = 2
)

// RetryPolicy turns a fetch into a terminal FetchOutcome with bounded,
// strictly sequential retries.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration // delay before attempt n+1 is BaseDelay*n
	MaxDelay    time.Duration // cap on a single delay; 0 means uncapped

	Metrics *metrics.Metrics // optional
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now stamps successful outcomes. Nil uses time.Now.
	Now func() time.Time
}

// Backoff returns the delay after the given (1-based) failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fetcher for ch until it succeeds, fails terminally or ctx ends.
// It always returns an outcome.
func (p RetryPolicy) Do(ctx context.Context, fetcher repository.StreamFetcher, ch entity.ChannelDescriptor) entity.FetchOutcome {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var (
		lastErr    error
		lastReason entity.FailureReason
		misses     int
		attempt    int
	)
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		streamURL, err := fetcher.Fetch(ctx, ch)
		if err == nil {
			p.observe("success")
			return entity.Succeeded(ch, streamURL, p.now(), attempt)
		}
		if errors.Is(err, repository.ErrCycleTimeout) {
			// The fetcher gave up before sending anything.
			p.observe(string(entity.ReasonTimeout))
			return entity.Failed(ch, entity.ReasonTimeout, attempt-1, err)
		}
		if ctx.Err() != nil {
			p.observe(string(entity.ReasonTimeout))
			return entity.Failed(ch, entity.ReasonTimeout, attempt, errors.Join(repository.ErrCycleTimeout, err))
		}

		lastErr = err
		lastReason = classify(err)
		p.observe(string(lastReason))

		if lastReason == entity.ReasonExtractionMiss {
			misses++
			if misses >= maxExtractionAttempts {
				break
			}
		}
		if attempt == maxAttempts {
			break
		}

		if err := p.sleep(ctx, p.Backoff(attempt)); err != nil {
			return entity.Failed(ch, entity.ReasonTimeout, attempt, errors.Join(repository.ErrCycleTimeout, lastErr))
		}
	}

	return entity.Failed(ch, lastReason, attempt, lastErr)
}

// classify maps a fetch error to a failure reason. Unknown errors are treated
// as transport failures so they get the full retry budget.
func classify(err error) entity.FailureReason {
	switch {
	case errors.Is(err, repository.ErrExtractionMiss):
		return entity.ReasonExtractionMiss
	default:
		return entity.ReasonNetwork
	}
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p RetryPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p RetryPolicy) observe(result string) {
	if p.Metrics != nil {
		p.Metrics.FetchAttemptsTotal.WithLabelValues(result).Inc()
	}
}
