package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/repository"
	"github.com/user/livecast-service/pkg/utils"
	"go.uber.org/zap"
)

// Orchestrator fans one cycle's channels out over a fixed worker pool.
type Orchestrator struct {
	fetcher     repository.StreamFetcher
	policy      RetryPolicy
	concurrency int
	logger      *zap.Logger
}

// NewOrchestrator creates an orchestrator running at most concurrency fetches
// at a time.
func NewOrchestrator(fetcher repository.StreamFetcher, policy RetryPolicy, concurrency int, logger *zap.Logger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		fetcher:     fetcher,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
	}
}

type indexedOutcome struct {
	index   int
	outcome entity.FetchOutcome
}

// RunCycle resolves every descriptor and returns one outcome per descriptor,
// in descriptor order. When ctx ends first, descriptors without an outcome
// are recorded as timeouts.
func (o *Orchestrator) RunCycle(ctx context.Context, descriptors []entity.ChannelDescriptor) entity.CrawlResultSet {
	n := len(descriptors)
	results := make(entity.CrawlResultSet, n)
	if n == 0 {
		return results
	}

	// Fetch calls per descriptor, so channels abandoned at the deadline
	// still report how often they were tried.
	attempts := make([]atomic.Int32, n)

	jobs := make(chan int)
	// Buffered so workers finishing after the deadline never block.
	done := make(chan indexedOutcome, n)

	workers := min(o.concurrency, n)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go o.worker(ctx, &wg, descriptors, attempts, jobs, done)
	}

	go func() {
		defer close(jobs)
		for i := range descriptors {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	settled := make([]bool, n)
	remaining := n
	record := func(r indexedOutcome) {
		results[r.index] = r.outcome
		settled[r.index] = true
		remaining--
	}

collect:
	for remaining > 0 {
		select {
		case r, ok := <-done:
			if !ok {
				break collect
			}
			record(r)
		case <-ctx.Done():
			break collect
		}
	}

	// Keep outcomes that were ready when the deadline fired.
drain:
	for remaining > 0 {
		select {
		case r, ok := <-done:
			if !ok {
				break drain
			}
			record(r)
		default:
			break drain
		}
	}

	if remaining > 0 {
		o.logger.Warn("cycle deadline reached with channels pending", zap.Int("pending", remaining), zap.Int("total", n))
		for i, ok := range settled {
			if !ok {
				results[i] = entity.Failed(descriptors[i], entity.ReasonTimeout, int(attempts[i].Load()), repository.ErrCycleTimeout)
			}
		}
	}
	return results
}

func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, descriptors []entity.ChannelDescriptor, attempts []atomic.Int32, jobs <-chan int, done chan<- indexedOutcome) {
	defer wg.Done()
	for i := range jobs {
		done <- indexedOutcome{index: i, outcome: o.runTask(ctx, descriptors[i], &attempts[i])}
	}
}

// countingFetcher records every call made for one descriptor.
type countingFetcher struct {
	repository.StreamFetcher
	calls *atomic.Int32
}

func (f countingFetcher) Fetch(ctx context.Context, ch entity.ChannelDescriptor) (string, error) {
	f.calls.Add(1)
	return f.StreamFetcher.Fetch(ctx, ch)
}

// runTask isolates one channel: a panicking fetcher fails only its channel.
func (o *Orchestrator) runTask(ctx context.Context, ch entity.ChannelDescriptor, calls *atomic.Int32) (outcome entity.FetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("fetch panicked", zap.String("channel", ch.ID), zap.Any("panic", r))
			outcome = entity.Failed(ch, entity.ReasonNetwork, max(int(calls.Load()), 1), fmt.Errorf("fetch panicked: %v", r))
		}
	}()

	if ctx.Err() != nil {
		return entity.Failed(ch, entity.ReasonTimeout, 0, repository.ErrCycleTimeout)
	}

	outcome = o.policy.Do(ctx, countingFetcher{StreamFetcher: o.fetcher, calls: calls}, ch)
	if outcome.OK() {
		o.logger.Debug("channel resolved",
			zap.String("channel", ch.ID),
			zap.String("stream_url", utils.Redact(outcome.StreamURL, "token")),
			zap.Int("attempts", outcome.Attempts),
		)
	} else {
		o.logger.Warn("channel failed",
			zap.String("channel", ch.ID),
			zap.String("reason", string(outcome.Reason)),
			zap.Int("attempts", outcome.Attempts),
			zap.String("error", outcome.Error),
		)
	}
	return outcome
}
