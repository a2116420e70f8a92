package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/playlist"
	"github.com/user/livecast-service/internal/repository"
	"github.com/user/livecast-service/internal/snapshot"
	"github.com/user/livecast-service/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CycleRunnerConfig wires a CycleRunner. Cache, Failures and Lock are
// optional; nil disables the corresponding persistence.
type CycleRunnerConfig struct {
	Channels     []entity.ChannelDescriptor
	GroupTitle   string
	Orchestrator *Orchestrator
	Store        *snapshot.Store

	Cache    repository.SnapshotCache
	Failures repository.ChannelFailureRepository
	Lock     repository.CycleLock

	Interval     time.Duration
	CycleTimeout time.Duration
	LockTTL      time.Duration

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// CycleRunner runs crawl cycles, one at a time, and publishes their playlists.
type CycleRunner struct {
	cfg   CycleRunnerConfig
	group singleflight.Group
	now   func() time.Time

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

// NewCycleRunner creates a new CycleRunner.
func NewCycleRunner(cfg CycleRunnerConfig) *CycleRunner {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * cfg.CycleTimeout
	}
	// A lock without expiry would outlive a crashed holder forever.
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * cfg.Interval
	}
	return &CycleRunner{
		cfg:     cfg,
		now:     time.Now,
		baseCtx: context.Background(),
	}
}

// RunOnce runs a cycle. Callers arriving while a cycle is running share its
// report instead of starting another one.
func (r *CycleRunner) RunOnce(ctx context.Context) (entity.CycleReport, error) {
	v, err, shared := r.group.Do("cycle", func() (any, error) {
		return r.run(ctx)
	})
	if shared {
		r.cfg.Logger.Debug("joined running cycle")
	}
	if err != nil {
		return entity.CycleReport{}, err
	}
	return v.(entity.CycleReport), nil
}

func (r *CycleRunner) run(ctx context.Context) (entity.CycleReport, error) {
	cycleID := uuid.NewString()
	log := r.cfg.Logger.With(zap.String("cycle_id", cycleID))

	if r.cfg.Lock != nil {
		ok, err := r.cfg.Lock.Acquire(ctx, cycleID, r.cfg.LockTTL)
		switch {
		case err != nil:
			// A lock outage must not stop the playlist from refreshing.
			log.Warn("cycle lock unavailable, running unlocked", zap.Error(err))
		case !ok:
			r.countCycle("locked")
			log.Info("another instance is crawling, skipping cycle")
			return entity.CycleReport{}, repository.ErrCycleInProgress
		default:
			defer func() {
				if err := r.cfg.Lock.Release(context.WithoutCancel(ctx), cycleID); err != nil {
					log.Warn("failed to release cycle lock", zap.Error(err))
				}
			}()
		}
	}

	started := r.now()
	log.Info("crawl cycle started", zap.Int("channels", len(r.cfg.Channels)))

	cycleCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.cfg.CycleTimeout > 0 {
		cycleCtx, cancel = context.WithTimeout(ctx, r.cfg.CycleTimeout)
	}
	results := r.cfg.Orchestrator.RunCycle(cycleCtx, r.cfg.Channels)
	cancel()

	finished := r.now()
	snap := playlist.Build(cycleID, r.cfg.GroupTitle, results, finished)
	report := entity.CycleReport{
		CycleID:      cycleID,
		StartedAt:    started,
		FinishedAt:   finished,
		SuccessCount: snap.SuccessCount,
		FailureCount: snap.FailureCount,
	}

	// Persistence outlives the cycle deadline but not the caller.
	persistCtx := ctx
	if snap.SuccessCount > 0 {
		r.cfg.Store.Publish(snap)
		report.Published = true
		r.saveSnapshot(persistCtx, log, snap)
	} else {
		log.Error("cycle resolved no channels, keeping previous playlist", zap.Int("failures", snap.FailureCount))
	}
	r.cfg.Store.RecordCycle(report)
	r.recordOutcomes(persistCtx, log, cycleID, results, finished)
	r.observe(report, results)

	log.Info("crawl cycle finished",
		zap.Int("success", report.SuccessCount),
		zap.Int("failure", report.FailureCount),
		zap.Bool("published", report.Published),
		zap.Duration("duration", finished.Sub(started)),
	)
	return report, nil
}

func (r *CycleRunner) saveSnapshot(ctx context.Context, log *zap.Logger, snap *entity.PlaylistSnapshot) {
	if r.cfg.Cache == nil {
		return
	}
	if err := r.cfg.Cache.Save(ctx, snap); err != nil {
		// Not critical: the in-memory store already serves the new playlist.
		log.Warn("failed to cache snapshot", zap.Error(err))
	}
}

func (r *CycleRunner) recordOutcomes(ctx context.Context, log *zap.Logger, cycleID string, results entity.CrawlResultSet, at time.Time) {
	if r.cfg.Failures == nil {
		return
	}
	for _, o := range results {
		if o.OK() {
			if err := r.cfg.Failures.Delete(ctx, o.Descriptor.ID); err != nil {
				log.Warn("failed to clear channel failure", zap.String("channel", o.Descriptor.ID), zap.Error(err))
			}
			continue
		}
		if err := r.cfg.Failures.SaveOrUpdate(ctx, entity.NewChannelFailure(cycleID, o, at)); err != nil {
			log.Warn("failed to record channel failure", zap.String("channel", o.Descriptor.ID), zap.Error(err))
		}
	}
}

func (r *CycleRunner) observe(report entity.CycleReport, results entity.CrawlResultSet) {
	m := r.cfg.Metrics
	if m == nil {
		return
	}
	m.CycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	for _, o := range results {
		if o.OK() {
			m.ChannelsTotal.WithLabelValues("success", "").Inc()
		} else {
			m.ChannelsTotal.WithLabelValues("failure", string(o.Reason)).Inc()
		}
	}
	if report.Published {
		r.countCycle("published")
		m.PlaylistEntries.Set(float64(report.SuccessCount))
		m.LastSuccessfulRun.Set(float64(report.FinishedAt.Unix()))
	} else {
		r.countCycle("skipped")
	}
}

func (r *CycleRunner) countCycle(result string) {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.CyclesTotal.WithLabelValues(result).Inc()
	}
}

// Restore seeds the store with the cached snapshot so a restarted instance
// serves the last good playlist before its first cycle finishes.
func (r *CycleRunner) Restore(ctx context.Context) error {
	if r.cfg.Cache == nil {
		return nil
	}
	snap, err := r.cfg.Cache.Load(ctx)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		r.cfg.Logger.Info("no cached playlist to restore")
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := r.cfg.Store.Current(); !ok {
		r.cfg.Store.Publish(snap)
		r.cfg.Logger.Info("restored cached playlist",
			zap.String("cycle_id", snap.CycleID),
			zap.Time("generated_at", snap.GeneratedAt),
			zap.Int("entries", len(snap.Entries)),
		)
	}
	return nil
}

// Start runs a cycle immediately and then every interval until Stop.
func (r *CycleRunner) Start(ctx context.Context) {
	r.mu.Lock()
	r.baseCtx, r.cancel = context.WithCancel(ctx)
	loopCtx := r.baseCtx
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(loopCtx)
}

func (r *CycleRunner) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		r.runLogged(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Trigger starts a cycle in the background, or joins the running one.
func (r *CycleRunner) Trigger() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.baseCtx.Err() != nil {
		return
	}
	ctx := r.baseCtx

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runLogged(ctx)
	}()
}

// Stop cancels the schedule and waits for running cycles to finish.
func (r *CycleRunner) Stop() {
	r.mu.Lock()
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *CycleRunner) runLogged(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, repository.ErrCycleInProgress) {
		r.cfg.Logger.Error("crawl cycle failed", zap.Error(err))
	}
}
