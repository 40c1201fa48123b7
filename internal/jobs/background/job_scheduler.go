package background

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/caching"
	"storefront/internal/pipeline"
	"storefront/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// JobScheduler keeps the catalog snapshot warm and reclaims idle browse
// sessions and expired in-process cache entries.
type JobScheduler struct {
	scheduler gocron.Scheduler
	hierarchy services.HierarchyService
	registry  *pipeline.Registry
	sweeper   caching.Sweeper
	logger    *zap.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

type Intervals struct {
	Warmup       time.Duration
	SessionSweep time.Duration
	CacheSweep   time.Duration
}

// NewJobScheduler registers the jobs whose interval is set. The cache sweep
// only runs for caches that implement caching.Sweeper.
func NewJobScheduler(hierarchy services.HierarchyService, registry *pipeline.Registry, cache caching.CacheService, intervals Intervals, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler: scheduler,
		hierarchy: hierarchy,
		registry:  registry,
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
	}
	if sweeper, ok := cache.(caching.Sweeper); ok {
		js.sweeper = sweeper
	}
	js.registerJobs(intervals)
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(intervals Intervals) {
	if intervals.Warmup > 0 {
		warmJob, err := js.scheduler.NewJob(
			gocron.DurationJob(intervals.Warmup),
			gocron.NewTask(js.WarmCategories, context.Background()),
			gocron.WithName("category-warmup"),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			js.logger.Error("failed to create category warm-up job", zap.Error(err))
		} else {
			js.jobs["category-warmup"] = warmJob
		}
	}

	if intervals.SessionSweep > 0 && js.registry != nil {
		sweepJob, err := js.scheduler.NewJob(
			gocron.DurationJob(intervals.SessionSweep),
			gocron.NewTask(js.SweepSessions),
			gocron.WithName("session-sweep"),
		)
		if err != nil {
			js.logger.Error("failed to create session sweep job", zap.Error(err))
		} else {
			js.jobs["session-sweep"] = sweepJob
		}
	}

	if intervals.CacheSweep > 0 && js.sweeper != nil {
		cacheJob, err := js.scheduler.NewJob(
			gocron.DurationJob(intervals.CacheSweep),
			gocron.NewTask(js.SweepCache),
			gocron.WithName("cache-sweep"),
		)
		if err != nil {
			js.logger.Error("failed to create cache sweep job", zap.Error(err))
		} else {
			js.jobs["cache-sweep"] = cacheJob
		}
	}

	js.logger.Info("registered background jobs", zap.Int("count", len(js.jobs)))
}

// WarmCategories reloads every active level of the hierarchy into the cache.
func (js *JobScheduler) WarmCategories(ctx context.Context) error {
	start := time.Now()
	count, err := js.hierarchy.Warm(ctx)
	if err != nil {
		js.logger.Warn("category warm-up failed", zap.Int("nodes", count), zap.Error(err))
		return err
	}
	js.logger.Info("category warm-up completed", zap.Int("nodes", count), zap.Duration("took", time.Since(start)))
	return nil
}

func (js *JobScheduler) SweepSessions() {
	if removed := js.registry.Sweep(); removed > 0 {
		js.logger.Debug("idle browse sessions removed", zap.Int("removed", removed))
	}
}

func (js *JobScheduler) SweepCache() {
	if removed := js.sweeper.PurgeExpired(); removed > 0 {
		js.logger.Debug("expired cache entries removed", zap.Int("removed", removed))
	}
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		jobs = append(jobs, name)
	}
	sort.Strings(jobs)

	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       jobs,
	}
}
