package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boothplan/pkg/cache"
	"github.com/matzehuels/boothplan/pkg/observability"
	"github.com/matzehuels/boothplan/pkg/runlock"
)

const cacheKeyType = "allocation"

// Runner wraps Allocate with a result cache and a run lock. It keeps no
// per-run state, so one Runner serves concurrent callers.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Locker runlock.Locker
	Logger *log.Logger
}

// NewRunner fills nil arguments with a NullCache, the DefaultKeyer, an
// in-process locker and the default logger.
func NewRunner(c cache.Cache, keyer cache.Keyer, locker runlock.Locker, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if locker == nil {
		locker = runlock.NewLocal()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Locker: locker, Logger: logger}
}

// Run returns the cached result for in and opts if there is one, and
// otherwise allocates under the floor plan's run lock and caches the result.
// A busy floor plan fails with LOCKED. Cache failures are logged and never
// fail the run.
func (r *Runner) Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateProjects(in.Projects); err != nil {
		return nil, err
	}

	fpHash, err := cache.HashJSON(floorPlan{Maps: in.Maps, Clusters: in.Clusters})
	if err != nil {
		return nil, fmt.Errorf("hash floor plan: %w", err)
	}
	demandHash, err := cache.HashJSON(in.Projects)
	if err != nil {
		return nil, fmt.Errorf("hash projects: %w", err)
	}
	key := r.Keyer.AllocationKey(fpHash, demandHash, opts.KeyOpts())

	if !opts.Refresh {
		if res, ok := r.cached(ctx, key); ok {
			r.Logger.Info("using cached allocation", "run", res.RunID, "placed", res.Stats.Placed)
			return res, nil
		}
	}

	lockKey := opts.LockKey
	if lockKey == "" {
		lockKey = fpHash
	}
	release, err := r.Locker.Acquire(ctx, lockKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.Logger.Warn("release run lock", "key", lockKey, "err", err)
		}
	}()

	res, err := Allocate(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, res)
	return res, nil
}

func (r *Runner) cached(ctx context.Context, key string) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("read result cache", "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "err", err)
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, cacheKeyType)
	res.CacheHit = true
	return &res, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		r.Logger.Warn("encode result for cache", "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.DefaultTTL); err != nil {
		r.Logger.Warn("write result cache", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
