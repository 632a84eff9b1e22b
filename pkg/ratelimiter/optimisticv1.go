package ratelimiter

import (
	"context"
	"log/slog"
	"math"

	"github.com/dmitrymomot/edgegate/pkg/bucket"
	"github.com/dmitrymomot/edgegate/pkg/clock"
	"github.com/dmitrymomot/edgegate/pkg/store"
)

// v1Staleness is the fixed cache-refresh window for the optimistic
// variant; unlike hybrid V2 it is not configurable.
const v1Staleness = 1000 // ms

// OptimisticV1 is the minimum-latency limiter: the hot path never awaits
// a write. The cache refreshes from the store when stale or missing;
// writes are unconditional and fired from a detached goroutine, so
// concurrent writers from different processes simply clobber each other
// (last-write-wins). Deliberate; see HybridV2 for the conflict-aware
// alternative.
type OptimisticV1 struct {
	Store  store.Store
	Clock  clock.Clock
	Logger *slog.Logger

	cache *memoryCache
}

// NewOptimisticV1 builds an OptimisticV1 limiter over s. A nil logger
// falls back to slog.Default().
func NewOptimisticV1(s store.Store, c clock.Clock, logger *slog.Logger) *OptimisticV1 {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptimisticV1{
		Store:  s,
		Clock:  c,
		Logger: logger,
		cache:  newMemoryCache(defaultCacheCapacity),
	}
}

func (o *OptimisticV1) Apply(ctx context.Context, clientID string) (Decision, error) {
	unlock := o.cache.lock(clientID)
	defer unlock()

	now := o.Clock.NowMillis()

	entry, _ := o.cache.get(clientID)
	if stale(entry, now, v1Staleness) {
		refreshed, err := o.refresh(ctx, clientID, now)
		if err != nil {
			// Fail closed: a transport error on Get must not translate
			// into unbounded latency or an accidental allow.
			return Decision{
				Allowed:        false,
				RateLimitLimit: bucket.DefaultMaxTokens,
			}, nil
		}
		entry = refreshed
	}

	eval := bucket.Evaluate(entry.Bucket, now)

	decision := Decision{
		Allowed:            eval.Allowed,
		RateLimitLimit:     int64(entry.Bucket.MaxTokens),
		RateLimitRemaining: eval.Remaining,
		RateLimitReset:     eval.ResetSeconds,
	}

	if !eval.Allowed {
		entry.Bucket.Tokens = eval.CappedTokens
		entry.Bucket.LastRefill = now
		entry.LastAccess = now
		o.cache.put(clientID, entry)
		return decision, nil
	}

	entry.Bucket.Tokens = eval.NewTokens
	entry.Bucket.LastRefill = now
	entry.LastAccess = now
	o.cache.put(clientID, entry)

	fields := store.Fields{
		Tokens:         math.Floor(eval.NewTokens),
		LastRefill:     now,
		RefillRate:     entry.Bucket.RefillRate,
		RefillInterval: entry.Bucket.RefillInterval,
		MaxTokens:      entry.Bucket.MaxTokens,
	}
	go o.writeAsync(clientID, fields)

	return decision, nil
}

func (o *OptimisticV1) refresh(ctx context.Context, clientID string, now int64) (*cachedBucket, error) {
	raw, found, err := o.Store.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	entry := &cachedBucket{Bucket: bucket.Sanitize(raw, found, now), LastAccess: now}
	o.cache.put(clientID, entry)
	return entry, nil
}

// writeAsync performs the unconditional background write. It is bound to
// a fresh background context, not the request's: the request handler may
// return (and in some runtimes cancel its context) long before this
// completes.
func (o *OptimisticV1) writeAsync(clientID string, fields store.Fields) {
	ctx := context.Background()
	if _, err := o.Store.Update(ctx, clientID, fields, store.Condition{Unconditional: true}); err != nil {
		o.Logger.Warn("ratelimiter: optimistic async write failed", "clientId", clientID, "error", err)
	}
}
