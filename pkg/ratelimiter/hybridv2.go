package ratelimiter

import (
	"context"
	"log/slog"
	"math"

	"github.com/dmitrymomot/edgegate/pkg/bucket"
	"github.com/dmitrymomot/edgegate/pkg/clock"
	"github.com/dmitrymomot/edgegate/pkg/store"
)

// Staleness windows available to HybridV2, trading Get traffic against
// over-issuance. This implementation defaults to the tighter window.
const (
	HybridStaleness1s  = 1000
	HybridStaleness15s = 15000
)

// defaultBackgroundRetries is how many times the background sync
// recomputes against a refreshed store read after a collision before
// giving up silently.
const defaultBackgroundRetries = 1

// HybridV2 is the partially-atomic limiter: the hot path decides and
// updates its process-local cache synchronously, then fires a detached
// background conditional write against the store. On a condition
// mismatch the sync refreshes the cache and retries the write a bounded
// number of times; the foreground decision already returned is never
// revised. In-flight overages are the accepted cost of this path.
//
// The collision flag on the foreground Decision is always false: the
// actual conditional write happens after the decision is returned, so a
// truthful foreground flag is not obtainable without blocking. Collisions
// are only observable through background logging.
type HybridV2 struct {
	Store             store.Store
	Clock             clock.Clock
	Logger            *slog.Logger
	StalenessMillis   int64
	BackgroundRetries int

	cache *memoryCache
}

// Option configures a HybridV2 limiter at construction.
type Option func(*HybridV2)

// WithStaleness overrides the cache staleness window.
func WithStaleness(millis int64) Option {
	return func(h *HybridV2) { h.StalenessMillis = millis }
}

// WithBackgroundRetries overrides how many times the background sync
// retries after a collision.
func WithBackgroundRetries(n int) Option {
	return func(h *HybridV2) { h.BackgroundRetries = n }
}

// NewHybridV2 builds a HybridV2 limiter over s, defaulting to a 1s
// staleness window and a single background retry. A nil logger falls
// back to slog.Default().
func NewHybridV2(s store.Store, c clock.Clock, logger *slog.Logger, opts ...Option) *HybridV2 {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HybridV2{
		Store:             s,
		Clock:             c,
		Logger:            logger,
		StalenessMillis:   HybridStaleness1s,
		BackgroundRetries: defaultBackgroundRetries,
		cache:             newMemoryCache(defaultCacheCapacity),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HybridV2) Apply(ctx context.Context, clientID string) (Decision, error) {
	unlock := h.cache.lock(clientID)
	defer unlock()

	now := h.Clock.NowMillis()

	entry, _ := h.cache.get(clientID)
	if stale(entry, now, h.StalenessMillis) {
		raw, found, err := h.Store.Get(ctx, clientID)
		if err != nil {
			return Decision{
				Allowed:        false,
				RateLimitLimit: bucket.DefaultMaxTokens,
			}, nil
		}
		entry = &cachedBucket{Bucket: bucket.Sanitize(raw, found, now), LastAccess: now}
	}

	preSnapshot := entry.Bucket
	eval := bucket.Evaluate(entry.Bucket, now)

	decision := Decision{
		Allowed:            eval.Allowed,
		RateLimitLimit:     int64(entry.Bucket.MaxTokens),
		RateLimitRemaining: eval.Remaining,
		RateLimitReset:     eval.ResetSeconds,
	}

	if !eval.Allowed {
		refilled := eval.CappedTokens > entry.Bucket.Tokens
		entry.Bucket.Tokens = eval.CappedTokens
		entry.Bucket.LastRefill = now
		entry.LastAccess = now
		h.cache.put(clientID, entry)

		if refilled {
			go h.sync(preSnapshot, clientID, eval.CappedTokens, now, false)
		}
		return decision, nil
	}

	entry.Bucket.Tokens = eval.NewTokens
	entry.Bucket.LastRefill = now
	entry.LastAccess = now
	h.cache.put(clientID, entry)

	go h.sync(preSnapshot, clientID, eval.CappedTokens, now, true)

	return decision, nil
}

// sync performs the background conditional write. preSnapshot is the
// bucket observed before this call's refill/consume, the optimistic
// concurrency predecessor. cappedTokens is the post-refill,
// pre-consumption value computed on the hot path; the persisted value is
// derived from it depending on isConsumed.
func (h *HybridV2) sync(preSnapshot bucket.Bucket, clientID string, cappedTokens float64, now int64, isConsumed bool) {
	ctx := context.Background()

	persist := cappedTokens
	if isConsumed {
		persist = cappedTokens - 1
	}

	fields := store.Fields{
		Tokens:         math.Floor(persist),
		LastRefill:     now,
		RefillRate:     preSnapshot.RefillRate,
		RefillInterval: preSnapshot.RefillInterval,
		MaxTokens:      preSnapshot.MaxTokens,
	}

	ok, err := h.Store.Update(ctx, clientID, fields, store.Condition{ExpectedLastRefill: preSnapshot.LastRefill})
	if err != nil {
		h.Logger.Warn("ratelimiter: hybrid background sync failed", "clientId", clientID, "error", err)
		return
	}
	if ok {
		return
	}

	h.Logger.Info("ratelimiter: hybrid background sync collision", "clientId", clientID)
	h.reconcile(ctx, clientID, now, h.BackgroundRetries)
}

// reconcile refreshes the cache from the store after a collision and
// retries the write against the refreshed state, up to retries times.
func (h *HybridV2) reconcile(ctx context.Context, clientID string, now int64, retries int) {
	for attempt := 0; attempt < retries; attempt++ {
		raw, found, err := h.Store.Get(ctx, clientID)
		if err != nil {
			h.Logger.Warn("ratelimiter: hybrid reconcile Get failed", "clientId", clientID, "error", err)
			return
		}

		refreshed := bucket.Sanitize(raw, found, now)
		unlock := h.cache.lock(clientID)
		h.cache.put(clientID, &cachedBucket{Bucket: refreshed, LastAccess: now})
		unlock()

		eval := bucket.Evaluate(refreshed, now)
		fields := store.Fields{
			Tokens:         math.Floor(eval.CappedTokens),
			LastRefill:     now,
			RefillRate:     refreshed.RefillRate,
			RefillInterval: refreshed.RefillInterval,
			MaxTokens:      refreshed.MaxTokens,
		}

		ok, err := h.Store.Update(ctx, clientID, fields, store.Condition{ExpectedLastRefill: refreshed.LastRefill})
		if err != nil {
			h.Logger.Warn("ratelimiter: hybrid reconcile write failed", "clientId", clientID, "error", err)
			return
		}
		if ok {
			return
		}
	}

	h.Logger.Warn("ratelimiter: hybrid background sync gave up after collision", "clientId", clientID)
}
