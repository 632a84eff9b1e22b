package ratelimiter

import (
	"context"
	"errors"
	"math"

	"github.com/dmitrymomot/edgegate/pkg/bucket"
	"github.com/dmitrymomot/edgegate/pkg/clock"
	"github.com/dmitrymomot/edgegate/pkg/store"
)

// FullyAtomic is the strict-correctness limiter: every call performs an
// awaited Get, and an allowed call then performs an awaited conditional
// Update before returning (a denied call writes nothing), so two
// successful writes from different processes can never claim the
// same lastRefill predecessor. Transport errors propagate; a failed
// condition is a business outcome (deny + collision), not an error.
type FullyAtomic struct {
	Store store.Store
	Clock clock.Clock
}

// NewFullyAtomic builds a FullyAtomic limiter over s, using c as its time
// source.
func NewFullyAtomic(s store.Store, c clock.Clock) *FullyAtomic {
	return &FullyAtomic{Store: s, Clock: c}
}

func (f *FullyAtomic) Apply(ctx context.Context, clientID string) (Decision, error) {
	now := f.Clock.NowMillis()

	raw, found, err := f.Store.Get(ctx, clientID)
	if err != nil {
		return Decision{}, errors.Join(ErrStoreUnavailable, err)
	}

	b := bucket.Sanitize(raw, found, now)
	eval := bucket.Evaluate(b, now)

	if !eval.Allowed {
		return Decision{
			Allowed:            false,
			RateLimitLimit:     int64(b.MaxTokens),
			RateLimitRemaining: eval.Remaining,
			RateLimitReset:     eval.ResetSeconds,
		}, nil
	}

	fields := store.Fields{
		Tokens:         math.Floor(eval.NewTokens),
		LastRefill:     now,
		RefillRate:     b.RefillRate,
		RefillInterval: b.RefillInterval,
		MaxTokens:      b.MaxTokens,
	}
	ok, err := f.Store.Update(ctx, clientID, fields, store.Condition{ExpectedLastRefill: b.LastRefill})
	if err != nil {
		return Decision{}, errors.Join(ErrStoreUnavailable, err)
	}
	if !ok {
		return Decision{
			Allowed:            false,
			Collision:          true,
			RateLimitLimit:     int64(b.MaxTokens),
			RateLimitRemaining: eval.TokensFloored,
			RateLimitReset:     bucket.ComputeReset(eval.TokensFloored, b.MaxTokens, b.RefillRate, b.RefillInterval),
		}, nil
	}

	return Decision{
		Allowed:            true,
		RateLimitLimit:     int64(b.MaxTokens),
		RateLimitRemaining: eval.Remaining,
		RateLimitReset:     eval.ResetSeconds,
	}, nil
}
