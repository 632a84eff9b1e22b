// Package bucket implements the token-bucket state mathematics shared by
// every rate limiter variant: sanitizing a raw stored item into safe
// bounds and computing the refill/consume/reset arithmetic for a single
// request. None of it talks to a store or a clock source directly: it is
// pure functions over plain values so the three limiters (optimistic,
// hybrid, fully-atomic) can each drive it from their own state.
package bucket

import "math"

// Defaults applied when a field is entirely absent from the stored item
// (a brand-new client).
const (
	DefaultRefillRate     = 300
	DefaultRefillInterval = 60 // seconds
	DefaultMaxTokens      = 500
)

// Hard caps applied when a stored field is present but out of range.
const (
	HardMaxTokens      = 2500
	HardMaxRefillRate  = 2500
	hardMaxInterval    = 24 * 60 * 60 // a bucket that refills slower than once a day isn't meaningful
	minRefillRate      = 1
	minRefillInterval  = 1
	minMaxTokens       = 1
)

// Item is the raw, possibly-malformed record as read from the remote
// counter store. A zero Item combined with found=false represents a
// client that has never been seen.
type Item struct {
	Tokens         float64
	LastRefill     int64
	RefillRate     int
	RefillInterval int
	MaxTokens      int
}

// Bucket is a sanitized item: every field is within its declared range
// and safe to feed into Evaluate. Tokens may carry fractional precision
// (the hybrid limiters keep it that way in their in-process cache); it is
// floored only when reported or persisted.
type Bucket struct {
	Tokens         float64
	LastRefill     int64
	RefillRate     int
	RefillInterval int
	MaxTokens      int
}

// Sanitize applies defaults, minima and hard maxima to a raw item.
// Sanitization is total: it never fails. A missing item (found=false)
// yields a full bucket at the default capacity. A present item has each
// field clamped independently; a present-but-out-of-range integer field
// (zero, negative, too large) clamps to the nearest valid bound rather
// than falling back to the default. Non-finite Tokens (NaN, ±Inf) is
// replaced with MaxTokens, and a non-positive LastRefill with nowMillis.
func Sanitize(item Item, found bool, nowMillis int64) Bucket {
	if !found {
		return Bucket{
			Tokens:         float64(DefaultMaxTokens),
			LastRefill:     nowMillis,
			RefillRate:     DefaultRefillRate,
			RefillInterval: DefaultRefillInterval,
			MaxTokens:      DefaultMaxTokens,
		}
	}

	maxTokens := clampInt(item.MaxTokens, minMaxTokens, HardMaxTokens)
	refillRate := clampInt(item.RefillRate, minRefillRate, HardMaxRefillRate)
	refillInterval := clampInt(item.RefillInterval, minRefillInterval, hardMaxInterval)

	tokens := item.Tokens
	if math.IsNaN(tokens) || math.IsInf(tokens, 0) {
		tokens = float64(maxTokens)
	}
	if tokens < 0 {
		tokens = 0
	}
	if tokens > float64(maxTokens) {
		tokens = float64(maxTokens)
	}

	lastRefill := item.LastRefill
	if lastRefill <= 0 {
		lastRefill = nowMillis
	}

	return Bucket{
		Tokens:         tokens,
		LastRefill:     lastRefill,
		RefillRate:     refillRate,
		RefillInterval: refillInterval,
		MaxTokens:      maxTokens,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
