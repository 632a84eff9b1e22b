// Package ratelimiter implements the distributed token-bucket rate
// limiter in three interchangeable consistency profiles (optimistic
// fire-and-forget, partially-atomic hybrid, and fully-atomic), sharing
// the refill/consume arithmetic in pkg/bucket and a pkg/store.Store for
// remote persistence. All three satisfy the same Limiter contract so an
// orchestrator can select between them without caring which is active.
package ratelimiter

import "context"

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	Allowed            bool
	RateLimitLimit     int64
	RateLimitRemaining int64
	RateLimitReset     int64
	Collision          bool
}

// Limiter is the shared contract every consistency profile implements.
type Limiter interface {
	Apply(ctx context.Context, clientID string) (Decision, error)
}

// Key identifies a limiter variant, matching the values accepted on the
// x-rate-limiter request header and the default-limiter configuration.
type Key string

const (
	KeyOptimisticV1 Key = "reduced-atomicity-hybrid-v1"
	KeyHybridV2     Key = "reduced-atomicity-hybrid-v2"
	KeyFullyAtomic  Key = "fully-atomic-dynamo"
)
