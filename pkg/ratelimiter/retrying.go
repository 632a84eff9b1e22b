package ratelimiter

import (
	"context"

	"github.com/dmitrymomot/edgegate/internal/retry"
)

// Retrying wraps a Limiter (intended for FullyAtomic) and retries the
// call while the decision reports a collision, for deployments that want
// strict enforcement despite contention. It changes nothing about a
// non-colliding or denied decision; it only gives a colliding conditional
// write another chance to observe the winning write and succeed against
// it.
type Retrying struct {
	Limiter Limiter
	Config  retry.Config
}

// NewRetrying wraps limiter with cfg's backoff policy.
func NewRetrying(limiter Limiter, cfg retry.Config) *Retrying {
	return &Retrying{Limiter: limiter, Config: cfg}
}

func (r *Retrying) Apply(ctx context.Context, clientID string) (Decision, error) {
	var decision Decision
	err := retry.Do(ctx, r.Config, func(attempt int) (bool, error) {
		d, err := r.Limiter.Apply(ctx, clientID)
		if err != nil {
			return false, err
		}
		decision = d
		return d.Collision, nil
	})
	return decision, err
}
