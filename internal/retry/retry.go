// Package retry provides a small exponential-backoff-with-jitter helper
// used by the fully-atomic limiter's external wrapper, the one place the
// spec calls for hot-path retries. It is app-internal: nothing about it
// is reusable outside this module's own request flow.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Config bounds a retry run.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig is a small, bounded retry policy: three attempts, tens to
// hundreds of milliseconds of backoff, well within the "few hundred
// milliseconds" per-call timeout budget this sits inside.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    200 * time.Millisecond,
	}
}

// Do invokes fn until it reports retry=false or attempts are exhausted.
// fn receives the zero-based attempt index. Between attempts it sleeps a
// full-jitter exponential backoff, honoring ctx cancellation.
func Do(ctx context.Context, cfg Config, fn func(attempt int) (retry bool, err error)) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		shouldRetry, err := fn(attempt)
		lastErr = err
		if !shouldRetry {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}
	return lastErr
}

func backoff(cfg Config, attempt int) time.Duration {
	d := cfg.BaseDelay << attempt
	if d <= 0 || d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return time.Duration(rand.Int64N(int64(d) + 1))
}
