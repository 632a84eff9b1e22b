package ratelimiter

import "errors"

var (
	// ErrStoreUnavailable is returned by the fully-atomic limiter when
	// the remote store fails on Get or Update. The hybrid and optimistic
	// variants never return it: they fail closed (a deny Decision)
	// instead, since a caller awaiting them on the hot path should not
	// see an unbounded-latency error surface.
	ErrStoreUnavailable = errors.New("ratelimiter: counter store unavailable")

	// ErrUnknownLimiter is returned by the selector when asked to
	// resolve a key that has no registered limiter.
	ErrUnknownLimiter = errors.New("ratelimiter: unknown limiter key")
)
