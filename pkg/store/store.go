// Package store defines the contract every remote counter-store backend
// implements: a conditional key-value store keyed by client id, exposing
// Get and a compare-and-swap style Update. Two bindings ship in sibling
// packages, mongostore (a document store) and redisstore (an optimistic
// WATCH/MULTI transaction), plus an in-memory fake used by the
// ratelimiter package's own unit tests.
package store

import (
	"context"
	"errors"

	"github.com/dmitrymomot/edgegate/pkg/bucket"
)

// ErrUnavailable wraps transport-level failures (timeouts, connection
// errors) from a Store backend. It is distinct from a condition-failed
// Update, which is a business outcome (ok=false, err=nil), not an error.
var ErrUnavailable = errors.New("counter store unavailable")

// Item is the persisted representation of a client's bucket. It reuses
// bucket.Item's shape since the store neither knows nor cares about
// sanitization; that happens above this layer.
type Item = bucket.Item

// Fields is the payload of a conditional Update: all five bucket fields,
// written together as one assignment set.
type Fields = bucket.Item

// Condition guards a conditional Update. The write succeeds if the
// stored item is absent OR its lastRefill equals ExpectedLastRefill,
// mirroring the counter-store schema's conditional update expression
// ("lastRefill is absent OR lastRefill = :expected"). Unconditional, when
// true, skips the check entirely (last-write-wins), which the optimistic
// fire-and-forget limiter relies on.
type Condition struct {
	ExpectedLastRefill int64
	Unconditional      bool
}

// Store is the minimal remote counter-store contract the three limiter
// variants depend on.
type Store interface {
	// Get returns the stored item for key. found is false when no item
	// exists yet for this client, not an error.
	Get(ctx context.Context, key string) (item Item, found bool, err error)

	// Update performs a conditional write. ok is false (with err nil)
	// when the condition did not hold; transport failures are returned
	// as a non-nil err instead, wrapped in ErrUnavailable.
	Update(ctx context.Context, key string, fields Fields, cond Condition) (ok bool, err error)
}
