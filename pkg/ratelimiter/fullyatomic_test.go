package ratelimiter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/edgegate/pkg/clock"
	"github.com/dmitrymomot/edgegate/pkg/ratelimiter"
	"github.com/dmitrymomot/edgegate/pkg/store"
)

func TestFullyAtomic_NewClientFullBurst(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	c := clock.NewManual(0)
	limiter := ratelimiter.NewFullyAtomic(s, c)

	decision, err := limiter.Apply(context.Background(), "client-1")
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(499), decision.RateLimitRemaining)
	assert.Equal(t, int64(500), decision.RateLimitLimit)
	assert.Equal(t, int64(1), decision.RateLimitReset)
	assert.False(t, decision.Collision)

	item, ok := s.snapshot("client-1")
	require.True(t, ok)
	assert.Equal(t, float64(499), item.Tokens)
	assert.Equal(t, int64(0), item.LastRefill)
}

func TestFullyAtomic_DepletedDenies(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	s.seed("client-1", store.Item{Tokens: 0, LastRefill: 0, RefillRate: 300, RefillInterval: 60, MaxTokens: 500})
	c := clock.NewManual(0)
	limiter := ratelimiter.NewFullyAtomic(s, c)

	decision, err := limiter.Apply(context.Background(), "client-1")
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(0), decision.RateLimitRemaining)
	assert.Equal(t, int64(100), decision.RateLimitReset)
}

func TestFullyAtomic_GetErrorPropagates(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	s.getErr = assert.AnError
	limiter := ratelimiter.NewFullyAtomic(s, clock.NewManual(0))

	_, err := limiter.Apply(context.Background(), "client-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ratelimiter.ErrStoreUnavailable)
}

func TestFullyAtomic_CollisionReportsPreConsumptionRemaining(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	s.seed("client-1", store.Item{Tokens: 5, LastRefill: 0, RefillRate: 300, RefillInterval: 60, MaxTokens: 500})
	s.forceConditionFailOnce = true
	limiter := ratelimiter.NewFullyAtomic(s, clock.NewManual(0))

	decision, err := limiter.Apply(context.Background(), "client-1")
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.True(t, decision.Collision)
	assert.Equal(t, int64(5), decision.RateLimitRemaining)
}

func TestFullyAtomic_UpdateTransportErrorPropagates(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	s.updateErr = assert.AnError
	limiter := ratelimiter.NewFullyAtomic(s, clock.NewManual(0))

	_, err := limiter.Apply(context.Background(), "client-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ratelimiter.ErrStoreUnavailable)
}
