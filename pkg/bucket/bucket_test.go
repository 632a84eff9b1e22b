package bucket_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/edgegate/pkg/bucket"
)

func TestSanitize_AbsentItemYieldsFullBucket(t *testing.T) {
	t.Parallel()

	b := bucket.Sanitize(bucket.Item{}, false, 1000)

	assert.Equal(t, float64(bucket.DefaultMaxTokens), b.Tokens)
	assert.Equal(t, int64(1000), b.LastRefill)
	assert.Equal(t, bucket.DefaultRefillRate, b.RefillRate)
	assert.Equal(t, bucket.DefaultRefillInterval, b.RefillInterval)
	assert.Equal(t, bucket.DefaultMaxTokens, b.MaxTokens)
}

func TestSanitize_ZeroRefillRateClampsToOne(t *testing.T) {
	t.Parallel()

	b := bucket.Sanitize(bucket.Item{
		Tokens:         10,
		LastRefill:     500,
		RefillRate:     0,
		RefillInterval: 60,
		MaxTokens:      500,
	}, true, 1000)

	assert.Equal(t, 1, b.RefillRate)
}

func TestSanitize_NegativeTokensClampToZero(t *testing.T) {
	t.Parallel()

	b := bucket.Sanitize(bucket.Item{
		Tokens:         -50,
		LastRefill:     500,
		RefillRate:     300,
		RefillInterval: 60,
		MaxTokens:      500,
	}, true, 1000)

	assert.Equal(t, float64(0), b.Tokens)
}

func TestSanitize_HardCapsAppliedOverPresentValues(t *testing.T) {
	t.Parallel()

	b := bucket.Sanitize(bucket.Item{
		Tokens:         100000,
		LastRefill:     500,
		RefillRate:     9999999,
		RefillInterval: 60,
		MaxTokens:      9999999,
	}, true, 1000)

	assert.Equal(t, bucket.HardMaxRefillRate, b.RefillRate)
	assert.Equal(t, bucket.HardMaxTokens, b.MaxTokens)
	assert.Equal(t, float64(bucket.HardMaxTokens), b.Tokens)
}

func TestSanitize_NonNumericTokensReplacedWithFullBucket(t *testing.T) {
	t.Parallel()

	b := bucket.Sanitize(bucket.Item{
		Tokens:         math.NaN(),
		LastRefill:     500,
		RefillRate:     300,
		RefillInterval: 60,
		MaxTokens:      500,
	}, true, 1000)

	assert.Equal(t, float64(500), b.Tokens)
}

func TestSanitize_Idempotent(t *testing.T) {
	t.Parallel()

	raw := bucket.Item{Tokens: -5, RefillRate: 0, RefillInterval: 0, MaxTokens: 99999999}
	once := bucket.Sanitize(raw, true, 1000)
	twice := bucket.Sanitize(bucket.Item(once), true, 1000)

	assert.Equal(t, once, twice)
}
