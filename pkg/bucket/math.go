package bucket

import "math"

// Evaluation is the result of applying the shared refill/consume
// arithmetic (spec §4.1) to a sanitized Bucket at a point in time.
type Evaluation struct {
	// CappedTokens is the token count after refill, capped at MaxTokens,
	// before any consumption.
	CappedTokens float64
	// TokensFloored is floor(CappedTokens); used as the pre-consumption
	// remaining count on every deny path.
	TokensFloored int64
	// Allowed reports whether TokensFloored >= 1.
	Allowed bool
	// NewTokens is the token count to persist: CappedTokens-1 when
	// allowed, CappedTokens unchanged when denied.
	NewTokens float64
	// Remaining is floor(NewTokens): the post-consumption count on
	// allow, the pre-consumption count on deny.
	Remaining int64
	// ResetSeconds is the time until the bucket reaches MaxTokens again
	// measured from Remaining, 0 if already full.
	ResetSeconds int64
}

// Evaluate computes the refill, the allow/deny outcome, and the resulting
// token count for a single unit of consumption against b as observed at
// nowMillis. It does not mutate b; callers decide what (if anything) to
// persist based on the returned Evaluation.
func Evaluate(b Bucket, nowMillis int64) Evaluation {
	timeDelta := nowMillis - b.LastRefill
	if timeDelta < 0 {
		timeDelta = 0
	}

	refillAmount := float64(b.RefillRate) * float64(timeDelta) / (float64(b.RefillInterval) * 1000)
	potentialTokens := b.Tokens + refillAmount
	cappedTokens := math.Min(potentialTokens, float64(b.MaxTokens))
	tokensFloored := int64(math.Floor(cappedTokens))
	allowed := tokensFloored >= 1

	var newTokens float64
	var remaining int64
	if allowed {
		newTokens = cappedTokens - 1
		remaining = int64(math.Floor(newTokens))
	} else {
		newTokens = cappedTokens
		remaining = tokensFloored
	}

	reset := ComputeReset(remaining, b.MaxTokens, b.RefillRate, b.RefillInterval)

	return Evaluation{
		CappedTokens:  cappedTokens,
		TokensFloored: tokensFloored,
		Allowed:       allowed,
		NewTokens:     newTokens,
		Remaining:     remaining,
		ResetSeconds:  reset,
	}
}

// ComputeReset returns the number of seconds until a bucket sitting at
// remaining tokens reaches maxTokens at the given refill rate/interval,
// or 0 if it is already full. Exposed separately from Evaluate because
// the fully-atomic limiter's collision path needs it against a remaining
// value other than the one Evaluate itself produced.
func ComputeReset(remaining int64, maxTokens, refillRate, refillInterval int) int64 {
	if remaining >= int64(maxTokens) {
		return 0
	}
	needed := float64(int64(maxTokens) - remaining)
	return int64(math.Ceil(needed * float64(refillInterval) / float64(refillRate)))
}
