// Package ratelimiter ships three token-bucket limiter implementations
// over a shared pkg/bucket + pkg/store foundation:
//
//   - FullyAtomic: one awaited Get per call, plus one awaited conditional
//     Update when the call is allowed. Strict correctness, full
//     round-trip latency.
//   - OptimisticV1: a process-local cache with unconditional,
//     fire-and-forget background writes. Minimum latency, best-effort
//     correctness.
//   - HybridV2: a process-local cache with conditional background
//     writes and a bounded collision-retry. Low latency with bounded
//     over-issuance.
//
// Selector resolves which variant serves a given request from static
// configuration and an optional per-request override.
package ratelimiter
