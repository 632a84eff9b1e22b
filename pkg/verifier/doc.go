// Package verifier is the token-verifier external collaborator: a
// Verify(token) -> Claims | error contract the orchestrator depends on
// to establish request identity before consulting the rate limiter.
package verifier
