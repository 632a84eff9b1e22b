// Package orchestrator is documented alongside orchestrator.go; this
// file exists only to carry the package-level example below.
//
// Example wiring:
//
//	sel := ratelimiter.NewSelector(ratelimiter.KeyHybridV2, true)
//	sel.Register(ratelimiter.KeyHybridV2, ratelimiter.NewHybridV2(store, clock.System{}, logger))
//	o := orchestrator.New(sel, hmacVerifier, authorizer, logger)
//	out := o.Handle(ctx, orchestrator.NewEnvelope(req))
package orchestrator
