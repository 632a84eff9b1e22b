// Package healthcheck aggregates the per-dependency checks produced by
// pkg/mongo.Healthcheck and pkg/redis.Healthcheck (each a
// func(context.Context) error) into the single readiness probe
// httpserver.HealthCheckHandler expects.
package healthcheck

import (
	"context"
	"errors"
)

// Check is the shape every dependency healthcheck constructor returns.
type Check func(context.Context) error

// All runs every check and joins any failures into a single error. A nil or
// empty checks slice always succeeds, matching the liveness-probe behavior
// of httpserver.HealthCheckHandler when called with no dependency funcs.
func All(checks ...Check) Check {
	return func(ctx context.Context) error {
		var errs []error
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
