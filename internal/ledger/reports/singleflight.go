package reports

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var reportGroup singleflight.Group

// coalesce deduplicates identical concurrent report builds. Results are not
// cached beyond the in-flight call; a new request recomputes. The build runs
// detached from the initiating request's context so one caller's
// cancellation does not fail the waiters sharing the flight; each waiter
// still honours its own ctx.
func coalesce[T any](ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	buildCtx := context.WithoutCancel(ctx)
	resultChan := reportGroup.DoChan(key, func() (interface{}, error) {
		return fn(buildCtx)
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
