package cache

import (
	"context"
	"time"

	"github.com/webstudio/sitekit/core/logger"
	"github.com/webstudio/sitekit/pkg/async"
)

// ComputeFunc produces a value for a missing cache entry.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// GetOrSet returns the live value for key or, on a miss, calls compute, stores
// the result with ttl (non-positive means the default TTL) and returns it.
//
// Concurrent callers missing the same key share one compute call. The shared
// call keeps the first caller's context values but not its cancellation, so a
// caller that gives up returns ctx.Err() without failing the others, and the
// result is still stored. Errors from compute are returned unchanged and
// nothing is stored.
func (c *Memory[V]) GetOrSet(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc[V]) (V, error) {
	var zero V
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.SetWithTTL(key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Memoize wraps fn so results are cached under keyFn(arg) for ttl.
// The returned function has the same signature as fn.
func Memoize[A, V any](c *Memory[V], keyFn func(A) string, ttl time.Duration, fn func(context.Context, A) (V, error)) func(context.Context, A) (V, error) {
	return func(ctx context.Context, arg A) (V, error) {
		return c.GetOrSet(ctx, keyFn(arg), ttl, func(ctx context.Context) (V, error) {
			return fn(ctx, arg)
		})
	}
}

// WarmUpEntry describes one value to precompute.
type WarmUpEntry[V any] struct {
	Key     string
	Compute ComputeFunc[V]
	TTL     time.Duration
}

// WarmUp runs every compute concurrently and stores each successful result.
// A failing entry is logged and skipped; it never aborts the batch.
// Returns the number of entries stored.
func (c *Memory[V]) WarmUp(ctx context.Context, entries []WarmUpEntry[V]) int {
	start := time.Now()

	futures := make([]*async.Future[V], len(entries))
	for i, e := range entries {
		futures[i] = async.Async(ctx, e, func(ctx context.Context, e WarmUpEntry[V]) (V, error) {
			return e.Compute(ctx)
		})
	}

	stored := 0
	for i, f := range futures {
		v, err := f.Await()
		if err != nil {
			c.logger.WarnContext(ctx, "cache warm-up entry failed",
				logger.Component("cache"),
				logger.CacheKey(entries[i].Key),
				logger.Error(err))
			continue
		}
		c.SetWithTTL(entries[i].Key, v, entries[i].TTL)
		stored++
	}

	c.logger.DebugContext(ctx, "cache warm-up finished",
		logger.Component("cache"),
		logger.Count("requested", len(entries)),
		logger.Count("stored", stored),
		logger.Elapsed(start))

	return stored
}
