// Package ratelimiter implements token bucket rate limiting with a pluggable store.
//
// A bucket holds up to Capacity tokens and gains RefillRate tokens every
// RefillInterval. A request takes one or more tokens and is rejected, without
// consuming anything, when the bucket holds fewer than it asks for.
//
//	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(time.Minute))
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       20,
//		RefillRate:     5,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	g.Go(store.Run(ctx)) // removes idle buckets
//
//	res, err := limiter.Allow(ctx, clientIP)
//	if err != nil {
//		return err
//	}
//	if !res.Allowed() {
//		// respond 429, retry after res.RetryAfter()
//	}
//
// MemoryStore is local to one process. Its Stats and Healthcheck methods
// report bucket counts and whether cleanup is running.
package ratelimiter
