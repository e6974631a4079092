// Package cache provides a thread-safe, generic in-process cache with per-entry TTL,
// LRU eviction under a size bound, hit/miss statistics and a background sweep
// that removes expired entries.
//
// # Features
//
//   - Generic value type for compile-time type safety
//   - Per-entry TTL with lazy expiry on read and a periodic sweep
//   - LRU (Least Recently Used) eviction when MaxSize is reached
//   - Hit, miss, set, delete and eviction counters
//   - Prefix, pattern and tag based bulk invalidation
//   - Single-flight GetOrSet, function memoization and concurrent warm-up
//   - Optional eviction callbacks for resource cleanup
//
// # Usage
//
//	import "github.com/webstudio/sitekit/core/cache"
//
//	c := cache.NewMemory[*Invoice](
//		cache.WithMaxSize(1000),
//		cache.WithDefaultTTL(5*time.Minute),
//		cache.WithCleanupInterval(time.Minute),
//	)
//	defer c.Close()
//
//	c.Set("invoice:42", invoice)                      // default TTL
//	c.SetWithTTL("visitors:live", v, 10*time.Second) // explicit TTL
//
//	if inv, ok := c.Get("invoice:42"); ok {
//		fmt.Println(inv.Number)
//	}
//
// # Configuration From Environment
//
// Config carries env tags and can be loaded with the config package:
//
//	var cfg cache.Config
//	config.MustLoad(&cfg)
//	c := cache.NewMemoryFromConfig[[]byte](cfg, cache.WithLogger(log))
//
// # Get Or Compute
//
// GetOrSet returns the cached value or computes, stores and returns it.
// Concurrent callers missing the same key share a single computation:
//
//	report, err := c.GetOrSet(ctx, "seo:example.com", time.Hour, func(ctx context.Context) (*Report, error) {
//		return seo.Analyze(ctx, "example.com")
//	})
//
// Memoize wraps a function with the same behaviour:
//
//	loadInvoice := cache.Memoize(c, func(id string) string { return "invoice:" + id }, 0, repo.FindInvoice)
//	inv, err := loadInvoice(ctx, "42")
//
// # Invalidation
//
//	cache.InvalidateByPrefix(c, "user:42:")
//	cache.InvalidateByPattern(c, `^invoice:\d+$`)
//
//	c.SetWithTags("invoice:42", inv, []string{"user:42", "billing"}, 0)
//	cache.InvalidateByTags(c, "billing")
//
// Tags are stored as entry metadata, so tagged entries are read back with their
// plain key. Keys built with TaggedKey (key:tag:a:tag:b) are matched as well.
//
// # Statistics
//
//	m := c.HealthMetrics()
//	fmt.Printf("hit ratio %.2f (%s), %d entries\n", m.HitRatio, m.Health, m.Size)
//
// # Thread Safety
//
// All methods are safe for concurrent use. A single mutex guards both the table
// and the counters, so statistics are always consistent with the table state.
package cache
