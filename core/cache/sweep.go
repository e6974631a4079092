package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/webstudio/sitekit/core/logger"
)

// sweepLoop periodically removes expired entries until ctx is cancelled.
// A full scan per tick avoids per-entry timers; lazy expiry on read covers the gaps between ticks.
func (c *Memory[V]) sweepLoop(ctx context.Context) {
	defer c.wg.Done()
	defer c.running.Store(false)

	c.logger.DebugContext(ctx, "cache sweep started",
		logger.Component("cache"),
		slog.Duration("cleanup_interval", c.cleanupInterval))

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.DebugContext(context.Background(), "cache sweep stopping", logger.Component("cache"))
			return
		case <-ticker.C:
			start := time.Now()
			if removed := c.DeleteExpired(); removed > 0 {
				c.logger.DebugContext(ctx, "cache sweep removed expired entries",
					logger.Component("cache"),
					logger.Count("removed", removed),
					logger.Elapsed(start))
			}
		}
	}
}

// DeleteExpired removes every expired entry and returns how many were removed.
// The sweep calls it on every tick; it is exported for callers that disable the sweep.
func (c *Memory[V]) DeleteExpired() int {
	c.mu.Lock()
	now := c.now()

	var out []evicted[V]
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry[V]).expired(now) {
			out = append(out, c.expireLocked(el))
		}
		el = next
	}
	onEvict := c.onEvict
	c.mu.Unlock()

	notify(onEvict, out)
	return len(out)
}
