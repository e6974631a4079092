package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webstudio/sitekit/core/cache"
)

func newDemoCmd() *cobra.Command {
	var (
		ttl      time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through LRU eviction, TTL expiry and invalidation on a small cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, cmd.OutOrStdout(), ttl, interval)
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 200*time.Millisecond, "lifetime of the short-lived entry")
	cmd.Flags().DurationVar(&interval, "cleanup-interval", 100*time.Millisecond, "background sweep interval")
	return cmd
}

func runDemo(ctx context.Context, w io.Writer, ttl, interval time.Duration) error {
	// The evict callback also runs on the sweep goroutine.
	out := &lockedWriter{w: w}

	c := cache.NewMemory[string](
		cache.WithMaxSize(2),
		cache.WithCleanupInterval(interval),
	)
	defer c.Close()

	c.SetEvictCallback(func(key string, _ string, reason cache.EvictReason) {
		fmt.Fprintf(out, "evicted %q (%s)\n", key, reason)
	})

	fmt.Fprintf(out, "config: maxSize=%d cleanupEvery=%s\n", 2, interval)

	c.Set("a", "A")
	c.Set("b", "B")
	if v, ok := c.Get("a"); ok {
		fmt.Fprintf(out, "GET a = %q (a is now most recent)\n", v)
	}

	c.Set("c", "C")
	if _, ok := c.Get("b"); !ok {
		fmt.Fprintln(out, "GET b: missing (least recently used)")
	}
	fmt.Fprintf(out, "keys (MRU->LRU): %v\n", c.Keys())

	c.SetWithTTL("ttl", "short", ttl)
	fmt.Fprintf(out, "keys after ttl set: %v\n", c.Keys())

	wait := time.NewTimer(ttl + 5*interval)
	defer wait.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wait.C:
	}

	fmt.Fprintf(out, "keys after expiry: %v\n", c.Keys())

	c.SetWithTags("page:/pricing", "<html>", []string{"site:42"}, 0)
	n := cache.InvalidateByTags(c, "site:42")
	fmt.Fprintf(out, "invalidated %d entries tagged site:42\n", n)

	m := c.HealthMetrics()
	fmt.Fprintf(out, "hits=%d misses=%d evictions=%d hitRatio=%.2f health=%s\n",
		m.Hits, m.Misses, m.Evictions, m.HitRatio, m.Health)
	return nil
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
