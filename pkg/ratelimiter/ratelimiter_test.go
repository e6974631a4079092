package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webstudio/sitekit/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *ratelimiter.MemoryStore, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithMemoryStoreClock(clk.Now),
		ratelimiter.WithStaleThreshold(time.Minute),
	)
	b, err := ratelimiter.NewBucket(store, cfg, ratelimiter.WithClock(clk.Now))
	require.NoError(t, err)
	return b, store, clk
}

var testConfig = ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Second}

func TestNewBucket_Validation(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()
	for _, cfg := range []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1, RefillInterval: 0},
	} {
		_, err := ratelimiter.NewBucket(store, cfg)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	}

	_, err := ratelimiter.NewBucket(nil, testConfig)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

func TestBucket_Allow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b, _, clk := newLimiter(t, testConfig)

	for i := 2; i >= 0; i-- {
		res, err := b.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, i, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := b.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)

	other, err := b.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed(), "keys have independent buckets")

	clk.Advance(time.Second)
	res, err = b.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)
}

func TestBucket_AllowN(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b, _, _ := newLimiter(t, testConfig)

	_, err := b.AllowN(ctx, "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	_, err = b.AllowN(ctx, "k", 4)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)

	res, err := b.AllowN(ctx, "k", 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	res, err = b.AllowN(ctx, "k", 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, 1, res.Remaining, "rejected request consumes nothing")
	assert.Positive(t, res.RetryAfter())
}

func TestBucket_Reset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b, _, _ := newLimiter(t, testConfig)

	_, _ = b.AllowN(ctx, "k", 3)
	require.NoError(t, b.Reset(ctx, "k"))

	res, err := b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}

func TestBucket_CancelledContext(t *testing.T) {
	t.Parallel()
	b, _, _ := newLimiter(t, testConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Allow(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_RemoveStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b, store, clk := newLimiter(t, testConfig)

	_, _ = b.Allow(ctx, "a")
	clk.Advance(30 * time.Second)
	_, _ = b.Allow(ctx, "b")
	clk.Advance(45 * time.Second)

	assert.Equal(t, 1, store.RemoveStale())

	stats := store.Stats()
	assert.Equal(t, int64(2), stats.BucketsCreated)
	assert.Equal(t, int64(1), stats.BucketsRemoved)
	assert.Equal(t, 1, stats.ActiveBuckets)
}

func TestMemoryStore_Run(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(10 * time.Millisecond))
	assert.ErrorIs(t, store.Healthcheck(context.Background()), ratelimiter.ErrNotStarted)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Run(ctx)() }()

	require.Eventually(t, func() bool {
		return store.Healthcheck(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, store.Run(ctx)(), ratelimiter.ErrAlreadyStarted)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop")
	}
	assert.False(t, store.Stats().IsRunning)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b, _, _ := newLimiter(t, ratelimiter.Config{Capacity: 50, RefillRate: 1, RefillInterval: time.Hour})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Allow(ctx, "shared")
			if err == nil && res.Allowed() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}
