package cache_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webstudio/sitekit/core/cache"
)

func TestGetOrSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("computes once and caches", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCache[string](t)

		var calls atomic.Int32
		compute := func(context.Context) (string, error) {
			calls.Add(1)
			return "value", nil
		}

		v, err := c.GetOrSet(ctx, "k", 0, compute)
		require.NoError(t, err)
		assert.Equal(t, "value", v)

		v, err = c.GetOrSet(ctx, "k", 0, compute)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("recomputes after expiry", func(t *testing.T) {
		t.Parallel()
		c, clock := newTestCache[int](t)

		n := 0
		compute := func(context.Context) (int, error) {
			n++
			return n, nil
		}

		v, err := c.GetOrSet(ctx, "k", time.Second, compute)
		require.NoError(t, err)
		assert.Equal(t, 1, v)

		clock.Advance(2 * time.Second)
		v, err = c.GetOrSet(ctx, "k", time.Second, compute)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("propagates compute error and stores nothing", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCache[int](t)
		boom := errors.New("boom")

		_, err := c.GetOrSet(ctx, "k", 0, func(context.Context) (int, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, c.Has("k"))
	})

	t.Run("concurrent misses share one computation", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCache[int](t)

		var calls atomic.Int32
		release := make(chan struct{})
		compute := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 42, nil
		}

		const callers = 10
		var wg sync.WaitGroup
		results := make([]int, callers)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := c.GetOrSet(ctx, "k", 0, compute)
				assert.NoError(t, err)
				results[i] = v
			}()
		}

		// Every caller has missed once the counter reaches callers; the compute
		// is still blocked, so none of them can find a stored value.
		require.Eventually(t, func() bool {
			return c.Stats().Misses == callers
		}, time.Second, time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, v := range results {
			assert.Equal(t, 42, v)
		}
	})

	t.Run("cancelled caller does not fail waiting callers", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCache[int](t)

		started := make(chan struct{})
		release := make(chan struct{})
		var computeErr atomic.Value
		first := func(ctx context.Context) (int, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				computeErr.Store(err)
			}
			return 7, nil
		}

		cancelCtx, cancel := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := c.GetOrSet(cancelCtx, "k", 0, first)
			firstErr <- err
		}()
		<-started

		second := make(chan int, 1)
		go func() {
			v, err := c.GetOrSet(ctx, "k", 0, func(context.Context) (int, error) {
				return 0, errors.New("must not run while a computation is in flight")
			})
			assert.NoError(t, err)
			second <- v
		}()
		require.Eventually(t, func() bool {
			return c.Stats().Misses == 2
		}, time.Second, time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(release)
		assert.Equal(t, 7, <-second)
		assert.Nil(t, computeErr.Load(), "shared computation must not see caller cancellation")

		v, ok := c.Get("k")
		assert.True(t, ok)
		assert.Equal(t, 7, v)
	})

	t.Run("cancelled before compute finishes returns context error", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCache[int](t)

		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		done := make(chan struct{})
		_, err := c.GetOrSet(cancelCtx, "k", 0, func(context.Context) (int, error) {
			<-done
			return 1, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		close(done)

		require.Eventually(t, func() bool { return c.Has("k") }, time.Second, time.Millisecond)
	})

	t.Run("interface value type", func(t *testing.T) {
		t.Parallel()
		c, _ := newTestCache[any](t)

		v, err := c.GetOrSet(ctx, "nil", 0, func(context.Context) (any, error) {
			return nil, nil
		})
		require.NoError(t, err)
		assert.Nil(t, v)
		assert.True(t, c.Has("nil"))
	})
}

func TestMemoize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache[string](t)

	var calls atomic.Int32
	lookup := func(_ context.Context, id int) (string, error) {
		calls.Add(1)
		if id < 0 {
			return "", errors.New("invalid id")
		}
		return "invoice-" + strconv.Itoa(id), nil
	}

	cached := cache.Memoize(c, func(id int) string { return "invoice:" + strconv.Itoa(id) }, time.Minute, lookup)

	v, err := cached(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "invoice-7", v)

	v, err = cached(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "invoice-7", v)
	assert.Equal(t, int32(1), calls.Load())

	got, ok := c.Get("invoice:7")
	require.True(t, ok)
	assert.Equal(t, "invoice-7", got)

	_, err = cached(ctx, -1)
	assert.Error(t, err)
	assert.False(t, c.Has("invoice:-1"))
}

func TestWarmUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, clock := newTestCache[string](t)

	entries := []cache.WarmUpEntry[string]{
		{Key: "home", Compute: func(context.Context) (string, error) { return "<html>home</html>", nil }},
		{Key: "broken", Compute: func(context.Context) (string, error) { return "", errors.New("db down") }},
		{Key: "pricing", TTL: time.Second, Compute: func(context.Context) (string, error) {
			time.Sleep(10 * time.Millisecond)
			return "<html>pricing</html>", nil
		}},
		{Key: "panics", Compute: func(context.Context) (string, error) { panic("bad template") }},
	}

	stored := c.WarmUp(ctx, entries)
	assert.Equal(t, 2, stored)
	assert.ElementsMatch(t, []string{"home", "pricing"}, c.Keys())

	clock.Advance(2 * time.Second)
	assert.False(t, c.Has("pricing"), "per-entry TTL is honoured")
	assert.True(t, c.Has("home"))
}

func TestWarmUp_Empty(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache[int](t)
	assert.Zero(t, c.WarmUp(context.Background(), nil))
}
