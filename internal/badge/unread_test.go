package badge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, load LoadFunc) (*UnreadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewUnreadCache(client, 30*time.Second, load), mr
}

func TestUnreadCache_HitAvoidsLoad(t *testing.T) {
	var count atomic.Int64
	count.Store(3)
	c, _ := newCache(t, func(ctx context.Context, userID string) (int64, error) {
		return count.Load(), nil
	})
	ctx := context.Background()

	n, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count.Store(7)
	n, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "served from cache")
	assert.Equal(t, int64(1), c.Loads())

	c.Invalidate(ctx, "u1", "u2")
	n, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, int64(2), c.Loads())
}

func TestUnreadCache_Expires(t *testing.T) {
	c, mr := newCache(t, func(ctx context.Context, userID string) (int64, error) { return 1, nil })
	ctx := context.Background()

	_, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)
	_, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Loads())
}

func TestUnreadCache_LoadErrorNotCached(t *testing.T) {
	fail := true
	c, mr := newCache(t, func(ctx context.Context, userID string) (int64, error) {
		if fail {
			return 0, errors.New("db down")
		}
		return 4, nil
	})
	ctx := context.Background()

	_, err := c.Get(ctx, "u1")
	assert.Error(t, err)
	assert.False(t, mr.Exists(key("u1")))

	fail = false
	n, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestUnreadCache_NilClientAlwaysLoads(t *testing.T) {
	c := NewUnreadCache(nil, 0, func(ctx context.Context, userID string) (int64, error) { return 2, nil })
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.Get(context.Background(), "u1")
			assert.NoError(t, err)
			assert.Equal(t, int64(2), n)
		}()
	}
	wg.Wait()
	c.Invalidate(context.Background(), "u1")
}

func TestUnreadCache_InvalidateDuringLoadDropsCount(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var count atomic.Int64
	count.Store(1)
	c, mr := newCache(t, func(ctx context.Context, userID string) (int64, error) {
		n := count.Load()
		if n == 1 {
			close(started)
			<-release
		}
		return n, nil
	})
	ctx := context.Background()

	done := make(chan int64)
	go func() {
		n, err := c.Get(ctx, "u1")
		assert.NoError(t, err)
		done <- n
	}()
	<-started
	count.Store(2)
	c.Invalidate(ctx, "u1")
	close(release)

	assert.Equal(t, int64(1), <-done)
	assert.False(t, mr.Exists(key("u1")), "count read before the change is not cached")

	n, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(2), c.Loads())
}
