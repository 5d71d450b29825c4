package lock

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerialisesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, "LN-1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locker.held())
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	releaseA, err := locker.Lock(ctx, "LN-A")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	releaseB, err := locker.Lock(ctx, "LN-B")
	require.NoError(t, err)
	releaseB()
}

func TestLocalLocker_ContextDeadline(t *testing.T) {
	locker := NewLocalLocker()

	release, err := locker.Lock(context.Background(), "LN-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "LN-1")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op
	assert.Equal(t, 0, locker.held())

	again, err := locker.Lock(context.Background(), "LN-1")
	require.NoError(t, err)
	again()
}

func redisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	client := redisClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locker := NewRedisLocker(client, "test:lock:", 5*time.Second, logger)
	ctx := context.Background()

	release, err := locker.Lock(ctx, "LN-R1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "LN-R1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()

	again, err := locker.Lock(ctx, "LN-R1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ExpiredHolderCannotReleaseNewHolder(t *testing.T) {
	client := redisClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locker := NewRedisLocker(client, "test:lock:", 50*time.Millisecond, logger)
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "LN-R2")
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)

	current, err := locker.Lock(ctx, "LN-R2")
	require.NoError(t, err)
	defer current()

	stale()

	exists, err := client.Exists(ctx, "test:lock:LN-R2").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestRedisLocker_ReleaseIsIdempotent(t *testing.T) {
	client := redisClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locker := NewRedisLocker(client, "test:lock:", 5*time.Second, logger)
	ctx := context.Background()

	release, err := locker.Lock(ctx, "LN-R3")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release()
		}()
	}
	wg.Wait()

	next, err := locker.Lock(ctx, "LN-R3")
	require.NoError(t, err)
	defer next()

	// A late duplicate release must not free the new holder's lock.
	release()

	exists, err := client.Exists(ctx, "test:lock:LN-R3").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}
