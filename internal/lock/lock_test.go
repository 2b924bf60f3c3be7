package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SerializesSameKey(t *testing.T) {
	l := NewLocal()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "conv-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
	assert.Equal(t, 0, l.size(), "entries must be released")
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	u1, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer u1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u2, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	u2()
}

func TestLocal_ContextCancelWhileWaiting(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // idempotent
	assert.Equal(t, 0, l.size())

	// Lock is free again.
	u, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	u()
}

func TestNoop(t *testing.T) {
	u, err := Noop{}.Lock(context.Background(), "x")
	require.NoError(t, err)
	u()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Noop{}.Lock(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRedis_InvalidConfig(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisConfig{})
	assert.Error(t, err)

	_, err = NewRedis(context.Background(), RedisConfig{URL: "not-a-url"})
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = NewRedis(ctx, RedisConfig{URL: "redis://127.0.0.1:1/0"})
	assert.Error(t, err)
}

// TestRedis_Lock runs against a real server when TEST_REDIS_URL is set.
func TestRedis_Lock(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	r, err := NewRedis(context.Background(), RedisConfig{URL: url, Prefix: "test:lock:", Expiry: 5 * time.Second, RetryDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	defer r.Close()

	unlock, err := r.Lock(context.Background(), "conv-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = r.Lock(ctx, "conv-1")
	assert.Error(t, err, "second holder must wait")

	unlock()
	u2, err := r.Lock(context.Background(), "conv-1")
	require.NoError(t, err)
	u2()
}
