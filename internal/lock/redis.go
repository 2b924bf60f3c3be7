package lock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisConfig configures Redis.
type RedisConfig struct {
	URL string
	// Prefix namespaces lock keys.
	Prefix string
	// Expiry bounds how long a crashed holder can keep a lock.
	Expiry time.Duration
	// RetryDelay is the pause between acquisition attempts.
	RetryDelay time.Duration
}

// Redis is a distributed Locker backed by redsync.
type Redis struct {
	client *redis.Client
	rs     *redsync.Redsync
	cfg    RedisConfig
}

// NewRedis connects to the Redis server at cfg.URL and verifies it with a
// PING.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "portal:lock:"
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 2 * time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 50 * time.Millisecond
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		cfg:    cfg,
	}, nil
}

// Lock implements Locker. It retries until the lock is acquired or ctx is
// done.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	m := r.rs.NewMutex(r.cfg.Prefix+key,
		redsync.WithExpiry(r.cfg.Expiry),
		redsync.WithTries(1),
	)
	for {
		err := m.LockContext(ctx)
		if err == nil {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.cfg.RetryDelay):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.unlock(m) })
	}, nil
}

func (r *Redis) unlock(m *redsync.Mutex) {
	// Release with a fresh context: the request may already be canceled.
	uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.UnlockContext(uctx); err != nil {
		log.Error().Err(err).Str("lock", m.Name()).Msg("failed to release lock")
	}
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error { return r.client.Close() }

var _ Locker = (*Redis)(nil)
