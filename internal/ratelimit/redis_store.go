package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRedisUnavailable = errors.New("redis unavailable")

const defaultRedisPrefix = "nexus:rl:"

// RedisStore shares counters between instances. Window expiry is delegated to
// Redis key TTLs, so Sweep has nothing to do.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: client, prefix: defaultRedisPrefix}
}

// NewRedisStoreFromURL parses a redis:// URL and returns a store over a new client.
func NewRedisStoreFromURL(url string) (*RedisStore, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	return NewRedisStore(client), client, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	k := s.prefix + key

	count, err := s.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: only the first hit sets the expiry.
	if count == 1 {
		if err := s.redis.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return 1, now.Add(window), nil
	}

	ttl, err := s.redis.PTTL(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// A key without expiry means the PEXPIRE after its first hit was lost.
	if ttl < 0 {
		if err := s.redis.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		ttl = window
	}

	return int(count), now.Add(ttl), nil
}

func (s *RedisStore) Decrement(ctx context.Context, key string, _ time.Time) error {
	k := s.prefix + key

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		count, err := tx.Get(ctx, k).Int64()
		if err != nil {
			return err
		}
		if count <= 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Decr(ctx, k)
			return nil
		})
		return err
	}, k)

	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
