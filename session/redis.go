package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 1000

// RedisStore is a [Store] backed by any go-redis client (single node, sentinel or
// cluster).
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore creates a [RedisStore] on top of client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: client}
}

// Get returns the decoded value for key. Undecodable values are deleted and
// reported as ErrNotFound.
//
//	Performance: 1 Redis GET (plus 1 DEL on a corrupt value).
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.decodeOrDrop(ctx, key, raw)
}

// Set stores value under key with the given TTL. A ttl <= 0 deletes key.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Del(ctx, key)
	}
	encoded, err := Encode(value)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Take reads and deletes key in one GETDEL round trip.
//
//	Performance: 1 Redis GETDEL.
func (s *RedisStore) Take(ctx context.Context, key string) (string, error) {
	raw, err := s.redis.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	value, err := Decode(raw)
	if err != nil {
		return "", ErrNotFound
	}
	return value, nil
}

// Del removes keys. Each key is deleted with its own command inside one pipeline
// so the call also works on cluster clients where keys hash to different slots.
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) == 1 {
		if err := s.redis.Del(ctx, keys[0]).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	}
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN MATCH. SCAN may yield a key more than once;
// the result is de-duplicated.
//
// This is O(keyspace) on the server and belongs on sign-out, not on request hot
// paths.
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		seen   = make(map[string]struct{})
		out    []string
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return out, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *RedisStore) decodeOrDrop(ctx context.Context, key, raw string) (string, error) {
	value, err := Decode(raw)
	if err == nil {
		return value, nil
	}
	if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, delErr)
	}
	return "", ErrNotFound
}
