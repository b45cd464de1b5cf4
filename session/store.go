package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent, expired or held an
	// undecodable value.
	ErrNotFound = errors.New("session: record not found")
	// ErrStoreUnavailable wraps transport failures from the backing store.
	ErrStoreUnavailable = errors.New("session: store unavailable")
)

// Store is a TTL-capable key-value map holding token records.
//
// Implementations must be safe for concurrent use. Single-key operations must be
// atomic; no multi-key transaction is required.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key for ttl. A ttl <= 0 removes the key instead,
	// so the value is never retrievable.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Take atomically reads and deletes key. Of two concurrent callers at most
	// one observes the value.
	Take(ctx context.Context, key string) (string, error)
	// Del removes keys. Missing keys and an empty list are not errors.
	Del(ctx context.Context, keys ...string) error
	// Keys lists live keys matching a glob pattern ('*' and '?').
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Ping reports backend availability and round-trip latency.
	Ping(ctx context.Context) (time.Duration, error)
}
