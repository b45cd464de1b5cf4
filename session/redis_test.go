package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb), mr
}

func TestRedisStoreSetGetRoundTrip(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, "USER:u1:ACCESS_TOKEN:ff", "jwt.value.sig", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "USER:u1:ACCESS_TOKEN:ff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "jwt.value.sig" {
		t.Fatalf("unexpected value %q", got)
	}

	raw, _ := mr.Get("USER:u1:ACCESS_TOKEN:ff")
	if raw != `"jwt.value.sig"` {
		t.Fatalf("expected JSON encoded value on the wire, got %q", raw)
	}
	if ttl := mr.TTL("USER:u1:ACCESS_TOKEN:ff"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestRedisStoreNonPositiveTTLIsNeverRetrievable(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	for _, ttl := range []time.Duration{0, -time.Second} {
		if err := store.Set(ctx, "k", "v", time.Hour); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := store.Set(ctx, "k", "v2", ttl); err != nil {
			t.Fatalf("set ttl=%v: %v", ttl, err)
		}
		if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("ttl=%v: expected ErrNotFound, got %v", ttl, err)
		}
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v", 2*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(3 * time.Second)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestRedisStoreTakeIsSingleUse(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, "refresh", "token", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		hits int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(ctx, "refresh"); err == nil {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if hits != 1 {
		t.Fatalf("expected exactly one successful take, got %d", hits)
	}
	if _, err := store.Get(ctx, "refresh"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key gone after take, got %v", err)
	}
}

func TestRedisStoreCorruptValueIsDroppedOnRead(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if err := mr.Set("k", "not-json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists("k") {
		t.Fatal("expected corrupt value to be deleted")
	}
}

func TestRedisStoreKeysAndDel(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	seed := []string{
		"USER:u1:ACCESS_TOKEN:a",
		"USER:u1:REFRESH_TOKEN:b",
		"USER:u2:ACCESS_TOKEN:c",
		"SUPER_ADMIN:u1:ACCESS_TOKEN:d",
	}
	for _, k := range seed {
		if err := store.Set(ctx, k, "v", time.Minute); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	keys, err := store.Keys(ctx, "USER:u1*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "USER:u1:ACCESS_TOKEN:a" || keys[1] != "USER:u1:REFRESH_TOKEN:b" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := store.Del(ctx, keys...); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := store.Del(ctx); err != nil {
		t.Fatalf("empty del: %v", err)
	}
	if err := store.Del(ctx, "missing"); err != nil {
		t.Fatalf("missing del: %v", err)
	}

	left, err := store.Keys(ctx, "*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(left) != 2 {
		t.Fatalf("expected 2 remaining keys, got %v", left)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	mr.Close()
	ctx := context.Background()

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Set(ctx, "k", "v", time.Minute); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
