package handleAuth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/handleAuth/identity"
	"github.com/MrEthical07/handleAuth/password"
	"github.com/MrEthical07/handleAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testPassword = "correct-horse-battery"
	testTenantID = "5b0b4e3c-8a0e-4c3f-9d7a-1f2e3d4c5b6a"
)

func testConfig() Config {
	cfg := DefaultConfig()
	for _, r := range Roles() {
		rc := cfg.Roles[r]
		rc.Access.Key = []byte(strings.Repeat("a", 32) + "-" + string(r) + "-access")
		rc.Refresh.Key = []byte(strings.Repeat("r", 32) + "-" + string(r) + "-refresh")
		cfg.Roles[r] = rc
	}
	cfg.Password.BcryptCost = 4
	return cfg
}

type testHarness struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	store  *session.RedisStore
	repos  map[Role]*identity.MemoryRepository
	hasher password.Hasher
}

func newTestHarness(t testing.TB, cfg Config, opts ...func(*Builder)) *testHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hasher, err := password.NewBcrypt(password.BcryptConfig{Cost: 4})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	h := &testHarness{
		mr:     mr,
		rdb:    rdb,
		store:  session.NewRedisStore(rdb),
		repos:  make(map[Role]*identity.MemoryRepository, 4),
		hasher: hasher,
	}

	b := New().WithConfig(cfg).WithStore(h.store).WithRedis(rdb).WithHasher(hasher)
	for _, r := range Roles() {
		repo := identity.NewMemoryRepository()
		h.repos[r] = repo
		b.WithIdentity(r, repo)
	}
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	h.engine = engine
	return h
}

func (h *testHarness) addPrincipal(t testing.TB, scope Scope, email string) identity.Principal {
	t.Helper()
	hash, err := h.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h.repos[scope.Role].Put(identity.Principal{
		TenantID:     scope.TenantID,
		Email:        email,
		PasswordHash: hash,
		Name:         "Test Principal",
	})
}

func (h *testHarness) signIn(t testing.TB, scope Scope, email string) *AuthSession {
	t.Helper()
	s, err := h.engine.SignIn(context.Background(), scope, email, testPassword)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return s
}

func bearer(handle string) string {
	return "Bearer " + handle
}

// fastForward expires every key whose TTL is at most d.
func (h *testHarness) fastForward(d time.Duration) {
	h.mr.FastForward(d)
}

// deadRedis returns a client pointing at a closed server.
func deadRedis(t testing.TB) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}
