// Package devstack assembles an Engine backed by miniredis and in-memory
// identity repositories. The load generator and HTTP tests run against it.
package devstack

import (
	"fmt"
	"strings"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/MrEthical07/handleAuth/identity"
	"github.com/MrEthical07/handleAuth/password"
	"github.com/MrEthical07/handleAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Stack is a self-contained Engine and its backing services.
type Stack struct {
	Engine *handleAuth.Engine
	Redis  *miniredis.Miniredis
	Client *redis.Client
	Repos  map[handleAuth.Role]*identity.MemoryRepository
	Hasher password.Hasher
}

// Config returns a valid configuration with generated per-namespace keys.
func Config() handleAuth.Config {
	cfg := handleAuth.DefaultConfig()
	for _, r := range handleAuth.Roles() {
		rc := cfg.Roles[r]
		rc.Access.Key = []byte(fmt.Sprintf("%s-access-%s", r, strings.Repeat("k", 32)))
		rc.Refresh.Key = []byte(fmt.Sprintf("%s-refresh-%s", r, strings.Repeat("k", 32)))
		cfg.Roles[r] = rc
	}
	return cfg
}

// Option adjusts the builder before the Engine is built.
type Option func(*handleAuth.Builder)

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *handleAuth.Builder) { b.WithLogger(l) }
}

// New starts miniredis and builds an Engine over it. bcryptCost trades
// realism for speed; tests pass bcrypt.MinCost.
func New(cfg handleAuth.Config, bcryptCost int, opts ...Option) (*Stack, error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("devstack: miniredis: %w", err)
	}
	s, err := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cfg, bcryptCost, opts...)
	if err != nil {
		mr.Close()
		return nil, err
	}
	s.Redis = mr
	return s, nil
}

// NewWithClient builds an Engine over an existing Redis client. The Stack
// owns client and closes it.
func NewWithClient(client *redis.Client, cfg handleAuth.Config, bcryptCost int, opts ...Option) (*Stack, error) {
	hasher, err := password.NewBcrypt(password.BcryptConfig{Cost: bcryptCost})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("devstack: hasher: %w", err)
	}

	s := &Stack{
		Client: client,
		Repos:  make(map[handleAuth.Role]*identity.MemoryRepository, 4),
		Hasher: hasher,
	}

	b := handleAuth.New().
		WithConfig(cfg).
		WithStore(session.NewRedisStore(client)).
		WithRedis(client).
		WithHasher(hasher)
	for _, r := range handleAuth.Roles() {
		repo := identity.NewMemoryRepository()
		s.Repos[r] = repo
		b.WithIdentity(r, repo)
	}
	for _, opt := range opts {
		opt(b)
	}

	s.Engine, err = b.Build()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("devstack: build: %w", err)
	}
	return s, nil
}

// Seed stores a principal with the given password in scope's repository.
func (s *Stack) Seed(scope handleAuth.Scope, email, plain string) (identity.Principal, error) {
	repo, ok := s.Repos[scope.Role]
	if !ok {
		return identity.Principal{}, fmt.Errorf("devstack: no repository for role %q", scope.Role)
	}
	hash, err := s.Hasher.Hash(plain)
	if err != nil {
		return identity.Principal{}, err
	}
	return repo.Put(identity.Principal{
		TenantID:     scope.TenantID,
		Email:        email,
		PasswordHash: hash,
		Name:         email,
	}), nil
}

// Close stops the Engine, the client and miniredis.
func (s *Stack) Close() {
	if s.Engine != nil {
		s.Engine.Close()
	}
	if s.Client != nil {
		_ = s.Client.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
}
