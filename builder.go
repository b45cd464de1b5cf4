package handleAuth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/handleAuth/identity"
	internalaudit "github.com/MrEthical07/handleAuth/internal/audit"
	"github.com/MrEthical07/handleAuth/internal/rate"
	"github.com/MrEthical07/handleAuth/jwt"
	"github.com/MrEthical07/handleAuth/password"
	"github.com/MrEthical07/handleAuth/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. A Builder is single-use: Build fails on the
// second call.
type Builder struct {
	config Config
	store  session.Store
	redis  redis.UniversalClient

	repos     map[Role]identity.Repository
	hasher    password.Hasher
	auditSink AuditSink
	logger    zerolog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		repos:  make(map[Role]identity.Repository, 4),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the key-value store holding token records. Required.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithRedis sets the client used by the sign-in throttle. It is only needed
// when Config.SignInThrottle.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentity registers the principal repository of role. Every role in
// Config.Roles needs one.
func (b *Builder) WithIdentity(role Role, repo identity.Repository) *Builder {
	b.repos[role] = repo
	return b
}

// WithHasher overrides the hasher derived from Config.Password.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the fallback logger for requests whose context carries none.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("session store required")
	}
	if cfg.SignInThrottle.Enabled && b.redis == nil {
		return nil, errors.New("SignInThrottle requires redis client")
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		repos:    make(map[Role]identity.Repository, len(cfg.Roles)),
		managers: make(map[Namespace]*jwt.Manager, 2*len(cfg.Roles)),
		log:      b.logger,
	}

	// -------- IDENTITY + SIGNING --------
	for _, role := range sortedRoles(cfg.Roles) {
		repo, ok := b.repos[role]
		if !ok || repo == nil {
			return nil, fmt.Errorf("identity repository required for role %s", role)
		}
		engine.repos[role] = repo

		rc := cfg.Roles[role]
		for ns, nc := range map[Namespace]NamespaceConfig{role.Access(): rc.Access, role.Refresh(): rc.Refresh} {
			m, err := jwt.NewManager(jwt.Config{
				TTL:           nc.TTL,
				SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
				PrivateKey:    cloneBytes(nc.Key),
				PublicKey:     cloneBytes(nc.PublicKey),
				Issuer:        cfg.JWT.Issuer,
				Audience:      cfg.JWT.Audience,
				Leeway:        cfg.JWT.Leeway,
				RequireIAT:    cfg.JWT.RequireIAT,
				MaxFutureIAT:  cfg.JWT.MaxFutureIAT,
				KeyID:         nc.KeyID,
			})
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ns, err)
			}
			engine.managers[ns] = m
		}
	}

	// -------- PASSWORDS --------
	hasher := b.hasher
	if hasher == nil {
		h, err := newHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
		hasher = h
	}
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	engine.hasher = hasher
	engine.dummyHash = dummy

	// -------- THROTTLE / AUDIT / METRICS --------
	if cfg.SignInThrottle.Enabled {
		engine.throttle = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.SignInThrottle.EnableIPThrottle,
			MaxAttempts:      cfg.SignInThrottle.MaxAttempts,
			Window:           cfg.SignInThrottle.Window,
		})
	}
	if cfg.Audit.Enabled {
		overflow := internalaudit.Block
		if cfg.Audit.DropIfFull {
			overflow = internalaudit.Drop
		}
		engine.audit = internalaudit.NewRelay(b.auditSink, internalaudit.Options{
			Capacity: cfg.Audit.BufferSize,
			Overflow: overflow,
			Logger:   &b.logger,
		})
	}
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}

func newHasher(cfg PasswordConfig) (password.Hasher, error) {
	switch cfg.Algorithm {
	case password.AlgorithmArgon2:
		return password.NewArgon2(password.Argon2Config{
			Memory:      cfg.Memory,
			Time:        cfg.Time,
			Parallelism: cfg.Parallelism,
			SaltLength:  cfg.SaltLength,
			KeyLength:   cfg.KeyLength,
		})
	default:
		return password.NewBcrypt(password.BcryptConfig{Cost: cfg.BcryptCost})
	}
}
