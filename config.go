package handleAuth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/handleAuth/password"
)

// Config is the complete Engine configuration. It is copied by the Builder
// and never mutated afterwards.
type Config struct {
	JWT            JWTConfig
	Roles          map[Role]RoleConfig
	Password       PasswordConfig
	SignInThrottle ThrottleConfig
	Audit          AuditConfig
	Metrics        MetricsConfig

	// PublicBaseURL prefixes principal image URLs in responses when set.
	PublicBaseURL string
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds settings shared by every namespace.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
}

// NamespaceConfig is the key material and lifetime of one namespace. For
// hs256 Key is the shared secret; for ed25519 it is the private key and
// PublicKey may be left empty.
type NamespaceConfig struct {
	TTL       time.Duration
	Key       []byte
	PublicKey []byte
	KeyID     string
}

// RoleConfig enables a role with its access and refresh namespaces.
type RoleConfig struct {
	Access  NamespaceConfig
	Refresh NamespaceConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects and tunes the password hasher.
type PasswordConfig struct {
	Algorithm  password.Algorithm
	BcryptCost int

	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
THROTTLE / AUDIT / METRICS
====================================
*/

// ThrottleConfig controls the Redis sign-in throttle. It requires a Redis
// client on the Builder when enabled.
type ThrottleConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxAttempts      int
	Window           time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration with every role enabled, access
// tokens valid for 15 minutes and refresh tokens for 7 days. Keys are left
// empty and must be supplied.
func DefaultConfig() Config {
	roles := make(map[Role]RoleConfig, 4)
	for _, r := range Roles() {
		roles[r] = RoleConfig{
			Access:  NamespaceConfig{TTL: 15 * time.Minute},
			Refresh: NamespaceConfig{TTL: 7 * 24 * time.Hour},
		}
	}
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Leeway:        0,
			RequireIAT:    true,
			MaxFutureIAT:  10 * time.Minute,
		},
		Roles: roles,
		Password: PasswordConfig{
			Algorithm:   password.AlgorithmBcrypt,
			BcryptCost:  10,
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		SignInThrottle: ThrottleConfig{
			Enabled:          false,
			EnableIPThrottle: true,
			MaxAttempts:      10,
			Window:           15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Roles = make(map[Role]RoleConfig, len(cfg.Roles))
	for r, rc := range cfg.Roles {
		rc.Access = cloneNamespace(rc.Access)
		rc.Refresh = cloneNamespace(rc.Refresh)
		out.Roles[r] = rc
	}
	return out
}

func cloneNamespace(nc NamespaceConfig) NamespaceConfig {
	nc.Key = cloneBytes(nc.Key)
	nc.PublicKey = cloneBytes(nc.PublicKey)
	return nc
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

const minHS256KeyBytes = 32

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if c.JWT.SigningMethod != "hs256" && c.JWT.SigningMethod != "ed25519" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Issuer != "" && strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}
	if c.JWT.MaxFutureIAT < 0 || c.JWT.MaxFutureIAT > 24*time.Hour {
		return errors.New("JWT MaxFutureIAT must be between 0 and 24h")
	}

	if len(c.Roles) == 0 {
		return errors.New("at least one role must be configured")
	}
	for _, r := range sortedRoles(c.Roles) {
		if !r.Valid() {
			return fmt.Errorf("unknown role %q", r)
		}
		rc := c.Roles[r]
		if err := c.validateNamespace(r.Access(), rc.Access); err != nil {
			return err
		}
		if err := c.validateNamespace(r.Refresh(), rc.Refresh); err != nil {
			return err
		}
		if c.JWT.SigningMethod == "hs256" && string(rc.Access.Key) == string(rc.Refresh.Key) {
			return fmt.Errorf("%s access and refresh keys must differ", r)
		}
	}

	switch c.Password.Algorithm {
	case password.AlgorithmBcrypt, "":
		if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31) {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
	case password.AlgorithmArgon2:
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	default:
		return fmt.Errorf("unsupported password algorithm %q", c.Password.Algorithm)
	}

	if c.SignInThrottle.Enabled {
		if c.SignInThrottle.MaxAttempts <= 0 {
			return errors.New("SignInThrottle MaxAttempts must be > 0")
		}
		if c.SignInThrottle.Window <= 0 {
			return errors.New("SignInThrottle Window must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.PublicBaseURL != "" && !strings.HasPrefix(c.PublicBaseURL, "http://") && !strings.HasPrefix(c.PublicBaseURL, "https://") {
		return errors.New("PublicBaseURL must be an http(s) URL")
	}

	return nil
}

func (c *Config) validateNamespace(ns Namespace, nc NamespaceConfig) error {
	if nc.TTL <= 0 {
		return fmt.Errorf("%s TTL must be > 0", ns)
	}
	if len(nc.Key) == 0 {
		return fmt.Errorf("%s key is required", ns)
	}
	if c.JWT.SigningMethod == "hs256" && len(nc.Key) < minHS256KeyBytes {
		return fmt.Errorf("%s hs256 secret must be at least %d bytes", ns, minHS256KeyBytes)
	}
	return nil
}

func sortedRoles(m map[Role]RoleConfig) []Role {
	out := make([]Role, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
