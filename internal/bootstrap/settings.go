package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/MrEthical07/handleAuth/password"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Duration accepts Go durations plus a "d" day suffix and bare seconds, so
// values such as "7d" or "900" work alongside "15m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q", s)
		}
		*d = Duration(time.Duration(n * float64(24*time.Hour)))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// NamespaceSettings is one namespace's secret and lifetime.
type NamespaceSettings struct {
	Secret    string   `env:"JWT_SECRET"`
	ExpiresIn Duration `env:"JWT_EXPIRES_IN"`
}

// RoleSettings configures one role. A disabled role gets no namespaces and
// no routes.
type RoleSettings struct {
	Enabled bool              `env:"ENABLED" envDefault:"true"`
	Access  NamespaceSettings `envPrefix:"ACCESS_"`
	Refresh NamespaceSettings `envPrefix:"REFRESH_"`
}

// WebServerSettings configures the HTTP listener.
type WebServerSettings struct {
	BindAddress     string        `env:"BIND_ADDRESS"     envDefault:"0.0.0.0"`
	Port            int           `env:"PORT"             envDefault:"8080"`
	BaseURL         string        `env:"BASE_URL"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"10s"`
}

// Addr is the host:port to listen on.
func (w WebServerSettings) Addr() string {
	return w.BindAddress + ":" + strconv.Itoa(w.Port)
}

// RedisSettings configures the Redis client. URL wins over HOST and PORT.
type RedisSettings struct {
	URL      string `env:"URL"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0"`
}

// KVSettings configures the Postgres key-value table.
type KVSettings struct {
	Table         string        `env:"TABLE"          envDefault:"key_value_store"`
	Unlogged      bool          `env:"UNLOGGED"       envDefault:"false"`
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" envDefault:"1m"`
}

// Settings is the complete process configuration.
type Settings struct {
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	WebServer WebServerSettings `envPrefix:"WEB_SERVER_"`

	StoreBackend string        `env:"STORE_BACKEND" envDefault:"redis"`
	Redis        RedisSettings `envPrefix:"REDIS_"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	KV           KVSettings    `envPrefix:"KV_"`

	JWTSigningMethod string        `env:"JWT_SIGNING_METHOD" envDefault:"hs256"`
	JWTIssuer        string        `env:"JWT_ISSUER"`
	JWTAudience      string        `env:"JWT_AUDIENCE"`
	JWTLeeway        time.Duration `env:"JWT_LEEWAY"         envDefault:"0s"`

	SuperAdmin  RoleSettings `envPrefix:"SUPER_ADMIN_"`
	TenantAdmin RoleSettings `envPrefix:"TENANT_ADMIN_"`
	OfficeUser  RoleSettings `envPrefix:"OFFICE_USER_"`
	User        RoleSettings `envPrefix:"USER_"`

	PasswordAlgorithm string `env:"PASSWORD_ALGORITHM" envDefault:"bcrypt"`
	BcryptCost        int    `env:"BCRYPT_COST"        envDefault:"10"`

	SignInThrottleEnabled bool          `env:"SIGN_IN_THROTTLE_ENABLED" envDefault:"false"`
	SignInMaxAttempts     int           `env:"SIGN_IN_MAX_ATTEMPTS"     envDefault:"10"`
	SignInWindow          time.Duration `env:"SIGN_IN_WINDOW"           envDefault:"15m"`

	AuditEnabled   bool `env:"AUDIT_ENABLED"   envDefault:"true"`
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	// LintStrict refuses to start on high-severity lint warnings.
	LintStrict bool `env:"CONFIG_LINT_STRICT" envDefault:"false"`
}

// LoadSettings reads .env files (missing files are ignored) and then the
// environment. Variables already set in the environment win over files.
func LoadSettings(files ...string) (Settings, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return Settings{}, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

func (s *Settings) role(r handleAuth.Role) RoleSettings {
	switch r {
	case handleAuth.RoleSuperAdmin:
		return s.SuperAdmin
	case handleAuth.RoleTenantAdmin:
		return s.TenantAdmin
	case handleAuth.RoleOfficeUser:
		return s.OfficeUser
	default:
		return s.User
	}
}

// EngineConfig maps s onto a validated handleAuth.Config.
func (s *Settings) EngineConfig() (handleAuth.Config, error) {
	cfg := handleAuth.DefaultConfig()
	cfg.PublicBaseURL = strings.TrimRight(s.WebServer.BaseURL, "/")

	cfg.JWT.SigningMethod = strings.ToLower(s.JWTSigningMethod)
	cfg.JWT.Issuer = s.JWTIssuer
	cfg.JWT.Audience = s.JWTAudience
	cfg.JWT.Leeway = s.JWTLeeway

	for _, r := range handleAuth.Roles() {
		rs := s.role(r)
		if !rs.Enabled {
			delete(cfg.Roles, r)
			continue
		}
		rc := cfg.Roles[r]
		rc.Access = namespaceConfig(rc.Access, rs.Access)
		rc.Refresh = namespaceConfig(rc.Refresh, rs.Refresh)
		cfg.Roles[r] = rc
	}

	cfg.Password.Algorithm = password.Algorithm(strings.ToLower(s.PasswordAlgorithm))
	cfg.Password.BcryptCost = s.BcryptCost

	cfg.SignInThrottle.Enabled = s.SignInThrottleEnabled
	cfg.SignInThrottle.MaxAttempts = s.SignInMaxAttempts
	cfg.SignInThrottle.Window = s.SignInWindow

	cfg.Audit.Enabled = s.AuditEnabled
	cfg.Metrics.Enabled = s.MetricsEnabled

	if err := cfg.Validate(); err != nil {
		return handleAuth.Config{}, err
	}
	if s.LintStrict {
		if err := cfg.Lint().AsError(handleAuth.LintHigh); err != nil {
			return handleAuth.Config{}, err
		}
	}
	return cfg, nil
}

func namespaceConfig(base handleAuth.NamespaceConfig, ns NamespaceSettings) handleAuth.NamespaceConfig {
	if ns.ExpiresIn != 0 {
		base.TTL = time.Duration(ns.ExpiresIn)
	}
	secret := ns.Secret
	// PEM keys in a single-line variable carry escaped newlines.
	if strings.HasPrefix(secret, "-----BEGIN") {
		secret = strings.ReplaceAll(secret, `\n`, "\n")
	}
	base.Key = []byte(secret)
	return base
}
