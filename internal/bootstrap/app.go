package bootstrap

import (
	"context"
	"fmt"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/MrEthical07/handleAuth/identity"
	"github.com/MrEthical07/handleAuth/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds the Engine and the connections it was built on.
type App struct {
	Settings Settings
	Config   handleAuth.Config
	Logger   zerolog.Logger
	Engine   *handleAuth.Engine

	DB    *pgxpool.Pool
	Redis redis.UniversalClient
	// KV is set when STORE_BACKEND=postgres; the server purges it periodically.
	KV *session.PostgresStore
}

var roleTables = map[handleAuth.Role]identity.Table{
	handleAuth.RoleSuperAdmin:  identity.SuperAdminTable,
	handleAuth.RoleTenantAdmin: identity.TenantAdminTable,
	handleAuth.RoleOfficeUser:  identity.OfficeUserTable,
	handleAuth.RoleUser:        identity.UserTable,
}

// NewApp connects every backend s asks for and builds the Engine. On error
// anything already opened is closed.
func NewApp(ctx context.Context, s Settings, logger zerolog.Logger) (_ *App, err error) {
	cfg, err := s.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	for _, w := range cfg.Lint() {
		logger.Warn().Str("code", w.Code).Str("severity", w.Severity.String()).Msg(w.Message)
	}

	app := &App{Settings: s, Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.DB, err = ConnectPostgres(ctx, s.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	needRedis := s.StoreBackend == BackendRedis || cfg.SignInThrottle.Enabled
	if needRedis {
		app.Redis, err = ConnectRedis(ctx, s.Redis, logger)
		if err != nil {
			return nil, err
		}
	}

	var store session.Store
	switch s.StoreBackend {
	case BackendRedis:
		store = session.NewRedisStore(app.Redis)
	case BackendPostgres:
		app.KV = session.NewPostgresStore(app.DB, session.PostgresOptions{
			Table:    s.KV.Table,
			Unlogged: s.KV.Unlogged,
		})
		if err = app.KV.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure kv schema: %w", err)
		}
		store = app.KV
	default:
		return nil, fmt.Errorf("STORE_BACKEND %q: want %s or %s", s.StoreBackend, BackendRedis, BackendPostgres)
	}

	b := handleAuth.New().
		WithConfig(cfg).
		WithStore(store).
		WithLogger(logger)
	if app.Redis != nil {
		b.WithRedis(app.Redis)
	}
	if cfg.Audit.Enabled {
		b.WithAuditSink(handleAuth.NewLoggerSink(logger))
	}
	for r := range cfg.Roles {
		b.WithIdentity(r, identity.NewPostgresRepository(app.DB, roleTables[r]))
	}

	app.Engine, err = b.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	logger.Info().
		Str("store", s.StoreBackend).
		Int("roles", len(cfg.Roles)).
		Bool("throttle", cfg.SignInThrottle.Enabled).
		Msg("engine ready")
	return app, nil
}

// Close releases the Engine and every connection.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Engine != nil {
		a.Engine.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
