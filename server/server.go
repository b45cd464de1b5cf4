package server

import (
	"net/http"
	"time"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/MrEthical07/handleAuth/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const defaultMaxBodyBytes = 1 << 16

// Options configures New.
type Options struct {
	Engine *handleAuth.Engine
	Logger zerolog.Logger
	// Metrics is served at GET /metrics when set.
	Metrics http.Handler
	// MaxBodyBytes caps request bodies. Zero means 64 KiB.
	MaxBodyBytes int64
}

// area is one role's route group.
type area struct {
	role      handleAuth.Role
	prefix    string
	component string
	tenant    middleware.TenantFunc
}

func areas() []area {
	tenant := middleware.PathTenant("tenantId")
	return []area{
		{handleAuth.RoleSuperAdmin, "/api/v1/super-admin", "super-admin", nil},
		{handleAuth.RoleUser, "/api/v1/user", "user", nil},
		{handleAuth.RoleTenantAdmin, "/api/v1/tenants/{tenantId}/tenant-admin", "tenant-admin", tenant},
		{handleAuth.RoleOfficeUser, "/api/v1/tenants/{tenantId}/office-user", "office-user", tenant},
	}
}

// New returns the HTTP handler. Roles that are not enabled in the engine's
// config get no routes.
func New(opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	mux := http.NewServeMux()
	h := &handlers{engine: opts.Engine, maxBody: opts.MaxBodyBytes}

	enabled := map[handleAuth.Role]struct{}{}
	if opts.Engine != nil {
		for r := range opts.Engine.Config().Roles {
			enabled[r] = struct{}{}
		}
	}
	for _, a := range areas() {
		if _, ok := enabled[a.role]; !ok {
			continue
		}
		h.mount(mux, a)
	}

	mux.HandleFunc("GET /healthz", h.health)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, errRouteNotFound)
	})

	return logRequests(opts.Logger)(mux)
}

func (h *handlers) mount(mux *http.ServeMux, a area) {
	access := middleware.RequireAccess(h.engine, a.role, a.tenant)
	refresh := middleware.RequireRefresh(h.engine, a.role, a.tenant)
	c := component(a.component)

	mux.Handle("POST "+a.prefix+"/sign-in", c(h.signIn(a)))
	mux.Handle("POST "+a.prefix+"/refresh", c(refresh(http.HandlerFunc(h.refresh))))
	mux.Handle("POST "+a.prefix+"/sign-out", c(access(http.HandlerFunc(h.signOut))))
	mux.Handle("GET "+a.prefix+"/me", c(access(http.HandlerFunc(h.me))))
}

// logRequests attaches a request-scoped logger and writes one access line per
// request.
func logRequests(logger zerolog.Logger) func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("request_id", "X-Request-Id"),
		hlog.MethodHandler("method"),
		hlog.URLHandler("path"),
		hlog.RemoteAddrHandler("remote_addr"),
		hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
			ev := hlog.FromRequest(r).Info()
			if status >= http.StatusInternalServerError {
				ev = hlog.FromRequest(r).Error()
			}
			ev.Int("status", status).Int("size", size).Dur("latency", d).Msg("request")
		}),
	}
	return func(next http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			next = chain[i](next)
		}
		return next
	}
}

// component tags the request logger with the route group name.
func component(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := zerolog.Ctx(r.Context()).With().Str("component", name).Logger()
			next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
		})
	}
}
