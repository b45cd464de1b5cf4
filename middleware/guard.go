package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/rs/zerolog"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by a guard.
func AuthResultFromContext(ctx context.Context) (*handleAuth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*handleAuth.AuthResult)
	return res, ok
}

// WithAuthResult stores res in ctx. Guards call it; tests use it to fake an
// admitted request.
func WithAuthResult(ctx context.Context, res *handleAuth.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard admits requests holding a valid handle for namespace ns. tenantFrom
// may be nil for global roles.
func Guard(engine *handleAuth.Engine, ns handleAuth.Namespace, tenantFrom TenantFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, r, handleAuth.ErrEngineNotReady)
				return
			}

			var tenantID string
			if tenantFrom != nil {
				tenantID = tenantFrom(r)
			}

			ctx := handleAuth.WithClientIP(r.Context(), ClientIP(r))
			res, err := engine.Authenticate(ctx, ns, r.Header.Get("Authorization"), tenantID)
			if err != nil {
				zerolog.Ctx(ctx).Debug().Err(err).Str("namespace", string(ns)).Msg("request rejected")
				WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(ctx, res)))
		})
	}
}

// RequireAccess guards a route with the access namespace of role.
func RequireAccess(engine *handleAuth.Engine, role handleAuth.Role, tenantFrom TenantFunc) func(http.Handler) http.Handler {
	return Guard(engine, role.Access(), tenantFrom)
}

// RequireRefresh guards a route with the refresh namespace of role. The
// presented refresh handle is consumed even if the handler later fails.
func RequireRefresh(engine *handleAuth.Engine, role handleAuth.Role, tenantFrom TenantFunc) func(http.Handler) http.Handler {
	return Guard(engine, role.Refresh(), tenantFrom)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// WriteError renders err as an ErrorBody. Untyped errors become 500s and
// their text is not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := handleAuth.AsError(err)
	if e == nil {
		e = handleAuth.ErrInternal
	}
	if e.StatusCode >= http.StatusInternalServerError {
		var cause error = e
		if errors.Unwrap(e) != nil {
			cause = errors.Unwrap(e)
		}
		zerolog.Ctx(r.Context()).Error().Err(cause).Str("code", string(e.Code)).Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorBody{
		StatusCode: e.StatusCode,
		Code:       string(e.Code),
		Error:      e.StatusText(),
		Message:    e.Message,
	})
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
