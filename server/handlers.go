package server

import (
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/MrEthical07/handleAuth/middleware"
	"github.com/rs/zerolog"
)

const minPasswordLength = 8

var errRouteNotFound = &handleAuth.Error{
	Code:       "ROUTE_NOT_FOUND",
	StatusCode: http.StatusNotFound,
	Message:    "Route not found.",
}

type handlers struct {
	engine  *handleAuth.Engine
	maxBody int64
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *signInRequest) validate() error {
	req.Email = strings.TrimSpace(req.Email)
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return invalidRequest("email must be a valid address")
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return invalidRequest("password must be at least 8 characters")
	}
	return nil
}

func (h *handlers) signIn(a area) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
			middleware.WriteError(w, r, err)
			return
		}
		if err := req.validate(); err != nil {
			middleware.WriteError(w, r, err)
			return
		}

		scope := handleAuth.Scope{Role: a.role}
		if a.tenant != nil {
			scope.TenantID = a.tenant(r)
		}

		ctx := handleAuth.WithClientIP(r.Context(), middleware.ClientIP(r))
		sess, err := h.engine.SignIn(ctx, scope, req.Email, req.Password)
		if err != nil {
			middleware.WriteError(w, r, err)
			return
		}
		zerolog.Ctx(ctx).Info().Str("principal_id", sess.ID).Msg("signed in")
		writeEnvelope(w, http.StatusOK, "Signed in successfully.", sess)
	})
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, handleAuth.ErrInternal)
		return
	}
	sess, err := h.engine.Refresh(r.Context(), res.Scope(), res.PrincipalID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, "Token refreshed successfully.", sess)
}

func (h *handlers) signOut(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, handleAuth.ErrInternal)
		return
	}
	n, err := h.engine.SignOut(r.Context(), res.Scope(), res.PrincipalID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("principal_id", res.PrincipalID).
		Int("revoked", n).
		Msg("signed out")
	writeEnvelope(w, http.StatusOK, "Signed out successfully.", nil)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, handleAuth.ErrInternal)
		return
	}
	p, err := h.engine.Principal(r.Context(), res.Scope(), res.PrincipalID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, "profile fetched successfully.", p)
}

type healthResponse struct {
	Status  string `json:"status"`
	StoreMs int64  `json:"storeMs"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine.Ping(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", StoreMs: d.Milliseconds()})
}
