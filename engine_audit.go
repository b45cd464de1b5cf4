package handleAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/handleAuth/internal/flows"
	"github.com/rs/zerolog"
)

const (
	auditEventSignInSuccess     = "sign_in_success"
	auditEventSignInFailure     = "sign_in_failure"
	auditEventSignInRateLimited = "sign_in_rate_limited"
	auditEventRefreshSuccess    = "refresh_success"
	auditEventRefreshFailure    = "refresh_failure"
	auditEventSignOut           = "sign_out"
	auditEventAuthRejected      = "authenticate_rejected"
)

// AuditErrorCode is the error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrMissingToken       AuditErrorCode = "missing_token"
	auditErrPrincipalNotFound  AuditErrorCode = "principal_not_found"
	auditErrTenantInvalid      AuditErrorCode = "tenant_invalid"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// auditFunc binds the flow audit callback to one scope and namespace.
func (e *Engine) auditFunc(scope Scope, ns Namespace) flows.AuditFunc {
	return func(ctx context.Context, event string, success bool, principalID string, err error, metadata func() map[string]string) {
		e.emitAudit(ctx, event, success, principalID, scope.TenantID, ns, err, metadata)
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	tenantID string,
	ns Namespace,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		TenantID:    tenantID,
		Namespace:   string(ns),
		IP:          ClientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSignInRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAuthorizationTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrAuthorizationTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrNoAuthorizationInHeader):
		return auditErrMissingToken
	case errors.Is(err, ErrPrincipalNotFound):
		return auditErrPrincipalNotFound
	case errors.Is(err, ErrTenantInvalid):
		return auditErrTenantInvalid
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// logger returns the request logger when ctx carries one.
func (e *Engine) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &e.log
}

func (e *Engine) warn(ctx context.Context, err error, msg string) {
	e.logger(ctx).Warn().Err(err).Msg(msg)
}
