package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/handleAuth/jwt"
	"github.com/MrEthical07/handleAuth/session"
)

// AuthenticateResult identifies the admitted principal.
type AuthenticateResult struct {
	PrincipalID string
	TenantID    string
}

// AuthenticateMetrics carries metric IDs needed by the authenticate flow.
type AuthenticateMetrics struct {
	Success      int
	Invalid      int
	Expired      int
	Consumed     int
	StoreFailure int
}

// AuthenticateEvents carries audit event names used by the authenticate flow.
type AuthenticateEvents struct {
	Rejected string
}

// AuthenticateErrors carries host-level error constructors used by the
// authenticate flow. Each receives the underlying cause.
type AuthenticateErrors struct {
	EngineNotReady error
	TokenInvalid   func(error) error
	TokenExpired   func(error) error
	Unavailable    func(error) error
}

// AuthenticateDeps captures authenticate dependencies for one namespace and
// tenant.
type AuthenticateDeps struct {
	// Consume takes the record out of the store before verification. Set for
	// refresh namespaces so a handle is single-use even if verification fails.
	Consume      bool
	TenantScoped bool
	TenantID     string

	RecordKey func(principalID, fingerprint string) string
	Store     session.Store
	Verify    func(token string) (*jwt.Claims, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AuthenticateMetrics
	Events  AuthenticateEvents
	Errors  AuthenticateErrors
}

var errClaimsMismatch = errors.New("token claims do not match handle")

// RunAuthenticate resolves a parsed handle to its stored JWT, verifies it and
// checks the claims against the handle and route tenant.
func RunAuthenticate(ctx context.Context, principalID, fingerprint string, deps AuthenticateDeps) (*AuthenticateResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.RecordKey == nil || deps.Store == nil || deps.Verify == nil {
		return nil, deps.Errors.EngineNotReady
	}
	invalid := orIdentity(deps.Errors.TokenInvalid)
	expired := orIdentity(deps.Errors.TokenExpired)
	unavailable := orIdentity(deps.Errors.Unavailable)

	reject := func(metric int, err error) (*AuthenticateResult, error) {
		deps.MetricInc(metric)
		deps.EmitAudit(ctx, deps.Events.Rejected, false, principalID, err, nil)
		return nil, err
	}

	key := deps.RecordKey(principalID, fingerprint)

	var (
		token string
		err   error
	)
	if deps.Consume {
		token, err = deps.Store.Take(ctx, key)
	} else {
		token, err = deps.Store.Get(ctx, key)
	}
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return reject(deps.Metrics.Expired, expired(err))
		}
		deps.MetricInc(deps.Metrics.StoreFailure)
		return nil, unavailable(err)
	}
	if deps.Consume {
		deps.MetricInc(deps.Metrics.Consumed)
	}

	claims, err := deps.Verify(token)
	if err != nil {
		if jwt.IsExpired(err) {
			return reject(deps.Metrics.Expired, expired(err))
		}
		return reject(deps.Metrics.Invalid, invalid(err))
	}

	if !strings.EqualFold(claims.PrincipalID, principalID) {
		return reject(deps.Metrics.Invalid, invalid(fmt.Errorf("%w: principal", errClaimsMismatch)))
	}
	if deps.TenantScoped {
		if !strings.EqualFold(claims.TenantID, deps.TenantID) {
			return reject(deps.Metrics.Invalid, invalid(fmt.Errorf("%w: tenant", errClaimsMismatch)))
		}
	} else if claims.TenantID != "" {
		return reject(deps.Metrics.Invalid, invalid(fmt.Errorf("%w: unexpected tenant", errClaimsMismatch)))
	}

	deps.MetricInc(deps.Metrics.Success)
	return &AuthenticateResult{PrincipalID: principalID, TenantID: deps.TenantID}, nil
}

func orIdentity(f func(error) error) func(error) error {
	if f == nil {
		return func(err error) error { return err }
	}
	return f
}
