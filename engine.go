package handleAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/handleAuth/identity"
	internalaudit "github.com/MrEthical07/handleAuth/internal/audit"
	"github.com/MrEthical07/handleAuth/internal/flows"
	"github.com/MrEthical07/handleAuth/internal/rate"
	"github.com/MrEthical07/handleAuth/jwt"
	"github.com/MrEthical07/handleAuth/password"
	"github.com/MrEthical07/handleAuth/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine issues, authenticates and revokes token handles for every configured
// role. It is immutable after Build and safe for concurrent use.
type Engine struct {
	config    Config
	store     session.Store
	repos     map[Role]identity.Repository
	managers  map[Namespace]*jwt.Manager
	hasher    password.Hasher
	dummyHash string
	throttle  *rate.Limiter
	audit     *internalaudit.Relay
	metrics   *Metrics
	log       zerolog.Logger
}

// Close flushes pending audit events. The store and repositories are owned
// by the caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped counts audit events that never reached the sink.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id int) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(MetricID(id))
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

/*
====================================
SESSION OPERATIONS
====================================
*/

// SignIn checks email and password against the principals of scope and
// issues an access and a refresh handle. Unknown email and wrong password
// both fail with ErrInvalidCredentials.
func (e *Engine) SignIn(ctx context.Context, scope Scope, email, password string) (*AuthSession, error) {
	ctx = normalizeContext(ctx)
	repo, err := e.resolve(scope)
	if err != nil {
		return nil, err
	}

	deps := e.signInDeps(scope, repo)
	res, err := flows.RunSignIn(ctx, email, password, deps)
	if err != nil {
		return nil, AsError(err)
	}
	return e.authSession(res), nil
}

// Refresh re-reads principalID and issues a new pair. The presented refresh
// handle must already have been consumed by Authenticate on a refresh
// namespace; Refresh itself never looks at it.
func (e *Engine) Refresh(ctx context.Context, scope Scope, principalID string) (*AuthSession, error) {
	ctx = normalizeContext(ctx)
	repo, err := e.resolve(scope)
	if err != nil {
		return nil, err
	}
	if err := validatePrincipalID(principalID); err != nil {
		return nil, err
	}

	res, err := flows.RunRefresh(ctx, principalID, e.refreshDeps(scope, repo))
	if err != nil {
		return nil, AsError(err)
	}
	return e.authSession(res), nil
}

// SignOut deletes every access and refresh record of principalID in scope
// and returns how many were removed. Signing out twice is not an error.
func (e *Engine) SignOut(ctx context.Context, scope Scope, principalID string) (int, error) {
	ctx = normalizeContext(ctx)
	if _, err := e.resolve(scope); err != nil {
		return 0, err
	}
	// The id becomes a store glob; anything but a canonical UUID could widen it.
	if err := validatePrincipalID(principalID); err != nil {
		return 0, err
	}

	n, err := flows.RunSignOut(ctx, principalID, e.signOutDeps(scope))
	if err != nil {
		return 0, AsError(err)
	}
	return n, nil
}

// Authenticate validates an Authorization header value against ns. The
// handle format is checked before the store is consulted. tenantID is the
// tenant the request addresses and must be empty for global roles.
//
// On a refresh namespace the record is removed before the JWT is verified,
// so a refresh handle is accepted at most once even when verification fails.
func (e *Engine) Authenticate(ctx context.Context, ns Namespace, authorization, tenantID string) (*AuthResult, error) {
	ctx = normalizeContext(ctx)
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	if !ns.Valid() {
		return nil, ErrRequestInvalid.withCause(fmt.Errorf("unknown namespace %q", ns))
	}
	scope := Scope{Role: ns.Role(), TenantID: tenantID}
	if _, err := e.resolve(scope); err != nil {
		return nil, err
	}

	handle, err := ParseAuthorization(authorization)
	if err != nil {
		e.metricInc(int(MetricAuthenticateInvalid))
		e.emitAudit(ctx, auditEventAuthRejected, false, "", scope.TenantID, ns, err, nil)
		return nil, err
	}

	res, err := flows.RunAuthenticate(ctx, handle.PrincipalID, handle.Fingerprint, e.authenticateDeps(ns, scope))
	if err != nil {
		return nil, AsError(err)
	}
	return &AuthResult{
		PrincipalID: res.PrincipalID,
		TenantID:    res.TenantID,
		Namespace:   ns,
	}, nil
}

// Principal loads the public view of principal id in scope.
func (e *Engine) Principal(ctx context.Context, scope Scope, id string) (identity.Principal, error) {
	ctx = normalizeContext(ctx)
	repo, err := e.resolve(scope)
	if err != nil {
		return identity.Principal{}, err
	}
	p, err := repo.FindByID(ctx, scope.TenantID, id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Principal{}, ErrPrincipalNotFound
		}
		e.metricInc(int(MetricStoreFailure))
		return identity.Principal{}, ErrStoreUnavailable.withCause(err)
	}
	return p.Public(e.config.PublicBaseURL), nil
}

// Ping reports the store round-trip time.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.store.Ping(normalizeContext(ctx))
	if err != nil {
		return 0, ErrStoreUnavailable.withCause(err)
	}
	return d, nil
}

/*
====================================
FLOW WIRING
====================================
*/

func (e *Engine) resolve(scope Scope) (identity.Repository, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if err := scope.validate(); err != nil {
		return nil, err
	}
	repo, ok := e.repos[scope.Role]
	if !ok {
		return nil, ErrRequestInvalid.withCause(fmt.Errorf("role %s is not enabled", scope.Role))
	}
	return repo, nil
}

func validatePrincipalID(id string) error {
	if len(id) != 36 {
		return ErrRequestInvalid.withCause(fmt.Errorf("principal id %q", id))
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrRequestInvalid.withCause(fmt.Errorf("principal id %q: %w", id, err))
	}
	return nil
}

func (e *Engine) authSession(res *flows.SignInResult) *AuthSession {
	return &AuthSession{
		Principal:    res.Principal.Public(e.config.PublicBaseURL),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}
}

func (e *Engine) issueDeps(scope Scope) flows.IssueDeps {
	return flows.IssueDeps{
		TenantID: scope.TenantID,
		Access:   e.managers[scope.Role.Access()],
		Refresh:  e.managers[scope.Role.Refresh()],
		AccessKey: func(pid, fp string) string {
			return RecordKey(scope, KindAccess, pid, fp)
		},
		RefreshKey: func(pid, fp string) string {
			return RecordKey(scope, KindRefresh, pid, fp)
		},
		Fingerprint: jwt.Fingerprint,
		Store:       e.store,
		SignFailed:  errorWithCause(ErrInternal),
		StoreFailed: errorWithCause(ErrStoreUnavailable),
	}
}

func (e *Engine) signInDeps(scope Scope, repo identity.Repository) flows.SignInDeps {
	deps := flows.SignInDeps{
		ThrottleScope: throttleScope(scope),
		DummyHash:     e.dummyHash,
		ClientIP:      ClientIPFromContext,
		FindByEmail: func(ctx context.Context, email string) (identity.Principal, error) {
			return repo.FindByEmail(ctx, scope.TenantID, email)
		},
		VerifyPassword: e.hasher.Verify,
		Issue:          e.issueDeps(scope),
		MetricInc:      e.metricInc,
		EmitAudit:      e.auditFunc(scope, scope.Role.Access()),
		Warn:           e.warn,
		Metrics: flows.SignInMetrics{
			Success:      int(MetricSignInSuccess),
			Failure:      int(MetricSignInFailure),
			RateLimited:  int(MetricSignInRateLimited),
			Written:      int(MetricRecordsWritten),
			StoreFailure: int(MetricStoreFailure),
		},
		Events: flows.SignInEvents{
			Success:     auditEventSignInSuccess,
			Failure:     auditEventSignInFailure,
			RateLimited: auditEventSignInRateLimited,
		},
		Errors: flows.SignInErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			RateLimited:        ErrSignInRateLimited,
			Unavailable:        errorWithCause(ErrStoreUnavailable),
		},
	}
	// A nil *rate.Limiter must not become a non-nil interface.
	if e.throttle != nil {
		deps.Throttle = e.throttle
	}
	return deps
}

func (e *Engine) refreshDeps(scope Scope, repo identity.Repository) flows.RefreshDeps {
	return flows.RefreshDeps{
		FindByID: func(ctx context.Context, id string) (identity.Principal, error) {
			return repo.FindByID(ctx, scope.TenantID, id)
		},
		Issue:     e.issueDeps(scope),
		MetricInc: e.metricInc,
		EmitAudit: e.auditFunc(scope, scope.Role.Refresh()),
		Metrics: flows.RefreshMetrics{
			Success:      int(MetricRefreshSuccess),
			Failure:      int(MetricRefreshFailure),
			Written:      int(MetricRecordsWritten),
			StoreFailure: int(MetricStoreFailure),
		},
		Events: flows.RefreshEvents{
			Success: auditEventRefreshSuccess,
			Failure: auditEventRefreshFailure,
		},
		Errors: flows.RefreshErrors{
			EngineNotReady:    ErrEngineNotReady,
			PrincipalNotFound: ErrPrincipalNotFound,
			Unavailable:       errorWithCause(ErrStoreUnavailable),
		},
	}
}

func (e *Engine) signOutDeps(scope Scope) flows.SignOutDeps {
	return flows.SignOutDeps{
		Pattern: func(pid string) string {
			return SignOutPattern(scope, pid)
		},
		Store:     e.store,
		MetricInc: e.metricInc,
		Revoked: func(n int) {
			e.metrics.Add(MetricTokensRevoked, uint64(n))
		},
		EmitAudit: e.auditFunc(scope, ""),
		Metrics: flows.SignOutMetrics{
			SignOut:      int(MetricSignOut),
			StoreFailure: int(MetricStoreFailure),
		},
		Events: flows.SignOutEvents{SignOut: auditEventSignOut},
		Errors: flows.SignOutErrors{
			EngineNotReady: ErrEngineNotReady,
			Unavailable:    errorWithCause(ErrStoreUnavailable),
		},
	}
}

func (e *Engine) authenticateDeps(ns Namespace, scope Scope) flows.AuthenticateDeps {
	kind := ns.Kind()
	var verify func(string) (*jwt.Claims, error)
	if m := e.managers[ns]; m != nil {
		verify = m.Verify
	}
	return flows.AuthenticateDeps{
		Consume:      kind == KindRefresh,
		TenantScoped: scope.Role.TenantScoped(),
		TenantID:     scope.TenantID,
		RecordKey: func(pid, fp string) string {
			return RecordKey(scope, kind, pid, fp)
		},
		Store:     e.store,
		Verify:    verify,
		MetricInc: e.metricInc,
		EmitAudit: e.auditFunc(scope, ns),
		Metrics: flows.AuthenticateMetrics{
			Success:      int(MetricAuthenticateSuccess),
			Invalid:      int(MetricAuthenticateInvalid),
			Expired:      int(MetricAuthenticateExpired),
			Consumed:     int(MetricRefreshConsumed),
			StoreFailure: int(MetricStoreFailure),
		},
		Events: flows.AuthenticateEvents{Rejected: auditEventAuthRejected},
		Errors: flows.AuthenticateErrors{
			EngineNotReady: ErrEngineNotReady,
			TokenInvalid:   errorWithCause(ErrAuthorizationTokenInvalid),
			TokenExpired:   errorWithCause(ErrAuthorizationTokenExpired),
			Unavailable:    errorWithCause(ErrStoreUnavailable),
		},
	}
}

func throttleScope(scope Scope) string {
	if scope.Role.TenantScoped() {
		return scope.Role.Label() + ":" + strings.ToLower(scope.TenantID)
	}
	return scope.Role.Label()
}

func errorWithCause(sentinel *Error) func(error) error {
	return func(cause error) error { return sentinel.withCause(cause) }
}
