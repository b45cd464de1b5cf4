package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/handleAuth/identity"
	"github.com/MrEthical07/handleAuth/internal/rate"
)

// SignInResult is the principal together with its freshly issued handles.
type SignInResult struct {
	Principal identity.Principal
	Tokens    TokenPair
}

// SignInThrottle is the subset of the rate limiter used by sign-in.
type SignInThrottle interface {
	CheckSignIn(ctx context.Context, scope, email, ip string) error
	RecordFailure(ctx context.Context, scope, email, ip string) error
	Reset(ctx context.Context, scope, email string) error
}

// SignInMetrics carries metric IDs needed by the sign-in flow.
type SignInMetrics struct {
	Success      int
	Failure      int
	RateLimited  int
	Written      int
	StoreFailure int
}

// SignInEvents carries audit event names used by the sign-in flow.
type SignInEvents struct {
	Success     string
	Failure     string
	RateLimited string
}

// SignInErrors carries host-level errors returned by the sign-in flow.
type SignInErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	RateLimited        error
	Unavailable        func(error) error
}

// SignInDeps captures sign-in dependencies for one scope.
type SignInDeps struct {
	// ThrottleScope namespaces throttle counters, e.g. the role plus tenant.
	ThrottleScope string
	// DummyHash is verified against when the e-mail is unknown so both
	// failure paths do the same work.
	DummyHash string

	ClientIP       func(context.Context) string
	FindByEmail    func(ctx context.Context, email string) (identity.Principal, error)
	VerifyPassword func(password, encodedHash string) (bool, error)
	Throttle       SignInThrottle
	Issue          IssueDeps

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      WarnFunc

	Metrics SignInMetrics
	Events  SignInEvents
	Errors  SignInErrors
}

// RunSignIn authenticates email/password and issues a token pair. Unknown
// e-mail and wrong password produce the same InvalidCredentials error.
func RunSignIn(ctx context.Context, email, password string, deps SignInDeps) (*SignInResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ClientIP == nil {
		deps.ClientIP = func(context.Context) string { return "" }
	}
	if deps.FindByEmail == nil || deps.VerifyPassword == nil {
		return nil, deps.Errors.EngineNotReady
	}
	unavailable := orIdentity(deps.Errors.Unavailable)

	email = strings.TrimSpace(email)
	ip := deps.ClientIP(ctx)
	emailMeta := func() map[string]string {
		return map[string]string{"email": email}
	}

	if deps.Throttle != nil {
		if err := deps.Throttle.CheckSignIn(ctx, deps.ThrottleScope, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				deps.MetricInc(deps.Metrics.RateLimited)
				deps.EmitAudit(ctx, deps.Events.RateLimited, false, "", deps.Errors.RateLimited, emailMeta)
				return nil, deps.Errors.RateLimited
			}
			// Throttle outages do not block sign-in.
			deps.Warn(ctx, err, "sign-in throttle check failed")
		}
	}

	fail := func(principalID string, err error) (*SignInResult, error) {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, principalID, err, emailMeta)
		if deps.Throttle != nil {
			if rerr := deps.Throttle.RecordFailure(ctx, deps.ThrottleScope, email, ip); rerr != nil {
				deps.Warn(ctx, rerr, "sign-in throttle record failed")
			}
		}
		return nil, err
	}

	principal, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			deps.MetricInc(deps.Metrics.StoreFailure)
			deps.MetricInc(deps.Metrics.Failure)
			return nil, unavailable(err)
		}
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return fail("", deps.Errors.InvalidCredentials)
	}

	ok, err := deps.VerifyPassword(password, principal.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			deps.Warn(ctx, err, "password verification failed")
		}
		return fail(principal.ID, deps.Errors.InvalidCredentials)
	}

	pair, err := RunIssue(ctx, principal.ID, deps.Issue)
	if err != nil {
		deps.MetricInc(deps.Metrics.StoreFailure)
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, principal.ID, err, nil)
		if errors.Is(err, errIssueNotReady) {
			return nil, deps.Errors.EngineNotReady
		}
		return nil, err
	}
	deps.MetricInc(deps.Metrics.Written)
	deps.MetricInc(deps.Metrics.Written)

	if deps.Throttle != nil {
		if err := deps.Throttle.Reset(ctx, deps.ThrottleScope, email); err != nil {
			deps.Warn(ctx, err, "sign-in throttle reset failed")
		}
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, principal.ID, nil, nil)

	return &SignInResult{Principal: principal, Tokens: pair}, nil
}
