package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/handleAuth/identity"
)

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	Success      int
	Failure      int
	Written      int
	StoreFailure int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	Success string
	Failure string
}

// RefreshErrors carries host-level errors returned by the refresh flow.
type RefreshErrors struct {
	EngineNotReady    error
	PrincipalNotFound error
	Unavailable       func(error) error
}

// RefreshDeps captures refresh dependencies for one scope.
type RefreshDeps struct {
	FindByID func(ctx context.Context, id string) (identity.Principal, error)
	Issue    IssueDeps

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh re-reads the principal and issues a new pair. The presented
// refresh record has already been consumed by authentication, so this flow
// never touches it.
func RunRefresh(ctx context.Context, principalID string, deps RefreshDeps) (*SignInResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.FindByID == nil {
		return nil, deps.Errors.EngineNotReady
	}
	unavailable := orIdentity(deps.Errors.Unavailable)

	fail := func(err error) (*SignInResult, error) {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, principalID, err, nil)
		return nil, err
	}

	principal, err := deps.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fail(deps.Errors.PrincipalNotFound)
		}
		deps.MetricInc(deps.Metrics.StoreFailure)
		return fail(unavailable(err))
	}

	pair, err := RunIssue(ctx, principal.ID, deps.Issue)
	if err != nil {
		if errors.Is(err, errIssueNotReady) {
			return fail(deps.Errors.EngineNotReady)
		}
		deps.MetricInc(deps.Metrics.StoreFailure)
		return fail(err)
	}
	deps.MetricInc(deps.Metrics.Written)
	deps.MetricInc(deps.Metrics.Written)

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, principal.ID, nil, nil)

	return &SignInResult{Principal: principal, Tokens: pair}, nil
}
