package flows

import (
	"context"
	"strconv"

	"github.com/MrEthical07/handleAuth/session"
)

// SignOutMetrics carries metric IDs needed by the sign-out flow.
type SignOutMetrics struct {
	SignOut      int
	StoreFailure int
}

// SignOutEvents carries audit event names used by the sign-out flow.
type SignOutEvents struct {
	SignOut string
}

// SignOutErrors carries host-level errors returned by the sign-out flow.
type SignOutErrors struct {
	EngineNotReady error
	Unavailable    func(error) error
}

// SignOutDeps captures sign-out dependencies for one scope.
type SignOutDeps struct {
	// Pattern returns the glob covering every record of a principal.
	Pattern func(principalID string) string
	Store   session.Store

	MetricInc func(int)
	// Revoked is told how many records were deleted.
	Revoked   func(n int)
	EmitAudit AuditFunc

	Metrics SignOutMetrics
	Events  SignOutEvents
	Errors  SignOutErrors
}

// RunSignOut deletes every access and refresh record of principalID in one
// batch and returns how many keys matched. No match is not an error. Records
// written between the scan and the delete survive.
func RunSignOut(ctx context.Context, principalID string, deps SignOutDeps) (int, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Revoked == nil {
		deps.Revoked = func(int) {}
	}
	if deps.Pattern == nil || deps.Store == nil {
		return 0, deps.Errors.EngineNotReady
	}
	unavailable := orIdentity(deps.Errors.Unavailable)

	fail := func(err error) (int, error) {
		deps.MetricInc(deps.Metrics.StoreFailure)
		err = unavailable(err)
		deps.EmitAudit(ctx, deps.Events.SignOut, false, principalID, err, nil)
		return 0, err
	}

	keys, err := deps.Store.Keys(ctx, deps.Pattern(principalID))
	if err != nil {
		return fail(err)
	}
	if err := deps.Store.Del(ctx, keys...); err != nil {
		return fail(err)
	}

	deps.MetricInc(deps.Metrics.SignOut)
	deps.Revoked(len(keys))
	deps.EmitAudit(ctx, deps.Events.SignOut, true, principalID, nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(len(keys))}
	})

	return len(keys), nil
}
