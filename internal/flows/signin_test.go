package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/handleAuth/identity"
	"github.com/MrEthical07/handleAuth/internal/mocks"
	"github.com/MrEthical07/handleAuth/internal/rate"
	"go.uber.org/mock/gomock"
)

const tenant = "0f1e2d3c-4b5a-4978-8a6b-5c4d3e2f1a0b"

var (
	errBadCredentials = errors.New("invalid credentials")
	errThrottled      = errors.New("throttled")
)

// stubThrottle records calls and returns the configured check error.
type stubThrottle struct {
	checkErr error
	failures []string
	resets   []string
}

func (s *stubThrottle) CheckSignIn(_ context.Context, _, _, _ string) error { return s.checkErr }

func (s *stubThrottle) RecordFailure(_ context.Context, scope, email, ip string) error {
	s.failures = append(s.failures, scope+"|"+email+"|"+ip)
	return nil
}

func (s *stubThrottle) Reset(_ context.Context, scope, email string) error {
	s.resets = append(s.resets, scope+"|"+email)
	return nil
}

type signInFixture struct {
	repo     *mocks.MockRepository
	throttle *stubThrottle
	metrics  metricLog
	events   []string
	verified []string
	deps     SignInDeps
}

func newSignInFixture(t *testing.T, ctrl *gomock.Controller) *signInFixture {
	t.Helper()
	f := &signInFixture{
		repo:     mocks.NewMockRepository(ctrl),
		throttle: &stubThrottle{},
		metrics:  metricLog{},
	}
	f.deps = SignInDeps{
		ThrottleScope: "officeUser:" + tenant,
		DummyHash:     "dummy-hash",
		ClientIP:      func(context.Context) string { return "203.0.113.4" },
		FindByEmail: func(ctx context.Context, email string) (identity.Principal, error) {
			return f.repo.FindByEmail(ctx, tenant, email)
		},
		VerifyPassword: func(password, hash string) (bool, error) {
			f.verified = append(f.verified, hash)
			return password == "secret123" && hash == "stored-hash", nil
		},
		Throttle:  f.throttle,
		MetricInc: f.metrics.inc,
		EmitAudit: func(_ context.Context, event string, _ bool, _ string, _ error, _ func() map[string]string) {
			f.events = append(f.events, event)
		},
		Metrics: SignInMetrics{Success: 1, Failure: 2, RateLimited: 3, Written: 4, StoreFailure: 5},
		Events:  SignInEvents{Success: "ok", Failure: "fail", RateLimited: "limited"},
		Errors: SignInErrors{
			EngineNotReady:     errors.New("not ready"),
			InvalidCredentials: errBadCredentials,
			RateLimited:        errThrottled,
			Unavailable:        tagged(errUnavailable),
		},
	}
	return f
}

func TestSignInUnknownEmailCostsAVerification(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newSignInFixture(t, ctrl)
	f.repo.EXPECT().FindByEmail(gomock.Any(), tenant, "ghost@x.com").Return(identity.Principal{}, identity.ErrNotFound)

	_, err := RunSignIn(context.Background(), "  ghost@x.com ", "secret123", f.deps)
	if !errors.Is(err, errBadCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if len(f.verified) != 1 || f.verified[0] != "dummy-hash" {
		t.Fatalf("dummy hash not verified: %v", f.verified)
	}
	if len(f.throttle.failures) != 1 || f.throttle.failures[0] != "officeUser:"+tenant+"|ghost@x.com|203.0.113.4" {
		t.Fatalf("failure not recorded: %v", f.throttle.failures)
	}
	if f.metrics[2] != 1 || len(f.events) != 1 || f.events[0] != "fail" {
		t.Fatalf("metrics=%v events=%v", f.metrics, f.events)
	}
}

func TestSignInWrongPasswordMatchesUnknownEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newSignInFixture(t, ctrl)
	f.repo.EXPECT().FindByEmail(gomock.Any(), tenant, "bob@x.com").
		Return(identity.Principal{ID: pid, TenantID: tenant, PasswordHash: "stored-hash"}, nil)

	_, err := RunSignIn(context.Background(), "bob@x.com", "wrong-password", f.deps)
	if !errors.Is(err, errBadCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if len(f.throttle.resets) != 0 {
		t.Fatal("failed sign-in reset the throttle")
	}
}

func TestSignInRepositoryOutageIsNotACredentialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newSignInFixture(t, ctrl)
	f.repo.EXPECT().FindByEmail(gomock.Any(), tenant, gomock.Any()).Return(identity.Principal{}, errors.New("conn reset"))

	_, err := RunSignIn(context.Background(), "bob@x.com", "secret123", f.deps)
	if !errors.Is(err, errUnavailable) || errors.Is(err, errBadCredentials) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if len(f.throttle.failures) != 0 {
		t.Fatal("outage counted against the throttle")
	}
	if f.metrics[5] != 1 {
		t.Fatalf("store failure not counted: %v", f.metrics)
	}
}

func TestSignInThrottled(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newSignInFixture(t, ctrl)
	f.throttle.checkErr = rate.ErrRateLimited

	_, err := RunSignIn(context.Background(), "bob@x.com", "secret123", f.deps)
	if !errors.Is(err, errThrottled) {
		t.Fatalf("expected throttled, got %v", err)
	}
	if len(f.verified) != 0 || f.metrics[3] != 1 {
		t.Fatalf("throttled sign-in still verified=%v metrics=%v", f.verified, f.metrics)
	}
}

func TestSignInThrottleOutageDoesNotBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newSignInFixture(t, ctrl)
	f.throttle.checkErr = rate.ErrRedisUnavailable
	f.repo.EXPECT().FindByEmail(gomock.Any(), tenant, "bob@x.com").Return(identity.Principal{}, identity.ErrNotFound)

	var warned bool
	f.deps.Warn = func(context.Context, error, string) { warned = true }

	if _, err := RunSignIn(context.Background(), "bob@x.com", "secret123", f.deps); !errors.Is(err, errBadCredentials) {
		t.Fatalf("expected sign-in to proceed to credentials, got %v", err)
	}
	if !warned {
		t.Fatal("throttle outage not logged")
	}
}

func TestSignInSuccessIssuesAndResets(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newSignInFixture(t, ctrl)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.deps.Issue = issueDeps(store)
	f.deps.Issue.TenantID = tenant

	principal := identity.Principal{ID: pid, TenantID: tenant, Email: "bob@x.com", PasswordHash: "stored-hash"}
	f.repo.EXPECT().FindByEmail(gomock.Any(), tenant, "bob@x.com").Return(principal, nil)

	res, err := RunSignIn(context.Background(), "bob@x.com", "secret123", f.deps)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if res.Principal.ID != pid || res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.throttle.resets) != 1 || f.throttle.resets[0] != "officeUser:"+tenant+"|bob@x.com" {
		t.Fatalf("throttle not reset: %v", f.throttle.resets)
	}
	if f.metrics[1] != 1 || f.metrics[4] != 2 {
		t.Fatalf("metrics %v", f.metrics)
	}
}
