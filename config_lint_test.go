package handleAuth

import (
	"testing"
	"time"
)

func TestLintTestConfigHasNoHighWarnings(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Fatalf("unexpected high warnings: %v", err)
	}
}

func TestLintThrottleDisabled(t *testing.T) {
	cfg := testConfig()
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "sign_in_throttle_disabled") {
		t.Fatalf("expected sign_in_throttle_disabled, got %v", codes)
	}

	cfg.SignInThrottle.Enabled = true
	cfg.SignInThrottle.EnableIPThrottle = false
	codes = cfg.Lint().Codes()
	if containsCode(codes, "sign_in_throttle_disabled") || !containsCode(codes, "ip_throttle_disabled") {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestLintLargeLeeway(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Leeway = 90 * time.Second
	if !containsCode(cfg.Lint().Codes(), "leeway_large") {
		t.Error("expected leeway_large warning")
	}
}

func TestLintLongTTLs(t *testing.T) {
	cfg := testConfig()
	rc := cfg.Roles[RoleUser]
	rc.Access.TTL = 2 * time.Hour
	rc.Refresh.TTL = 60 * 24 * time.Hour
	cfg.Roles[RoleUser] = rc

	codes := cfg.Lint().Codes()
	for _, want := range []string{"access_ttl_long", "refresh_ttl_long"} {
		if !containsCode(codes, want) {
			t.Errorf("expected %s warning", want)
		}
	}
}

func TestLintRefreshNotLongerThanAccessIsHigh(t *testing.T) {
	cfg := testConfig()
	rc := cfg.Roles[RoleOfficeUser]
	rc.Refresh.TTL = rc.Access.TTL
	cfg.Roles[RoleOfficeUser] = rc

	ws := cfg.Lint()
	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "refresh_not_longer_than_access" {
		t.Fatalf("unexpected high warnings %+v", high)
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Fatal("expected AsError(LintHigh) to fail")
	}
}

func TestLintSharedKeyAcrossRoles(t *testing.T) {
	cfg := testConfig()
	rc := cfg.Roles[RoleSuperAdmin]
	rc.Access.Key = cfg.Roles[RoleUser].Access.Key
	cfg.Roles[RoleSuperAdmin] = rc

	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "key_shared") {
		t.Fatalf("expected key_shared, got %v", ws.Codes())
	}
	for _, w := range ws {
		if w.Code == "key_shared" && w.Severity != LintHigh {
			t.Errorf("key_shared should be high, got %s", w.Severity)
		}
	}
}

func TestLintBcryptCostLow(t *testing.T) {
	cfg := testConfig()
	if !containsCode(cfg.Lint().Codes(), "bcrypt_cost_low") {
		t.Error("cost 4 should warn")
	}
	cfg.Password.BcryptCost = 12
	if containsCode(cfg.Lint().Codes(), "bcrypt_cost_low") {
		t.Error("cost 12 should not warn")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
