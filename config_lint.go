package handleAuth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/handleAuth/password"
)

// LintSeverity grades a LintWarning.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintHigh:
		return "high"
	case LintWarn:
		return "warn"
	default:
		return "info"
	}
}

// LintWarning is a configuration choice that is valid but risky.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil
// when there are none. Callers use it to refuse to start on risky settings.
func (r LintResult) AsError(min LintSeverity) error {
	ws := r.BySeverity(min)
	if len(ws) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(ws))
	for _, w := range ws {
		msgs = append(msgs, w.Code+": "+w.Message)
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports valid but questionable settings. It never fails; run Validate
// for hard errors.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > 30*time.Second {
		add("leeway_large", LintWarn, "JWT leeway %s accepts tokens well past expiry", c.JWT.Leeway)
	}
	if c.JWT.Issuer == "" {
		add("issuer_unset", LintInfo, "JWT issuer is not pinned")
	}
	if !c.JWT.RequireIAT {
		add("iat_optional", LintInfo, "tokens without iat are accepted")
	}

	keys := make(map[string]Namespace)
	for _, r := range sortedRoles(c.Roles) {
		rc := c.Roles[r]
		if rc.Access.TTL > time.Hour {
			add("access_ttl_long", LintWarn, "%s TTL %s exceeds 1h", r.Access(), rc.Access.TTL)
		}
		if rc.Refresh.TTL > 30*24*time.Hour {
			add("refresh_ttl_long", LintWarn, "%s TTL %s exceeds 30 days", r.Refresh(), rc.Refresh.TTL)
		}
		if rc.Refresh.TTL > 0 && rc.Refresh.TTL <= rc.Access.TTL {
			add("refresh_not_longer_than_access", LintHigh, "%s TTL is not longer than %s TTL", r.Refresh(), r.Access())
		}
		for ns, k := range map[Namespace][]byte{r.Access(): rc.Access.Key, r.Refresh(): rc.Refresh.Key} {
			if len(k) == 0 {
				continue
			}
			if other, ok := keys[string(k)]; ok && other != ns {
				add("key_shared", LintHigh, "%s and %s share signing key material", other, ns)
				continue
			}
			keys[string(k)] = ns
		}
	}

	if !c.SignInThrottle.Enabled {
		add("sign_in_throttle_disabled", LintWarn, "sign-in attempts are not throttled")
	} else if !c.SignInThrottle.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "sign-in throttle only counts per e-mail")
	}

	if (c.Password.Algorithm == password.AlgorithmBcrypt || c.Password.Algorithm == "") &&
		c.Password.BcryptCost != 0 && c.Password.BcryptCost < 10 {
		add("bcrypt_cost_low", LintWarn, "bcrypt cost %d is below 10", c.Password.BcryptCost)
	}

	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_may_drop", LintInfo, "audit events are dropped when the buffer is full")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", LintInfo, "metrics are disabled")
	}

	return ws
}
