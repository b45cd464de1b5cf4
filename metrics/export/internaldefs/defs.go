package internaldefs

import (
	handleAuth "github.com/MrEthical07/handleAuth"
)

// CounterDef binds a counter MetricID to its exported name and help text.
type CounterDef struct {
	ID   handleAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram MetricID to its exported name and help text.
type HistogramDef struct {
	ID   handleAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: handleAuth.MetricSignInSuccess, Name: "handleauth_sign_in_success_total", Help: "Sign-ins that issued a token pair."},
	{ID: handleAuth.MetricSignInFailure, Name: "handleauth_sign_in_failure_total", Help: "Rejected sign-in attempts."},
	{ID: handleAuth.MetricSignInRateLimited, Name: "handleauth_sign_in_rate_limited_total", Help: "Sign-in attempts rejected by the throttle."},
	{ID: handleAuth.MetricRefreshSuccess, Name: "handleauth_refresh_success_total", Help: "Refreshes that issued a new token pair."},
	{ID: handleAuth.MetricRefreshFailure, Name: "handleauth_refresh_failure_total", Help: "Refreshes that failed after authentication."},
	{ID: handleAuth.MetricRefreshConsumed, Name: "handleauth_refresh_consumed_total", Help: "Refresh records consumed from the store."},
	{ID: handleAuth.MetricAuthenticateSuccess, Name: "handleauth_authenticate_success_total", Help: "Admitted requests."},
	{ID: handleAuth.MetricAuthenticateInvalid, Name: "handleauth_authenticate_invalid_total", Help: "Requests rejected for a malformed or unverifiable token."},
	{ID: handleAuth.MetricAuthenticateExpired, Name: "handleauth_authenticate_expired_total", Help: "Requests rejected for a missing record or expired token."},
	{ID: handleAuth.MetricSignOut, Name: "handleauth_sign_out_total", Help: "Sign-out operations."},
	{ID: handleAuth.MetricTokensRevoked, Name: "handleauth_tokens_revoked_total", Help: "Token records deleted by sign-out."},
	{ID: handleAuth.MetricRecordsWritten, Name: "handleauth_records_written_total", Help: "Token records written to the store."},
	{ID: handleAuth.MetricStoreFailure, Name: "handleauth_store_failure_total", Help: "Store or identity backend errors."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: handleAuth.MetricAuthenticateLatency, Name: "handleauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds (seconds) of the eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds rendered as metric-name safe suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// AuditDropped describes the counter of audit events lost to dispatcher backpressure.
var AuditDropped = CounterDef{
	Name: "handleauth_audit_dropped_total",
	Help: "Audit events dropped because the dispatcher buffer was full.",
}
