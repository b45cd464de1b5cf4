package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	handleAuth "github.com/MrEthical07/handleAuth"
)

type fakeSource struct {
	snapshot handleAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() handleAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func emptySnapshot() handleAuth.MetricsSnapshot {
	return handleAuth.MetricsSnapshot{
		Counters:   map[handleAuth.MetricID]uint64{},
		Histograms: map[handleAuth.MetricID][]uint64{},
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{snapshot: emptySnapshot()})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndCumulativeHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: handleAuth.MetricsSnapshot{
			Counters: map[handleAuth.MetricID]uint64{
				handleAuth.MetricSignInSuccess: 7,
				handleAuth.MetricTokensRevoked: 4,
			},
			Histograms: map[handleAuth.MetricID][]uint64{
				handleAuth.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE handleauth_sign_in_success_total counter",
		"handleauth_sign_in_success_total 7",
		"handleauth_tokens_revoked_total 4",
		"handleauth_refresh_success_total 0",
		`handleauth_authenticate_latency_seconds_bucket{le="0.005"} 1`,
		`handleauth_authenticate_latency_seconds_bucket{le="+Inf"} 36`,
		"handleauth_authenticate_latency_seconds_count 36",
		"handleauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderOnlyDroppedAuditStillRenders(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{snapshot: emptySnapshot(), dropped: 5})

	if out := exp.Render(); !strings.Contains(out, "handleauth_audit_dropped_total 5") {
		t.Fatalf("expected dropped counter, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: handleAuth.MetricsSnapshot{
			Counters:   map[handleAuth.MetricID]uint64{handleAuth.MetricSignInSuccess: 1},
			Histograms: map[handleAuth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), "handleauth_sign_in_success_total 1") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}

func TestHandlerRejectsPost(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{snapshot: emptySnapshot()})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRenderFromEngine(t *testing.T) {
	m := handleAuth.NewMetrics(handleAuth.MetricsConfig{Enabled: true})
	m.Add(handleAuth.MetricRecordsWritten, 6)

	exp := NewExporterFromSource(fakeSource{snapshot: m.Snapshot()})
	if out := exp.Render(); !strings.Contains(out, "handleauth_records_written_total 6") {
		t.Fatalf("expected records written counter, got:\n%s", out)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: handleAuth.MetricsSnapshot{
			Counters: map[handleAuth.MetricID]uint64{
				handleAuth.MetricSignInSuccess:       1000,
				handleAuth.MetricSignInFailure:       40,
				handleAuth.MetricRefreshSuccess:      800,
				handleAuth.MetricAuthenticateSuccess: 9000,
				handleAuth.MetricRecordsWritten:      3600,
			},
			Histograms: map[handleAuth.MetricID][]uint64{
				handleAuth.MetricAuthenticateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}

func TestConstLabelsPrecedeBucketBound(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: handleAuth.MetricsSnapshot{
			Counters:   map[handleAuth.MetricID]uint64{handleAuth.MetricSignOut: 2},
			Histograms: map[handleAuth.MetricID][]uint64{handleAuth.MetricAuthenticateLatency: {1}},
		},
	}, WithConstLabels(map[string]string{"service": "handleauth", "instance": `api "1"`}))

	out := exp.Render()
	for _, want := range []string{
		`handleauth_sign_out_total{instance="api \"1\"",service="handleauth"} 2`,
		`handleauth_authenticate_latency_seconds_bucket{instance="api \"1\"",service="handleauth",le="0.005"} 1`,
		`handleauth_audit_dropped_total{instance="api \"1\"",service="handleauth"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestHeadOmitsBody(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{snapshot: emptySnapshot(), dropped: 1})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/metrics", nil))

	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("HEAD: code=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Length") == "0" {
		t.Fatal("HEAD should report the GET body length")
	}
}
