package handleAuth

import (
	"context"
	"testing"
	"time"
)

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricAuthenticateSuccess)
		}
	})
}

func BenchmarkMetricsObserveParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	d := 3 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricAuthenticateLatency, d)
		}
	})
}

func BenchmarkParseAuthorization(b *testing.B) {
	header := "Bearer 5b0b4e3c-8a0e-4c3f-9d7a-1f2e3d4c5b6a:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ParseAuthorization(header); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAuthenticateAccess(b *testing.B) {
	h := newTestHarness(b, testConfig())
	scope := GlobalScope(RoleUser)
	h.addPrincipal(b, scope, "bench@x.com")
	s := h.signIn(b, scope, "bench@x.com")
	header := bearer(s.AccessToken)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.engine.Authenticate(ctx, NamespaceUserAccess, header, ""); err != nil {
			b.Fatal(err)
		}
	}
}
