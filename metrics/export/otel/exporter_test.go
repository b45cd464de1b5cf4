package otel

import (
	"context"
	"sync"
	"testing"

	handleAuth "github.com/MrEthical07/handleAuth"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type stubSource struct {
	mu       sync.Mutex
	counters map[handleAuth.MetricID]uint64
	latency  []uint64
	dropped  uint64
}

func (s *stubSource) MetricsSnapshot() handleAuth.MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := handleAuth.MetricsSnapshot{
		Counters:   make(map[handleAuth.MetricID]uint64, len(s.counters)),
		Histograms: map[handleAuth.MetricID][]uint64{},
	}
	for id, v := range s.counters {
		snap.Counters[id] = v
	}
	if s.latency != nil {
		snap.Histograms[handleAuth.MetricAuthenticateLatency] = append([]uint64(nil), s.latency...)
	}
	return snap
}

func (s *stubSource) AuditDropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *stubSource) set(id handleAuth.MetricID, v uint64) {
	s.mu.Lock()
	s.counters[id] = v
	s.mu.Unlock()
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// point returns the value of metric name whose attributes contain every
// pair in want.
func point(rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) (int64, bool) {
	match := func(set attribute.Set) bool {
		for _, kv := range want {
			if v, ok := set.Value(kv.Key); !ok || v != kv.Value {
				return false
			}
		}
		return true
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			}
		}
	}
	return 0, false
}

func newExporter(t *testing.T, src MetricsSource, opts ...Option) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exp, err := NewExporterFromSource(provider.Meter("handleauth-test"), src, opts...)
	if err != nil {
		t.Fatalf("NewExporterFromSource: %v", err)
	}
	t.Cleanup(func() {
		if err := exp.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return reader
}

func TestExporterObservesCountersAndLatency(t *testing.T) {
	src := &stubSource{
		counters: map[handleAuth.MetricID]uint64{
			handleAuth.MetricSignInSuccess:       3,
			handleAuth.MetricAuthenticateExpired: 2,
		},
		latency: []uint64{4, 0, 1, 0, 0, 0, 0, 1},
		dropped: 5,
	}
	rm := collect(t, newExporter(t, src))

	for name, want := range map[string]int64{
		"handleauth_sign_in_success_total":              3,
		"handleauth_authenticate_expired_total":         2,
		"handleauth_sign_out_total":                     0,
		"handleauth_audit_dropped_total":                5,
		"handleauth_authenticate_latency_seconds_count": 6,
	} {
		if got, ok := point(rm, name); !ok || got != want {
			t.Errorf("%s = %d (found=%v), want %d", name, got, ok, want)
		}
	}

	for le, want := range map[string]int64{"0.005": 4, "0.01": 4, "0.025": 5, "0.5": 5, "+Inf": 6} {
		got, ok := point(rm, "handleauth_authenticate_latency_seconds_bucket", attribute.String("le", le))
		if !ok || got != want {
			t.Errorf("bucket le=%s = %d (found=%v), want %d", le, got, ok, want)
		}
	}
}

func TestExporterAttachesCommonAttributes(t *testing.T) {
	src := &stubSource{counters: map[handleAuth.MetricID]uint64{handleAuth.MetricSignOut: 1}}
	instance := attribute.String("instance", "api-1")
	rm := collect(t, newExporter(t, src, WithAttributes(instance)))

	if got, ok := point(rm, "handleauth_sign_out_total", instance); !ok || got != 1 {
		t.Fatalf("sign out with instance = %d (found=%v)", got, ok)
	}
	if _, ok := point(rm, "handleauth_authenticate_latency_seconds_bucket", instance, attribute.String("le", "0.1")); !ok {
		t.Fatal("bucket gauge lost the common attribute")
	}
}

func TestExporterFollowsSource(t *testing.T) {
	src := &stubSource{counters: map[handleAuth.MetricID]uint64{}}
	reader := newExporter(t, src)

	src.set(handleAuth.MetricTokensRevoked, 7)
	if got, _ := point(collect(t, reader), "handleauth_tokens_revoked_total"); got != 7 {
		t.Fatalf("first collect = %d", got)
	}
	src.set(handleAuth.MetricTokensRevoked, 9)
	if got, _ := point(collect(t, reader), "handleauth_tokens_revoked_total"); got != 9 {
		t.Fatalf("second collect = %d", got)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("handleauth-test")

	if _, err := NewExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("nil source: %v", err)
	}
	if _, err := NewExporterFromSource(nil, &stubSource{}); err != ErrNilMeter {
		t.Fatalf("nil meter: %v", err)
	}
	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("nil engine: %v", err)
	}
	var e *Exporter
	if err := e.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestExporterConcurrentCollect(t *testing.T) {
	src := &stubSource{counters: map[handleAuth.MetricID]uint64{}}
	reader := newExporter(t, src)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.set(handleAuth.MetricAuthenticateSuccess, uint64(i))
			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}()
	}
	wg.Wait()
}
