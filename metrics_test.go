package handleAuth

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	m.Inc(MetricSignInSuccess)
	m.Observe(MetricAuthenticateLatency, time.Millisecond)

	if got := m.Value(MetricSignInSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if m.LatencyEnabled() {
		t.Fatal("latency must follow Enabled")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot not empty: %+v", snap)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSignOut)
	m.Add(MetricTokensRevoked, 3)
	m.Observe(MetricAuthenticateLatency, time.Millisecond)
	if m.Value(MetricSignOut) != 0 || m.Enabled() {
		t.Fatal("nil metrics must be inert")
	}
}

func TestMetricsAddAndConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 16
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricAuthenticateSuccess)
			}
		}()
	}
	wg.Wait()
	m.Add(MetricTokensRevoked, 7)
	m.Add(MetricTokensRevoked, 0)

	if got, want := m.Value(MetricAuthenticateSuccess), uint64(goroutines*perG); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
	if got := m.Value(MetricTokensRevoked); got != 7 {
		t.Fatalf("expected 7 revoked, got %d", got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
		50 * time.Millisecond,
		90 * time.Millisecond,
		250 * time.Millisecond,
		400 * time.Millisecond,
		2 * time.Second,
	} {
		m.Observe(MetricAuthenticateLatency, d)
	}
	// Only authenticate latency has a histogram.
	m.Observe(MetricSignInSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricSignInSuccess]; ok {
		t.Fatal("unexpected histogram for counter metric")
	}
	if _, ok := snap.Counters[MetricAuthenticateLatency]; ok {
		t.Fatal("latency id must not appear as a counter")
	}
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSignInFailure)

	snap := m.Snapshot()
	m.Inc(MetricSignInFailure)

	if snap.Counters[MetricSignInFailure] != 1 {
		t.Fatalf("snapshot changed after capture: %d", snap.Counters[MetricSignInFailure])
	}
	if len(snap.Counters) != int(metricIDCount)-1 {
		t.Fatalf("expected %d counters, got %d", metricIDCount-1, len(snap.Counters))
	}
}
