package handleAuth

import (
	"slices"
	"sync/atomic"
	"time"
)

// MetricID identifies one counter (or the latency histogram) in Metrics.
type MetricID uint16

const (
	// MetricSignInSuccess counts sign-ins that issued a token pair.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts rejected sign-ins, including invalid credentials.
	MetricSignInFailure
	// MetricSignInRateLimited counts sign-ins rejected by the throttle.
	MetricSignInRateLimited
	// MetricRefreshSuccess counts refreshes that issued a new pair.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes that failed after authentication.
	MetricRefreshFailure
	// MetricRefreshConsumed counts refresh records taken out of the store.
	MetricRefreshConsumed
	// MetricAuthenticateSuccess counts admitted requests.
	MetricAuthenticateSuccess
	// MetricAuthenticateInvalid counts malformed or unverifiable handles.
	MetricAuthenticateInvalid
	// MetricAuthenticateExpired counts handles whose record was missing or whose JWT expired.
	MetricAuthenticateExpired
	// MetricSignOut counts sign-out calls.
	MetricSignOut
	// MetricTokensRevoked counts records deleted by sign-out.
	MetricTokensRevoked
	// MetricRecordsWritten counts token records written to the store.
	MetricRecordsWritten
	// MetricStoreFailure counts store or identity backend errors.
	MetricStoreFailure
	// MetricAuthenticateLatency is the authenticate latency histogram.
	MetricAuthenticateLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of all but the last latency
// bucket; the last bucket takes everything slower.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

// counterSlot keeps each counter on its own cache line.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters plus the authenticate latency
// histogram. A nil or disabled Metrics accepts every call and records nothing.
type Metrics struct {
	enabled bool
	latency bool
	counter [metricIDCount]counterSlot
	buckets [histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) { m.Add(id, 1) }

// Add adds n to counter id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if !m.Enabled() || id >= metricIDCount || n == 0 {
		return
	}
	m.counter[id].n.Add(n)
}

// Observe records d. MetricAuthenticateLatency is the only histogram, so any
// other id is ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricAuthenticateLatency {
		return
	}
	m.buckets[bucketFor(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counter[id].n.Load()
}

// Snapshot copies every counter, and the histogram when latency recording is
// on. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := range metricIDCount {
		if id != MetricAuthenticateLatency {
			s.Counters[id] = m.counter[id].n.Load()
		}
	}
	if m.latency {
		h := make([]uint64, histBucketCount)
		for i := range h {
			h[i] = m.buckets[i].Load()
		}
		s.Histograms[MetricAuthenticateLatency] = h
	}
	return s
}

func bucketFor(d time.Duration) int {
	if i := slices.IndexFunc(latencyBounds[:], func(b time.Duration) bool { return d <= b }); i >= 0 {
		return i
	}
	return len(latencyBounds)
}
