// Package otel bridges handleAuth metrics into an OpenTelemetry Meter.
//
// Counters become Int64ObservableCounters. The authenticate latency histogram
// becomes a cumulative "<name>_bucket" gauge with an "le" attribute per bound
// and a "<name>_count" gauge. A single callback reads
// [handleAuth.Engine.MetricsSnapshot] per collection; the caller owns the
// MeterProvider.
package otel
