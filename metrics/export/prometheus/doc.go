// Package prometheus renders handleAuth metrics in the Prometheus text
// exposition format.
//
// Counters are named handleauth_*_total; the authenticate latency histogram is
// handleauth_authenticate_latency_seconds. The exporter reads snapshots on
// demand and never registers anything globally; callers mount Handler.
package prometheus
