package otel

import (
	"context"
	"errors"
	"fmt"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/MrEthical07/handleAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("otel: nil meter")
	ErrNilSource = errors.New("otel: nil metrics source")
)

// MetricsSource is satisfied by *handleAuth.Engine.
type MetricsSource interface {
	MetricsSnapshot() handleAuth.MetricsSnapshot
	AuditDropped() uint64
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithAttributes attaches attrs to every observation, typically the
// deployment or instance name.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(e *Exporter) {
		e.common = append(e.common, attrs...)
	}
}

// latency is one engine histogram rendered as a cumulative bucket gauge keyed
// by "le" plus a sample count gauge.
type latency struct {
	id      handleAuth.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	bounds  [8]metric.ObserveOption
}

// Exporter keeps the instruments and callback registration alive until Close.
type Exporter struct {
	source  MetricsSource
	common  []attribute.KeyValue
	base    metric.ObserveOption
	reg     metric.Registration
	counter map[handleAuth.MetricID]metric.Int64ObservableCounter
	latency []latency
	dropped metric.Int64ObservableCounter
}

// NewExporter registers the engine's counters and latency histogram on meter.
func NewExporter(meter metric.Meter, engine *handleAuth.Engine, opts ...Option) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine, opts...)
}

// NewExporterFromSource is NewExporter over any MetricsSource.
func NewExporterFromSource(meter metric.Meter, source MetricsSource, opts ...Option) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:  source,
		counter: make(map[handleAuth.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.base = metric.WithAttributes(e.common...)

	var observables []metric.Observable
	counter := func(name, help string) (metric.Int64ObservableCounter, error) {
		c, err := meter.Int64ObservableCounter(name, metric.WithDescription(help), metric.WithUnit("{event}"))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", name, err)
		}
		observables = append(observables, c)
		return c, nil
	}
	gauge := func(name, help, unit string) (metric.Int64ObservableGauge, error) {
		g, err := meter.Int64ObservableGauge(name, metric.WithDescription(help), metric.WithUnit(unit))
		if err != nil {
			return nil, fmt.Errorf("otel: gauge %s: %w", name, err)
		}
		observables = append(observables, g)
		return g, nil
	}

	for _, def := range internaldefs.CounterDefs {
		c, err := counter(def.Name, def.Help)
		if err != nil {
			return nil, err
		}
		e.counter[def.ID] = c
	}

	for _, def := range internaldefs.HistogramDefs {
		l := latency{id: def.ID}
		var err error
		if l.buckets, err = gauge(def.Name+"_bucket", "Cumulative count of "+def.Help, "{request}"); err != nil {
			return nil, err
		}
		if l.count, err = gauge(def.Name+"_count", "Sample count of "+def.Help, "{request}"); err != nil {
			return nil, err
		}
		for i, le := range internaldefs.HistogramBounds {
			attrs := append([]attribute.KeyValue{attribute.String("le", le)}, e.common...)
			l.bounds[i] = metric.WithAttributes(attrs...)
		}
		e.latency = append(e.latency, l)
	}

	var err error
	if e.dropped, err = counter(internaldefs.AuditDropped.Name, internaldefs.AuditDropped.Help); err != nil {
		return nil, err
	}

	if e.reg, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for id, c := range e.counter {
		o.ObserveInt64(c, int64(snap.Counters[id]), e.base)
	}
	for _, l := range e.latency {
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[l.id]))
		for i, n := range cum {
			o.ObserveInt64(l.buckets, int64(n), l.bounds[i])
		}
		o.ObserveInt64(l.count, int64(cum[len(cum)-1]), e.base)
	}
	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()), e.base)
	return nil
}

// Close unregisters the callback. It is safe to call on a nil Exporter.
func (e *Exporter) Close() error {
	if e == nil || e.reg == nil {
		return nil
	}
	return e.reg.Unregister()
}
