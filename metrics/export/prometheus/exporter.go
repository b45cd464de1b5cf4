package prometheus

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	handleAuth "github.com/MrEthical07/handleAuth"
	"github.com/MrEthical07/handleAuth/metrics/export/internaldefs"
)

// MetricsSource is satisfied by *handleAuth.Engine.
type MetricsSource interface {
	MetricsSnapshot() handleAuth.MetricsSnapshot
	AuditDropped() uint64
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithConstLabels adds labels to every sample, such as the instance name.
// Values are escaped; names must already be valid label names.
func WithConstLabels(labels map[string]string) Option {
	return func(e *Exporter) {
		for _, k := range slices.Sorted(maps.Keys(labels)) {
			e.labels = append(e.labels, k+`="`+escapeValue(labels[k])+`"`)
		}
	}
}

// Exporter renders a MetricsSource on every scrape.
type Exporter struct {
	source MetricsSource
	labels []string
}

func NewExporter(engine *handleAuth.Engine, opts ...Option) *Exporter {
	return NewExporterFromSource(engine, opts...)
}

func NewExporterFromSource(source MetricsSource, opts ...Option) *Exporter {
	e := &Exporter{source: source}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handler serves the exposition text for GET and HEAD.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		var buf bytes.Buffer
		_, _ = e.WriteTo(&buf)
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if r.Method == http.MethodGet {
			_, _ = buf.WriteTo(w)
		}
	})
}

// Render returns the exposition text, or "" when metrics are disabled and no
// audit events were dropped.
func (e *Exporter) Render() string {
	var b strings.Builder
	_, _ = e.WriteTo(&b)
	return b.String()
}

// WriteTo writes one scrape to w.
func (e *Exporter) WriteTo(w io.Writer) (int64, error) {
	if e == nil || e.source == nil {
		return 0, nil
	}
	snap := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return 0, nil
	}

	ew := &expoWriter{w: w, labels: e.labels}
	for _, def := range internaldefs.CounterDefs {
		ew.family(def.Name, def.Help, "counter")
		ew.sample(def.Name, "", snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		ew.family(def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			ew.sample(def.Name+"_bucket", `le="`+le+`"`, cum[i])
		}
		ew.sample(def.Name+"_count", "", cum[len(cum)-1])
		// Snapshots hold bucket counts only, so the sum is not tracked.
		ew.sample(def.Name+"_sum", "", 0)
	}
	ew.family(internaldefs.AuditDropped.Name, internaldefs.AuditDropped.Help, "counter")
	ew.sample(internaldefs.AuditDropped.Name, "", dropped)
	return ew.n, ew.err
}

// expoWriter accumulates the first write error and stops writing after it.
type expoWriter struct {
	w      io.Writer
	labels []string
	n      int64
	err    error
}

func (ew *expoWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	n, err := fmt.Fprintf(ew.w, format, args...)
	ew.n += int64(n)
	ew.err = err
}

func (ew *expoWriter) family(name, help, kind string) {
	ew.printf("# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func (ew *expoWriter) sample(name, extra string, v uint64) {
	labels := ew.labels
	if extra != "" {
		labels = append(slices.Clip(labels), extra)
	}
	if len(labels) == 0 {
		ew.printf("%s %d\n", name, v)
		return
	}
	ew.printf("%s{%s} %d\n", name, strings.Join(labels, ","), v)
}

var (
	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	valueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

func escapeHelp(s string) string  { return helpEscaper.Replace(s) }
func escapeValue(s string) string { return valueEscaper.Replace(s) }
