package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Registry holds named metrics and renders them in the Prometheus text
// exposition format. Label pairs are baked into the series name via
// WithLabels, so every label combination is its own series.
type Registry struct {
	mu     sync.RWMutex
	series map[string]any // *Counter, *Gauge, or *Histogram
	meta   map[string]familyMeta
	order  []string // family names in registration order
}

type familyMeta struct {
	kind string // "counter", "gauge", "histogram"
	help string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		series: make(map[string]any),
		meta:   make(map[string]familyMeta),
	}
}

// Counter returns the counter for name, creating it on first use.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.series[name].(*Counter); ok {
		return c
	}
	c := &Counter{}
	r.series[name] = c
	r.register(familyName(name), "counter", help)
	return c
}

// Gauge returns the gauge for name, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.series[name].(*Gauge); ok {
		return g
	}
	g := &Gauge{}
	r.series[name] = g
	r.register(familyName(name), "gauge", help)
	return g
}

// Histogram returns the histogram for name, creating it on first use. A nil
// buckets slice selects DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.series[name].(*Histogram); ok {
		return h
	}
	h := newHistogram(buckets)
	r.series[name] = h
	r.register(familyName(name), "histogram", help)
	return h
}

func (r *Registry) register(family, kind, help string) {
	if _, ok := r.meta[family]; !ok {
		r.order = append(r.order, family)
	}
	m := r.meta[family]
	m.kind = kind
	if help != "" {
		m.help = help
	}
	r.meta[family] = m
}

// WithLabels appends label pairs to a metric name:
// WithLabels("requests_total", "route", "/api/query") renders
// requests_total{route="/api/query"}.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i < len(kvs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kvs[i], kvs[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func familyName(series string) string {
	if i := strings.IndexByte(series, '{'); i != -1 {
		return series[:i]
	}
	return series
}

func seriesLabels(series string) string {
	i := strings.IndexByte(series, '{')
	if i == -1 {
		return ""
	}
	return series[i+1 : len(series)-1]
}

// Render produces the full exposition document.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byFamily := make(map[string][]string, len(r.meta))
	for name := range r.series {
		f := familyName(name)
		byFamily[f] = append(byFamily[f], name)
	}

	var b strings.Builder
	for _, family := range r.order {
		meta := r.meta[family]
		if meta.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", family, meta.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", family, meta.kind)

		names := byFamily[family]
		sort.Strings(names)
		for _, name := range names {
			switch m := r.series[name].(type) {
			case *Counter:
				fmt.Fprintf(&b, "%s %g\n", name, m.Value())
			case *Gauge:
				fmt.Fprintf(&b, "%s %g\n", name, m.Value())
			case *Histogram:
				renderHistogram(&b, family, seriesLabels(name), m)
			}
		}
	}
	return b.String()
}

func renderHistogram(b *strings.Builder, family, labels string, h *Histogram) {
	bounds, counts, sum, total := h.snapshot()
	extra := ""
	if labels != "" {
		extra = "," + labels
	}
	var cumulative uint64
	for i, bound := range bounds {
		cumulative += counts[i]
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"%s} %d\n", family, bound, extra, cumulative)
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"%s} %d\n", family, extra, total)
	wrapped := ""
	if labels != "" {
		wrapped = "{" + labels + "}"
	}
	fmt.Fprintf(b, "%s_sum%s %g\n", family, wrapped, sum)
	fmt.Fprintf(b, "%s_count%s %d\n", family, wrapped, total)
}

// Handler serves the registry as a /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}

// ServeAsync exposes /metrics on its own port in a background goroutine,
// for daemons that have no HTTP surface of their own.
func (r *Registry) ServeAsync(port int, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", r.Handler())
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			logger.Error("metrics server stopped", "port", port, "error", err)
		}
	}()
}
