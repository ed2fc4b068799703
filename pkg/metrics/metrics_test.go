package metrics

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Add(2.5)
	c.Add(-1) // ignored
	if got := c.Value(); got != 3.5 {
		t.Errorf("counter = %g, want 3.5", got)
	}
}

func TestCounterConcurrent(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	if got := c.Value(); got != 5000 {
		t.Errorf("counter = %g, want 5000", got)
	}
}

func TestGauge(t *testing.T) {
	var g Gauge
	g.Set(10)
	g.Inc()
	g.Dec()
	g.Dec()
	if got := g.Value(); got != 9 {
		t.Errorf("gauge = %g, want 9", got)
	}
}

func TestHistogram(t *testing.T) {
	h := newHistogram([]float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.Observe(50) // beyond last bound, only counted in +Inf
	if h.Count() != 4 {
		t.Errorf("count = %d, want 4", h.Count())
	}
	_, counts, sum, total := h.snapshot()
	if counts[0] != 1 || counts[1] != 1 || counts[2] != 1 {
		t.Errorf("bucket counts = %v", counts)
	}
	if sum != 55.55 || total != 4 {
		t.Errorf("sum=%g total=%d", sum, total)
	}
}

func TestRegistryRender(t *testing.T) {
	r := NewRegistry()
	r.Counter("ingest_records_total", "Records ingested.").Add(7)
	r.Gauge("vector_index_size", "Entries in the vector index.").Set(42)
	r.Histogram("query_seconds", "Query latency.", []float64{0.1, 1}).Observe(0.05)

	out := r.Render()
	for _, want := range []string{
		"# HELP ingest_records_total Records ingested.",
		"# TYPE ingest_records_total counter",
		"ingest_records_total 7",
		"# TYPE vector_index_size gauge",
		"vector_index_size 42",
		"# TYPE query_seconds histogram",
		`query_seconds_bucket{le="0.1"} 1`,
		`query_seconds_bucket{le="+Inf"} 1`,
		"query_seconds_sum 0.05",
		"query_seconds_count 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q\n%s", want, out)
		}
	}
}

func TestRegistryLabeledSeries(t *testing.T) {
	r := NewRegistry()
	r.Counter(WithLabels("http_requests_total", "route", "/api/query"), "HTTP requests.").Inc()
	r.Counter(WithLabels("http_requests_total", "route", "/api/quotations"), "").Add(2)

	out := r.Render()
	if !strings.Contains(out, `http_requests_total{route="/api/query"} 1`) {
		t.Errorf("labeled series missing:\n%s", out)
	}
	if !strings.Contains(out, `http_requests_total{route="/api/quotations"} 2`) {
		t.Errorf("labeled series missing:\n%s", out)
	}
	if strings.Count(out, "# TYPE http_requests_total counter") != 1 {
		t.Errorf("family header must render once:\n%s", out)
	}
}

func TestRegistrySameSeriesReturnsSameMetric(t *testing.T) {
	r := NewRegistry()
	a := r.Counter("x_total", "")
	b := r.Counter("x_total", "")
	if a != b {
		t.Error("same name must return the same counter")
	}
}

func TestWithLabels(t *testing.T) {
	if got := WithLabels("m", "a", "1", "b", "2"); got != `m{a="1",b="2"}` {
		t.Errorf("got %q", got)
	}
	if got := WithLabels("m", "odd"); got != "m" {
		t.Errorf("odd kvs must return the bare name, got %q", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.Counter("up_total", "").Inc()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "up_total 1") {
		t.Errorf("body %q", rec.Body.String())
	}
}
