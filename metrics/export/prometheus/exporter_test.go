package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func scrape(t *testing.T, exp *PrometheusExporter) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(exp); n != 0 {
		t.Fatalf("expected no metrics for disabled engine, got %d", n)
	}
}

func TestCounterAndHistogramExposition(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricTokenTheftDetected: 7,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricGetSessionLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[goSession.MetricID]float64{
				goSession.MetricGetSessionLatency: 1.5,
			},
		},
		dropped: 2,
	})

	out := scrape(t, exp)
	for _, want := range []string{
		"gosession_token_theft_detected_total 7",
		`gosession_get_session_latency_seconds_bucket{le="0.005"} 1`,
		`gosession_get_session_latency_seconds_bucket{le="+Inf"} 36`,
		"gosession_get_session_latency_seconds_sum 1.5",
		"gosession_get_session_latency_seconds_count 36",
		"gosession_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gosession_refresh_latency_seconds") {
		t.Fatalf("histogram without snapshot data must be omitted, got:\n%s", out)
	}
}

func TestAuditDroppedCounter(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{},
		dropped:  3,
	})

	expected := `
# HELP gosession_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE gosession_audit_dropped_total counter
gosession_audit_dropped_total 3
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected), "gosession_audit_dropped_total"); err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
}

func BenchmarkCollect(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSessionCreated:  1000,
				goSession.MetricSessionVerified: 40000,
				goSession.MetricRefreshSuccess:  800,
				goSession.MetricRefreshFailure:  10,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricGetSessionLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(exp)
	}
}
