package goSession

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSessionCreated)

	if got := m.Value(MetricSessionCreated); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSessionCreated)
	m.Inc(MetricSessionCreated)
	m.Inc(MetricSessionCreated)

	if got := m.Value(MetricSessionCreated); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricGetSessionLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricGetSessionLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricSessionCreated)
	m.Inc(MetricRefreshFailure)
	m.Inc(MetricRefreshFailure)
	m.Observe(MetricGetSessionLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("expected MetricSessionCreated=1 got %d", snap.Counters[MetricSessionCreated])
	}
	if snap.Counters[MetricRefreshFailure] != 2 {
		t.Fatalf("expected MetricRefreshFailure=2 got %d", snap.Counters[MetricRefreshFailure])
	}
	if len(snap.Histograms[MetricGetSessionLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricGetSessionLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricGetSessionLatency][0])
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Observe(MetricSessionCreated, time.Millisecond)
	m.Observe(MetricRefreshLatency, 3*time.Second)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricSessionCreated]; ok {
		t.Fatalf("counter id must not produce a histogram")
	}
	if snap.Histograms[MetricRefreshLatency][7] != 1 {
		t.Fatalf("expected overflow bucket=1 got %v", snap.Histograms[MetricRefreshLatency])
	}
	if got := snap.HistogramSums[MetricRefreshLatency]; got != 3 {
		t.Fatalf("expected histogram sum 3s, got %v", got)
	}
	if _, ok := snap.Counters[MetricRefreshLatency]; ok {
		t.Fatalf("histogram ids must not appear as counters")
	}
}

func TestEngineMetricsTrackSessionLifecycle(t *testing.T) {
	env := newTestEngine(t, func(c *Config) {
		c.Metrics.Enabled = true
		c.Metrics.EnableLatencyHistograms = true
	})
	ctx := context.Background()

	s := mustCreate(t, env.engine, ctx, "user-1", nil, nil)
	if _, err := env.engine.GetSession(ctx, s.AccessToken().Value, GetSessionOptions{}); err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if _, err := env.engine.RefreshSession(ctx, s.RefreshToken().Value, RefreshOptions{}); err != nil {
		t.Fatalf("RefreshSession failed: %v", err)
	}
	if _, err := env.engine.RefreshSession(ctx, s.RefreshToken().Value, RefreshOptions{}); err == nil {
		t.Fatalf("expected theft")
	}

	snap := env.engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricSessionCreated:     1,
		MetricSessionVerified:    1,
		MetricRefreshSuccess:     1,
		MetricRefreshFailure:     1,
		MetricTokenTheftDetected: 1,
		MetricSessionRevoked:     1,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Fatalf("metric %d: expected %d got %d", id, v, snap.Counters[id])
		}
	}

	var observed uint64
	for _, v := range snap.Histograms[MetricRefreshLatency] {
		observed += v
	}
	if observed != 2 {
		t.Fatalf("expected 2 refresh latency observations, got %d", observed)
	}
}
