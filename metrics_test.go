package goOTP

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricOTPRequested)

	if got := m.Value(MetricOTPRequested); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %d counters", len(snap.Counters))
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
				m.Inc(MetricOTPFailed)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricOTPFailed); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	for _, bound := range HistogramBucketBounds() {
		m.Observe(MetricVerifyLatency, bound)
	}
	m.Observe(MetricVerifyLatency, 700*time.Millisecond)
	m.Observe(MetricOTPRequested, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := m.Snapshot().Histograms[MetricOTPRequested]; ok {
		t.Fatal("only verification latency is histogram-backed")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics must read as zero and disabled")
	}
}
