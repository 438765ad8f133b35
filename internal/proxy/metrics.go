package proxy

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histMinMicros = 1
	histMaxMicros = 3600000000
	histSigFigs   = 3
)

// RoundTripMetrics tracks total exchange durations through the proxy in an
// HDR histogram. This is the proxy's own telemetry and is separate from
// the engine's intercept-overhead aggregates.
type RoundTripMetrics struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewRoundTripMetrics creates an empty round-trip latency tracker.
func NewRoundTripMetrics() *RoundTripMetrics {
	return &RoundTripMetrics{
		hist: hdrhistogram.New(histMinMicros, histMaxMicros, histSigFigs),
	}
}

// Record adds one completed exchange duration.
func (m *RoundTripMetrics) Record(d time.Duration) {
	micros := d.Microseconds()
	if micros < histMinMicros {
		micros = histMinMicros
	}
	if micros > histMaxMicros {
		micros = histMaxMicros
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hist.RecordValue(micros)
}

// LatencyReport summarizes the proxy's round-trip latency distribution.
type LatencyReport struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// Report returns the current distribution summary.
func (m *RoundTripMetrics) Report() LatencyReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.hist.TotalCount()
	if count == 0 {
		return LatencyReport{}
	}

	return LatencyReport{
		Count: count,
		Min:   time.Duration(m.hist.Min()) * time.Microsecond,
		Max:   time.Duration(m.hist.Max()) * time.Microsecond,
		Mean:  time.Duration(m.hist.Mean()) * time.Microsecond,
		P50:   time.Duration(m.hist.ValueAtQuantile(50)) * time.Microsecond,
		P95:   time.Duration(m.hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(m.hist.ValueAtQuantile(99)) * time.Microsecond,
	}
}

// Reset clears the histogram.
func (m *RoundTripMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hist.Reset()
}
