package engine

import (
	"math"
	"sync"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregator_InitialSnapshot(t *testing.T) {
	a := NewAggregator()
	snap := a.Snapshot()

	if snap.TotalExchanges != 0 {
		t.Errorf("TotalExchanges = %d, want 0", snap.TotalExchanges)
	}
	if snap.RequestIntercept.AverageTime != 0 {
		t.Errorf("request AverageTime = %v, want 0 with no exchanges", snap.RequestIntercept.AverageTime)
	}
	if len(snap.HostStats) != 0 {
		t.Errorf("HostStats has %d hosts, want 0", len(snap.HostStats))
	}
}

func TestAggregator_Record(t *testing.T) {
	a := NewAggregator()
	a.AddExchange()
	a.AddExchange()

	a.Record(PhaseRequestIntercept, "example.com", 10*time.Millisecond)
	a.Record(PhaseRequestIntercept, "example.com", 30*time.Millisecond)
	a.Record(PhaseResponseIntercept, "example.com", 20*time.Millisecond)

	snap := a.Snapshot()

	if !almostEqual(snap.RequestIntercept.TotalTime, 0.040) {
		t.Errorf("request TotalTime = %v, want 0.040", snap.RequestIntercept.TotalTime)
	}
	if !almostEqual(snap.RequestIntercept.AverageTime, 0.020) {
		t.Errorf("request AverageTime = %v, want 0.020", snap.RequestIntercept.AverageTime)
	}
	if !almostEqual(snap.TotalInterceptTime, 0.060) {
		t.Errorf("TotalInterceptTime = %v, want 0.060", snap.TotalInterceptTime)
	}

	host, ok := snap.HostStats["example.com"]
	if !ok {
		t.Fatal("missing host record for example.com")
	}
	if host.Requests != 2 {
		t.Errorf("Requests = %d, want 2", host.Requests)
	}
	if !almostEqual(host.RequestIntercept.AverageOverhead, 0.020) {
		t.Errorf("request AverageOverhead = %v, want 0.020", host.RequestIntercept.AverageOverhead)
	}
	if !almostEqual(host.RequestIntercept.MinOverhead, 0.010) {
		t.Errorf("request MinOverhead = %v, want 0.010", host.RequestIntercept.MinOverhead)
	}
	if !almostEqual(host.RequestIntercept.MaxOverhead, 0.030) {
		t.Errorf("request MaxOverhead = %v, want 0.030", host.RequestIntercept.MaxOverhead)
	}
	if host.ResponseIntercept.Count != 1 {
		t.Errorf("response Count = %d, want 1", host.ResponseIntercept.Count)
	}
}

func TestAggregator_ZeroSamplePhaseReportsZero(t *testing.T) {
	a := NewAggregator()
	a.AddExchange()
	a.Record(PhaseRequestIntercept, "example.com", 10*time.Millisecond)

	host := a.Snapshot().HostStats["example.com"]
	resp := host.ResponseIntercept
	if resp.Count != 0 || resp.AverageOverhead != 0 || resp.MinOverhead != 0 || resp.MaxOverhead != 0 {
		t.Errorf("zero-sample phase = %+v, want all zero", resp)
	}
}

// Running min/max must match a naive recomputation over the full sample
// sequence.
func TestAggregator_ExtremaMatchNaiveRecompute(t *testing.T) {
	durations := []time.Duration{
		42 * time.Millisecond,
		7 * time.Millisecond,
		130 * time.Millisecond,
		7 * time.Millisecond,
		99 * time.Millisecond,
		3 * time.Millisecond,
		250 * time.Millisecond,
		61 * time.Millisecond,
	}

	a := NewAggregator()
	wantMin, wantMax := durations[0], durations[0]
	var wantSum time.Duration
	for _, d := range durations {
		a.Record(PhaseRequestIntercept, "host.test", d)
		if d < wantMin {
			wantMin = d
		}
		if d > wantMax {
			wantMax = d
		}
		wantSum += d
	}

	got := a.Snapshot().HostStats["host.test"].RequestIntercept
	if got.Count != int64(len(durations)) {
		t.Errorf("Count = %d, want %d", got.Count, len(durations))
	}
	if !almostEqual(got.MinOverhead, wantMin.Seconds()) {
		t.Errorf("MinOverhead = %v, want %v", got.MinOverhead, wantMin.Seconds())
	}
	if !almostEqual(got.MaxOverhead, wantMax.Seconds()) {
		t.Errorf("MaxOverhead = %v, want %v", got.MaxOverhead, wantMax.Seconds())
	}
	wantAvg := wantSum.Seconds() / float64(len(durations))
	if !almostEqual(got.AverageOverhead, wantAvg) {
		t.Errorf("AverageOverhead = %v, want %v", got.AverageOverhead, wantAvg)
	}
}

func TestAggregator_Reset(t *testing.T) {
	a := NewAggregator()
	a.AddExchange()
	a.Record(PhaseRequestIntercept, "example.com", 10*time.Millisecond)
	a.Record(PhaseResponseIntercept, "example.com", 20*time.Millisecond)

	a.Reset()
	snap := a.Snapshot()

	if snap.TotalExchanges != 0 {
		t.Errorf("TotalExchanges = %d, want 0 after Reset", snap.TotalExchanges)
	}
	if snap.TotalInterceptTime != 0 {
		t.Errorf("TotalInterceptTime = %v, want 0 after Reset", snap.TotalInterceptTime)
	}
	if len(snap.HostStats) != 0 {
		t.Errorf("HostStats has %d hosts, want 0 after Reset", len(snap.HostStats))
	}
}

func TestAggregator_ConcurrentRecord(t *testing.T) {
	const (
		goroutines = 16
		perWorker  = 200
	)

	a := NewAggregator()

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				a.AddExchange()
				a.Record(PhaseRequestIntercept, "example.com", time.Millisecond)
				a.Record(PhaseResponseIntercept, "example.com", 2*time.Millisecond)
			}
		}()
	}
	wg.Wait()

	snap := a.Snapshot()
	wantCount := int64(goroutines * perWorker)

	if snap.TotalExchanges != wantCount {
		t.Errorf("TotalExchanges = %d, want %d", snap.TotalExchanges, wantCount)
	}

	host := snap.HostStats["example.com"]
	if host.RequestIntercept.Count != wantCount {
		t.Errorf("request Count = %d, want %d", host.RequestIntercept.Count, wantCount)
	}
	if !almostEqual(snap.RequestIntercept.TotalTime, float64(wantCount)*0.001) {
		t.Errorf("request TotalTime = %v, want %v", snap.RequestIntercept.TotalTime, float64(wantCount)*0.001)
	}
	if !almostEqual(snap.ResponseIntercept.TotalTime, float64(wantCount)*0.002) {
		t.Errorf("response TotalTime = %v, want %v", snap.ResponseIntercept.TotalTime, float64(wantCount)*0.002)
	}
	if !almostEqual(host.RequestIntercept.MinOverhead, 0.001) || !almostEqual(host.RequestIntercept.MaxOverhead, 0.001) {
		t.Errorf("request extrema = (%v, %v), want (0.001, 0.001)",
			host.RequestIntercept.MinOverhead, host.RequestIntercept.MaxOverhead)
	}
}
