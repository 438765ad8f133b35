package engine

import (
	"sync"
	"time"
)

// Phase identifies which intercept stage a completed interval belongs to.
type Phase string

const (
	// PhaseRequestIntercept is the pause before a request is forwarded upstream.
	PhaseRequestIntercept Phase = "request_intercept"

	// PhaseResponseIntercept is the pause before a response is returned downstream.
	PhaseResponseIntercept Phase = "response_intercept"
)

// runningStats folds samples into count/sum/min/max without retaining them.
// The average is derived on demand from sum/count rather than updated
// incrementally, so it carries no compounding floating-point drift.
type runningStats struct {
	count int64
	sum   time.Duration
	min   time.Duration
	max   time.Duration
}

func (s *runningStats) add(d time.Duration) {
	if s.count == 0 || d < s.min {
		s.min = d
	}
	if s.count == 0 || d > s.max {
		s.max = d
	}
	s.count++
	s.sum += d
}

// stats converts the running values to the snapshot form. A phase with no
// samples reports average/min/max as 0, matching the zero-exchange
// convention of the global averages.
func (s *runningStats) stats() PhaseStats {
	ps := PhaseStats{Count: s.count}
	if s.count > 0 {
		ps.AverageOverhead = s.sum.Seconds() / float64(s.count)
		ps.MinOverhead = s.min.Seconds()
		ps.MaxOverhead = s.max.Seconds()
	}
	return ps
}

type hostRecord struct {
	request  runningStats
	response runningStats
}

func (h *hostRecord) phase(p Phase) *runningStats {
	if p == PhaseResponseIntercept {
		return &h.response
	}
	return &h.request
}

// Aggregator maintains running intercept-overhead statistics, globally and
// per destination host, over the process lifetime. Individual samples are
// never retained, so memory is bounded by the number of distinct hosts.
type Aggregator struct {
	mu                sync.RWMutex
	totalExchanges    int64
	totalRequestTime  time.Duration
	totalResponseTime time.Duration
	hosts             map[string]*hostRecord
}

// NewAggregator creates an aggregator with all statistics at zero.
func NewAggregator() *Aggregator {
	return &Aggregator{hosts: make(map[string]*hostRecord)}
}

// AddExchange increments the global exchange counter. Called exactly once
// per exchange arrival.
func (a *Aggregator) AddExchange() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalExchanges++
}

// Record folds one completed interval into the per-host and global
// aggregates for phase. The caller guarantees d is non-negative.
func (a *Aggregator) Record(phase Phase, host string, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if phase == PhaseResponseIntercept {
		a.totalResponseTime += d
	} else {
		a.totalRequestTime += d
	}

	rec, ok := a.hosts[host]
	if !ok {
		rec = &hostRecord{}
		a.hosts[host] = rec
	}
	rec.phase(phase).add(d)
}

// Snapshot returns an independent point-in-time view of the aggregates.
// Global averages divide by the exchange count and are 0 when no exchange
// has arrived.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{
		TotalExchanges: a.totalExchanges,
		RequestIntercept: PhaseTotals{
			TotalTime: a.totalRequestTime.Seconds(),
		},
		ResponseIntercept: PhaseTotals{
			TotalTime: a.totalResponseTime.Seconds(),
		},
		TotalInterceptTime: (a.totalRequestTime + a.totalResponseTime).Seconds(),
		HostStats:          make(map[string]HostStats, len(a.hosts)),
	}

	if a.totalExchanges > 0 {
		n := float64(a.totalExchanges)
		snap.RequestIntercept.AverageTime = snap.RequestIntercept.TotalTime / n
		snap.ResponseIntercept.AverageTime = snap.ResponseIntercept.TotalTime / n
	}

	for host, rec := range a.hosts {
		snap.HostStats[host] = HostStats{
			Requests:          rec.request.count,
			RequestIntercept:  rec.request.stats(),
			ResponseIntercept: rec.response.stats(),
		}
	}

	return snap
}

// Reset clears every counter, sum and per-host record back to the initial
// state.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalExchanges = 0
	a.totalRequestTime = 0
	a.totalResponseTime = 0
	a.hosts = make(map[string]*hostRecord)
}
