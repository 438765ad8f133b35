package engine

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Logger is the minimal logging surface the engine needs. A
// zap.SugaredLogger satisfies it directly.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}

// Engine ties the timing ledger to the overhead aggregator and exposes the
// lifecycle callbacks an intercepting pipeline drives.
//
// One engine instance is constructed, injected into the pipeline, and owns
// all accounting state; there are no package-level globals.
type Engine struct {
	clock  clock.Clock
	log    Logger
	ledger *Ledger
	agg    *Aggregator

	sweepInterval time.Duration
	maxEntryAge   time.Duration

	sweepCtx    context.Context
	sweepCancel context.CancelFunc
	sweepWg     sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Tests inject a mock clock; the default
// is the real clock, whose readings carry Go's monotonic component so
// computed intervals cannot go negative under wall-clock adjustment.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) { e.clock = clk }
}

// WithLogger sets the telemetry sink for per-phase overhead lines.
func WithLogger(log Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithSweep configures the background eviction of stalled ledger entries:
// every interval, entries older than maxAge are dropped.
func WithSweep(interval, maxAge time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = interval
		e.maxEntryAge = maxAge
	}
}

// New creates an engine with all statistics at zero. Start must be called
// to run the background sweeper.
func New(opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		clock:         clock.New(),
		log:           nopLogger{},
		sweepInterval: time.Minute,
		maxEntryAge:   5 * time.Minute,
		sweepCtx:      ctx,
		sweepCancel:   cancel,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.ledger = NewLedger(e.clock)
	e.agg = NewAggregator()

	return e
}

// ExchangeArrived begins tracking an exchange. It must be the first
// lifecycle call for id; it counts the exchange exactly once and creates
// the ledger entry, overwriting any stale entry under the same id.
func (e *Engine) ExchangeArrived(id string) {
	e.ledger.Track(id)
	e.agg.AddExchange()
}

// RequestInterceptStarted marks the start of the request inspection pause.
// No-op for untracked exchanges.
func (e *Engine) RequestInterceptStarted(id string) {
	e.ledger.MarkStart(id, keyRequestInterceptStart)
}

// RequestForwarded marks the end of the request inspection pause, as the
// request leaves for host. If the start transition fired, the interval is
// recorded against host; otherwise nothing is emitted.
func (e *Engine) RequestForwarded(id, host string) {
	e.closePhase(id, host, PhaseRequestIntercept, keyRequestInterceptStart, keyRequestInterceptEnd)
}

// ResponseInterceptStarted marks the start of the response inspection
// pause. No-op for untracked exchanges.
func (e *Engine) ResponseInterceptStarted(id string) {
	e.ledger.MarkStart(id, keyResponseInterceptStart)
}

// ExchangeCompleted marks the end of the response inspection pause and
// retires the exchange. The ledger entry is dropped unconditionally, even
// when the response phase produced no sample: completion is the only
// per-exchange deletion path.
func (e *Engine) ExchangeCompleted(id, host string) {
	e.closePhase(id, host, PhaseResponseIntercept, keyResponseInterceptStart, keyResponseInterceptEnd)
	e.ledger.Drop(id)
}

func (e *Engine) closePhase(id, host string, phase Phase, startKey, endKey string) {
	d, ok := e.ledger.CloseInterval(id, startKey, endKey)
	if !ok {
		return
	}
	if d < 0 {
		// Only reachable with a non-monotonic clock source.
		e.log.Warnf("discarding negative %s interval for %s: %v", phase, host, d)
		return
	}

	e.agg.Record(phase, host, d)
	e.log.Infof("%s overhead for %s: %.3fs", phase, host, d.Seconds())
}

// Snapshot returns a point-in-time view of the aggregates.
func (e *Engine) Snapshot() Snapshot {
	snap := e.agg.Snapshot()
	snap.Timestamp = e.clock.Now()
	return snap
}

// Reset clears all aggregates and in-flight ledger entries.
func (e *Engine) Reset() {
	e.agg.Reset()
	e.ledger.Clear()
}

// InFlight returns the number of exchanges currently tracked in the
// ledger.
func (e *Engine) InFlight() int {
	return e.ledger.Len()
}

// Start launches the background sweeper that evicts ledger entries whose
// exchange stalled before completion.
func (e *Engine) Start() {
	e.sweepWg.Add(1)
	go e.runSweeper()
}

// Stop shuts down the background sweeper.
func (e *Engine) Stop() {
	e.sweepCancel()
	e.sweepWg.Wait()
}

func (e *Engine) runSweeper() {
	defer e.sweepWg.Done()

	ticker := e.clock.Ticker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.sweepCtx.Done():
			return
		case <-ticker.C:
			if n := e.ledger.Sweep(e.maxEntryAge); n > 0 {
				e.log.Warnf("evicted %d stalled exchange(s) older than %v", n, e.maxEntryAge)
			}
		}
	}
}
