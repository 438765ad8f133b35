package engine

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Phase keys recorded in a ledger entry. The arrival key doubles as the
// entry's age reference for sweeping.
const (
	keyArrival                = "arrival"
	keyRequestInterceptStart  = "request_intercept_start"
	keyRequestInterceptEnd    = "request_intercept_end"
	keyResponseInterceptStart = "response_intercept_start"
	keyResponseInterceptEnd   = "response_intercept_end"
)

// Ledger holds per-exchange timestamp records between arrival and
// completion. Entries carry no exchange payload, only named clock readings.
//
// All methods are safe for concurrent use; a single mutex guards the entry
// map since every operation is a brief lookup or insert.
type Ledger struct {
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]map[string]time.Time
}

// NewLedger creates an empty ledger reading time from clk.
func NewLedger(clk clock.Clock) *Ledger {
	return &Ledger{
		clock:   clk,
		entries: make(map[string]map[string]time.Time),
	}
}

// Track creates the entry for id, stamping its arrival time. A stale entry
// under the same id is overwritten, never merged: identifiers are expected
// to be unique per exchange, and reuse must not corrupt state.
func (l *Ledger) Track(id string) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[id] = map[string]time.Time{keyArrival: now}
}

// MarkStart stamps the current time under key for id's entry. Untracked
// ids are ignored: the exchange either never arrived or already completed.
func (l *Ledger) MarkStart(id, key string) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.entries[id]; ok {
		entry[key] = now
	}
}

// CloseInterval stamps endKey and returns the elapsed time since startKey.
// It reports ok=false when the exchange is untracked or startKey was never
// stamped; neither case is an error.
func (l *Ledger) CloseInterval(id, startKey, endKey string) (time.Duration, bool) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return 0, false
	}

	entry[endKey] = now

	start, ok := entry[startKey]
	if !ok {
		return 0, false
	}

	return now.Sub(start), true
}

// Drop removes id's entry. This is the only deletion path besides Sweep;
// a completion handler that skips it leaks the entry for the process
// lifetime.
func (l *Ledger) Drop(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, id)
}

// Sweep evicts entries whose arrival is older than maxAge and returns the
// number evicted. It bounds the memory held by exchanges whose pipeline
// stalled before completion.
func (l *Ledger) Sweep(maxAge time.Duration) int {
	cutoff := l.clock.Now().Add(-maxAge)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for id, entry := range l.entries {
		if entry[keyArrival].Before(cutoff) {
			delete(l.entries, id)
			evicted++
		}
	}
	return evicted
}

// Contains reports whether an entry exists for id.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.entries[id]
	return ok
}

// Len returns the number of in-flight entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Clear removes every entry.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]map[string]time.Time)
}
