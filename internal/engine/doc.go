// Package engine implements the intercept-overhead accounting core.
//
// The engine is driven by an external intercepting pipeline through a fixed
// sequence of lifecycle calls per exchange:
//
//	eng.ExchangeArrived(id)
//	eng.RequestInterceptStarted(id)
//	eng.RequestForwarded(id, host)       // emits the request-intercept sample
//	eng.ResponseInterceptStarted(id)
//	eng.ExchangeCompleted(id, host)      // emits the response-intercept sample
//
// Each call stamps the current clock reading into a per-exchange ledger
// entry. When both endpoints of an intercept phase are known, the elapsed
// interval is folded into running per-host and global aggregates
// (count/sum/min/max, no raw samples retained).
//
// # Tolerance
//
// Lifecycle calls never fail. A call for an untracked exchange, or a
// phase-end without its matching phase-start, is a silent no-op: the
// pipeline sequencing is outside this package's control, and a missed
// transition degrades to "no sample for that exchange" rather than
// corrupting the aggregates.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The ledger is guarded by a
// single mutex (operations are brief map accesses), the aggregator by a
// read-write mutex. Snapshot returns an independent copy.
//
// # Basic Usage
//
//	eng := engine.New()
//	eng.Start()
//	defer eng.Stop()
//
//	// ... pipeline drives lifecycle calls ...
//
//	snap := eng.Snapshot()
//	fmt.Printf("exchanges: %d\n", snap.TotalExchanges)
//	fmt.Printf("request intercept avg: %.3fs\n", snap.RequestIntercept.AverageTime)
package engine
