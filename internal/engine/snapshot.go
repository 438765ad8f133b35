package engine

import "time"

// Snapshot is a point-in-time view of the intercept-overhead statistics.
// All durations are seconds.
type Snapshot struct {
	// TotalExchanges is the number of exchanges that arrived, whether or
	// not they produced intercept samples.
	TotalExchanges int64 `json:"total_exchanges"`

	// RequestIntercept holds the global request-phase totals.
	RequestIntercept PhaseTotals `json:"request_intercept"`

	// ResponseIntercept holds the global response-phase totals.
	ResponseIntercept PhaseTotals `json:"response_intercept"`

	// TotalInterceptTime is the sum of both phase totals.
	TotalInterceptTime float64 `json:"total_intercept_time"`

	// HostStats contains a record for every host with at least one sample
	// in either phase.
	HostStats map[string]HostStats `json:"host_stats"`

	// Timestamp is when this snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
}

// PhaseTotals holds the global accumulated time for one intercept phase.
type PhaseTotals struct {
	// TotalTime is the accumulated intercept time in seconds.
	TotalTime float64 `json:"total_time"`

	// AverageTime is TotalTime divided by the exchange count, 0 when no
	// exchange has arrived.
	AverageTime float64 `json:"average_time"`
}

// HostStats holds both phase aggregates for one destination host.
type HostStats struct {
	// Requests is the number of request-intercept samples for this host.
	Requests int64 `json:"requests"`

	RequestIntercept  PhaseStats `json:"request_intercept"`
	ResponseIntercept PhaseStats `json:"response_intercept"`
}

// PhaseStats holds the per-host running aggregate for one intercept phase.
// A phase with zero samples reports average/min/max as 0.
type PhaseStats struct {
	Count           int64   `json:"count"`
	AverageOverhead float64 `json:"average_overhead"`
	MinOverhead     float64 `json:"min_overhead"`
	MaxOverhead     float64 `json:"max_overhead"`
}
