// Package output renders engine snapshots and proxy latency reports for
// the console, and exposes JSON/gjson views for scripting.
package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brightenyim/latstat/internal/engine"
	"github.com/brightenyim/latstat/internal/proxy"
)

// Formatter renders statistics as aligned, optionally colored text.
type Formatter struct {
	scheme *ColorScheme
}

// NewFormatter creates a formatter. With noColor all color codes are
// suppressed.
func NewFormatter(noColor bool) *Formatter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Formatter{scheme: scheme}
}

// FormatSnapshot renders the intercept-overhead statistics.
func (f *Formatter) FormatSnapshot(snap engine.Snapshot) string {
	var buf strings.Builder

	buf.WriteString(f.scheme.Heading.Sprint("▶ INTERCEPT OVERHEAD") + "\n")
	buf.WriteString(fmt.Sprintf("  %s %s\n",
		f.scheme.Label.Sprint("Exchanges:"),
		f.scheme.Value.Sprintf("%d", snap.TotalExchanges)))
	buf.WriteString(fmt.Sprintf("  %s total %s, avg %s\n",
		f.scheme.Label.Sprint("Request intercept: "),
		f.scheme.Value.Sprint(formatSeconds(snap.RequestIntercept.TotalTime)),
		f.scheme.Value.Sprint(formatSeconds(snap.RequestIntercept.AverageTime))))
	buf.WriteString(fmt.Sprintf("  %s total %s, avg %s\n",
		f.scheme.Label.Sprint("Response intercept:"),
		f.scheme.Value.Sprint(formatSeconds(snap.ResponseIntercept.TotalTime)),
		f.scheme.Value.Sprint(formatSeconds(snap.ResponseIntercept.AverageTime))))

	if len(snap.HostStats) == 0 {
		buf.WriteString(f.scheme.Dim.Sprint("  (no samples yet)") + "\n")
		return buf.String()
	}

	hosts := make([]string, 0, len(snap.HostStats))
	for host := range snap.HostStats {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	for _, host := range hosts {
		hs := snap.HostStats[host]
		buf.WriteString(fmt.Sprintf("  %s\n", f.scheme.Host.Sprint(host)))
		buf.WriteString("    request:  " + f.formatPhase(hs.RequestIntercept) + "\n")
		buf.WriteString("    response: " + f.formatPhase(hs.ResponseIntercept) + "\n")
	}

	return buf.String()
}

func (f *Formatter) formatPhase(ps engine.PhaseStats) string {
	if ps.Count == 0 {
		return f.scheme.Dim.Sprint("no samples")
	}
	return fmt.Sprintf("%s samples, avg %s, min %s, max %s",
		f.scheme.Value.Sprintf("%d", ps.Count),
		f.scheme.Value.Sprint(formatSeconds(ps.AverageOverhead)),
		f.scheme.Value.Sprint(formatSeconds(ps.MinOverhead)),
		f.scheme.Value.Sprint(formatSeconds(ps.MaxOverhead)))
}

// FormatLatencyReport renders the proxy's round-trip latency summary.
func (f *Formatter) FormatLatencyReport(rep proxy.LatencyReport) string {
	var buf strings.Builder

	buf.WriteString(f.scheme.Heading.Sprint("▶ PROXY ROUND TRIP") + "\n")
	if rep.Count == 0 {
		buf.WriteString(f.scheme.Dim.Sprint("  (no exchanges yet)") + "\n")
		return buf.String()
	}

	buf.WriteString(fmt.Sprintf("  %s %s\n",
		f.scheme.Label.Sprint("Exchanges:"),
		f.scheme.Value.Sprintf("%d", rep.Count)))
	buf.WriteString(fmt.Sprintf("  %s min %v, mean %v, max %v\n",
		f.scheme.Label.Sprint("Latency:  "),
		rep.Min.Round(time.Millisecond),
		rep.Mean.Round(time.Millisecond),
		rep.Max.Round(time.Millisecond)))
	buf.WriteString(fmt.Sprintf("  %s p50 %v, p95 %v, p99 %v\n",
		f.scheme.Label.Sprint("Quantiles:"),
		rep.P50.Round(time.Millisecond),
		rep.P95.Round(time.Millisecond),
		rep.P99.Round(time.Millisecond)))

	return buf.String()
}

// formatSeconds renders a duration in seconds at millisecond precision.
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3fs", s)
}
