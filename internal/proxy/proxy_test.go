package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightenyim/latstat/internal/config"
	"github.com/brightenyim/latstat/internal/engine"
)

// proxyRequest sends r through p and returns the recorded response.
func proxyRequest(t *testing.T, p *Proxy, target string) *httptest.ResponseRecorder {
	t.Helper()

	u, err := url.Parse(target)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.URL = u

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	return rec
}

func TestProxy_RoundTripDrivesFullLifecycle(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "latstat", r.Header.Get("X-Inspected-By"))
		assert.Empty(t, r.Header.Get("X-Internal-Token"))
		w.Header().Set("Server", "upstream/1.0")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer upstream.Close()

	eng := engine.New()
	rules := config.InterceptConfig{
		RequestHeaders: map[string]string{"X-Inspected-By": "latstat"},
		RequestStrip:   []string{"X-Internal-Token"},
		ResponseStrip:  []string{"Server"},
	}
	p := New(eng, rules, 5*time.Second, nil)

	rec := proxyRequest(t, p, upstream.URL+"/hello")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Server"))

	snap := eng.Snapshot()
	assert.Equal(t, int64(1), snap.TotalExchanges)

	upstreamHost := mustHostname(t, upstream.URL)
	hs, ok := snap.HostStats[upstreamHost]
	require.True(t, ok, "missing host stats for %s", upstreamHost)
	assert.Equal(t, int64(1), hs.RequestIntercept.Count)
	assert.Equal(t, int64(1), hs.ResponseIntercept.Count)

	assert.Equal(t, 0, eng.InFlight(), "ledger must be empty after completion")
	assert.Equal(t, int64(1), p.Metrics().Report().Count)
}

func TestProxy_UpstreamFailureStillRetiresExchange(t *testing.T) {
	eng := engine.New()
	p := New(eng, config.InterceptConfig{}, 500*time.Millisecond, nil)

	// Closed port: the upstream round trip fails.
	rec := proxyRequest(t, p, "http://127.0.0.1:1/unreachable")

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	snap := eng.Snapshot()
	assert.Equal(t, int64(1), snap.TotalExchanges)
	assert.Equal(t, 0, eng.InFlight())

	// The request phase completed before the failure; the response phase
	// never started, so it carries no sample.
	hs := snap.HostStats["127.0.0.1"]
	assert.Equal(t, int64(1), hs.RequestIntercept.Count)
	assert.Equal(t, int64(0), hs.ResponseIntercept.Count)
}

func TestProxy_RelativeURLRejected(t *testing.T) {
	eng := engine.New()
	p := New(eng, config.InterceptConfig{}, time.Second, nil)

	req := httptest.NewRequest(http.MethodGet, "/not-absolute", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(0), eng.Snapshot().TotalExchanges)
}

func TestProxy_ResponseHeaderInjection(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	eng := engine.New()
	rules := config.InterceptConfig{
		ResponseHeaders: map[string]string{"X-Proxied": "true"},
	}
	p := New(eng, rules, 5*time.Second, nil)

	rec := proxyRequest(t, p, upstream.URL)
	assert.Equal(t, "true", rec.Header().Get("X-Proxied"))
}

func TestRoundTripMetrics(t *testing.T) {
	m := NewRoundTripMetrics()

	assert.Equal(t, LatencyReport{}, m.Report())

	m.Record(10 * time.Millisecond)
	m.Record(20 * time.Millisecond)
	m.Record(30 * time.Millisecond)

	rep := m.Report()
	assert.Equal(t, int64(3), rep.Count)
	assert.InDelta(t, (10 * time.Millisecond).Seconds(), rep.Min.Seconds(), 0.001)
	assert.InDelta(t, (30 * time.Millisecond).Seconds(), rep.Max.Seconds(), 0.001)
	assert.InDelta(t, (20 * time.Millisecond).Seconds(), rep.Mean.Seconds(), 0.002)

	m.Reset()
	assert.Equal(t, int64(0), m.Report().Count)
}

func mustHostname(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Hostname()
}
