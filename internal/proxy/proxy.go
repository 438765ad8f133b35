// Package proxy implements the intercepting forward proxy that drives the
// accounting engine. It is a demonstration pipeline: it pauses each
// exchange to apply configured header transformations and reports the
// lifecycle transitions the engine measures.
package proxy

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/brightenyim/latstat/internal/config"
	"github.com/brightenyim/latstat/internal/engine"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}

// Proxy is an HTTP forward proxy. Every plain exchange passes through the
// full engine lifecycle; CONNECT tunnels are counted but carry no
// intercept phases since their bytes are opaque.
type Proxy struct {
	engine  *engine.Engine
	rules   config.InterceptConfig
	client  *http.Client
	metrics *RoundTripMetrics
	log     engine.Logger
}

// New creates a proxy wired to eng. A nil log disables proxy logging.
func New(eng *engine.Engine, rules config.InterceptConfig, upstreamTimeout time.Duration, log engine.Logger) *Proxy {
	if log == nil {
		log = nopLogger{}
	}
	return &Proxy{
		engine: eng,
		rules:  rules,
		client: &http.Client{
			Timeout: upstreamTimeout,
			// The proxy relays redirects to the client untouched.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		metrics: NewRoundTripMetrics(),
		log:     log,
	}
}

// Metrics returns the proxy's round-trip latency tracker.
func (p *Proxy) Metrics() *RoundTripMetrics {
	return p.metrics
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		p.handleConnect(w, r)
		return
	}
	if !r.URL.IsAbs() {
		http.Error(w, "latstat is a forward proxy: request an absolute URL", http.StatusBadRequest)
		return
	}

	start := time.Now()
	id := uuid.NewString()
	host := r.URL.Hostname()

	p.engine.ExchangeArrived(id)

	outReq := r.Clone(r.Context())
	outReq.RequestURI = ""
	removeHopByHop(outReq.Header)

	p.engine.RequestInterceptStarted(id)
	applyRules(outReq.Header, p.rules.RequestHeaders, p.rules.RequestStrip)
	p.engine.RequestForwarded(id, host)

	resp, err := p.client.Do(outReq)
	if err != nil {
		// The exchange still completes so the ledger entry is retired.
		p.engine.ExchangeCompleted(id, host)
		http.Error(w, fmt.Sprintf("upstream error: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	p.engine.ResponseInterceptStarted(id)
	removeHopByHop(resp.Header)
	applyRules(resp.Header, p.rules.ResponseHeaders, p.rules.ResponseStrip)
	p.engine.ExchangeCompleted(id, host)

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Warnf("relaying response body for %s: %v", host, err)
	}

	p.metrics.Record(time.Since(start))
}

// handleConnect tunnels a TLS exchange without interception. The exchange
// is counted, but no intercept phases fire.
func (p *Proxy) handleConnect(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
	}

	p.engine.ExchangeArrived(id)
	defer p.engine.ExchangeCompleted(id, host)

	upstream, err := net.DialTimeout("tcp", r.Host, 10*time.Second)
	if err != nil {
		http.Error(w, fmt.Sprintf("upstream error: %v", err), http.StatusBadGateway)
		return
	}
	defer upstream.Close()

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}
	client, _, err := hijacker.Hijack()
	if err != nil {
		http.Error(w, fmt.Sprintf("hijack failed: %v", err), http.StatusInternalServerError)
		return
	}
	defer client.Close()

	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		return
	}

	done := make(chan struct{}, 2)
	go tunnel(upstream, client, done)
	go tunnel(client, upstream, done)
	<-done
}

func tunnel(dst io.WriteCloser, src io.Reader, done chan<- struct{}) {
	// A broken pipe on either side ends the tunnel.
	_, _ = io.Copy(dst, src)
	dst.Close()
	done <- struct{}{}
}
