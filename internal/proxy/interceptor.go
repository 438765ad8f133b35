package proxy

import "net/http"

// Hop-by-hop headers are meaningful only for a single transport link and
// must not be forwarded (RFC 7230 §6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopByHop(h http.Header) {
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

// applyRules mutates h in place: sets every configured header, then strips
// the configured names. This is the "transformation" work measured by the
// intercept phases.
func applyRules(h http.Header, set map[string]string, strip []string) {
	for name, value := range set {
		h.Set(name, value)
	}
	for _, name := range strip {
		h.Del(name)
	}
}

func copyHeader(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
