package httpx

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the request's source address. When trustProxy is true
// the resolution order is: first entry of X-Forwarded-For, then X-Real-IP,
// then the transport-level peer address. That ordering assumes all traffic
// arrives through a trusted reverse proxy; deployments exposed directly to
// the internet must run with trustProxy=false, otherwise any client can
// spoof its address with a single header.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			if len(ips) > 0 {
				return strings.TrimSpace(ips[0])
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
