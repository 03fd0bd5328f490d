package middleware

import (
	"net"
	"net/http"

	goCreds "github.com/MrEthical07/goCreds"
)

// ClientInfo attaches the remote IP and User-Agent to the request context.
// Put a proxy-aware middleware such as chi's RealIP in front of it when the
// service runs behind a load balancer.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goCreds.WithClientIP(r.Context(), remoteIP(r.RemoteAddr))
		if ua := r.UserAgent(); ua != "" {
			ctx = goCreds.WithUserAgent(ctx, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
