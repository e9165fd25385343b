package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Origin records the caller's network origin in the request context.
// With trustProxy set, the first X-Forwarded-For hop wins over the socket address.
func Origin(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := remoteHost(r.RemoteAddr)
			if trustProxy {
				if forwarded := firstForwardedHop(r.Header.Get("X-Forwarded-For")); forwarded != "" {
					origin = forwarded
				}
			}
			ctx := context.WithValue(r.Context(), originContextKey, origin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOrigin returns the caller's origin, or "" if the origin middleware did not run
func GetOrigin(ctx context.Context) string {
	origin, _ := ctx.Value(originContextKey).(string)
	return origin
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func firstForwardedHop(header string) string {
	hop, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(hop)
}
