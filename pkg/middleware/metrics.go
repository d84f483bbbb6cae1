package middleware

import (
	"net/http"
	"time"

	"appointments/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// HTTPMetrics records request count and latency. Paths outside routes are
// folded into one label value to bound cardinality.
func HTTPMetrics(m *metrics.Metrics, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		known[route] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if _, ok := known[path]; !ok {
				path = unmatchedRoute
			}
			m.ObserveHTTP(r.Method, path, wrapped.statusCode, time.Since(start))
		})
	}
}
