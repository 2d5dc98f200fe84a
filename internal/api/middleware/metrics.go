package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ghozitech/ledger/internal/metrics"
	"github.com/ghozitech/ledger/internal/middleware"
)

// Metrics records request counts and latencies per route template
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			m.ObserveRequest(r.Method, routeTemplate(r), wrapped.Status(), time.Since(start))
		})
	}
}

// routeTemplate keeps label cardinality bounded by using the mux template
// ("/api/v1/attempts/{handle}") rather than the concrete path
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
