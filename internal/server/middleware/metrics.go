package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// RequestObserver records one completed HTTP request. Implemented by the
// observability package.
type RequestObserver interface {
	ObserveRequest(route, status string, d time.Duration)
}

// Metrics returns middleware that records request duration per route
// pattern and status code. Routes are identified by the ServeMux pattern
// that matched, so path parameters do not explode label cardinality.
func Metrics(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			observer.ObserveRequest(route, strconv.Itoa(rw.statusCode), time.Since(start))
		})
	}
}
