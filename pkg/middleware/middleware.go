package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"storefront_api/pkg/logger"
)

// RequestLogger logs one line per request with the chi request id.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			log.Log("%s %s %d %v req=%s", r.Method, r.URL.Path, rw.status,
				time.Since(start), chimw.GetReqID(r.Context()))
		})
	}
}
