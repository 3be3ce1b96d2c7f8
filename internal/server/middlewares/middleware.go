// Package middleware holds the HTTP middleware chain: request IDs,
// request logging, Prometheus metrics and rate limiting.
package middleware

import "net/http"

// statusRecorder captures the status code a handler writes so the
// logging and metrics middleware can report it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
