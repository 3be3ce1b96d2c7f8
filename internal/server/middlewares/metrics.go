package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Requests counts handled requests by path and status code.
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunplot_requests_total",
			Help: "Total HTTP requests processed, labeled by path and status code.",
		},
		[]string{"path", "code"},
	)

	// Latency observes request durations by path.
	Latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "sunplot_request_duration_seconds",
			Help: "Duration of HTTP requests.",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(Requests, Latency)
}

// Metrics records request counts and latencies.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		Requests.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
		Latency.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
