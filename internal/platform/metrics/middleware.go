package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMiddleware returns chi-compatible middleware that counts control-API
// requests and error responses (status >= 400) on the recorder's registry.
func RequestMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iqrec_http_requests_total",
		Help: "Total control API requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iqrec_http_errors_total",
		Help: "Total control API responses with error status (4xx or 5xx)",
	})
	m.registry.MustRegister(requestsTotal, errorsTotal)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrap, r)
			requestsTotal.Inc()
			if wrap.status >= 400 {
				errorsTotal.Inc()
			}
		})
	}
}

// responseWriter captures the status code for metrics.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
