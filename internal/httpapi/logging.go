package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mhcqms/queue-engine/internal/observability/metrics"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request and feeds the Prometheus request
// counters. Metrics may be nil in tests.
func LoggingMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(writer, r)
			duration := time.Since(start)

			route := routeLabel(r.URL.Path)
			if m != nil {
				m.ObserveRequest(r.Method, route, writer.status, duration)
			}

			event := log.Info()
			if writer.status >= http.StatusInternalServerError {
				event = log.Error()
			} else if writer.status >= http.StatusBadRequest {
				event = log.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", writer.status).
				Dur("duration", duration).
				Msg("request")
		})
	}
}

// routeLabel collapses path parameters so metric label cardinality stays
// bounded by the route table.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/patients/") && path != "/api/patients/register":
		return "/api/patients/{id}"
	case strings.HasPrefix(path, "/api/queue/tests/") && strings.HasSuffix(path, "/transition"):
		return "/api/queue/tests/{id}/transition"
	case strings.HasPrefix(path, "/api/queue/tests/") && strings.HasSuffix(path, "/events"):
		return "/api/queue/tests/{id}/events"
	case strings.HasPrefix(path, "/api/appointments/") && strings.HasSuffix(path, "/status"):
		return "/api/appointments/{id}/status"
	default:
		return path
	}
}
