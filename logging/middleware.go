// Package logging provides the slog request middleware for the API surface.
package logging

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// slowRequestThreshold flags batch document runs that take unusually long;
// those requests get logged at Warn with a slow marker.
const slowRequestThreshold = 2 * time.Second

// responseWriterPool reuses wrapper instances so per-request logging does
// not allocate under load.
var responseWriterPool = sync.Pool{
	New: func() any {
		return &responseWriterWrapper{
			statusCode: 200,
		}
	},
}

// routeClass buckets request paths into the API's functional areas so log
// queries can slice by workload instead of raw path.
func routeClass(path string) string {
	switch {
	case strings.HasPrefix(path, "/documents"):
		return "documents"
	case strings.HasPrefix(path, "/results"):
		return "results"
	case strings.HasPrefix(path, "/status"):
		return "status"
	case strings.HasPrefix(path, "/labs"):
		return "labs"
	case path == "/health" || path == "/metrics":
		return "ops"
	default:
		return "other"
	}
}

// LoggingMiddleware logs HTTP requests with structured slog attributes.
// Health and metrics probes are skipped. Server errors and slow document
// runs are raised to Warn, everything else logs at Info.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			ww := responseWriterPool.Get().(*responseWriterWrapper)
			ww.ResponseWriter = w
			ww.statusCode = 200
			ww.bytesWritten = 0

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			requestID, ok := r.Context().Value(middleware.RequestIDKey).(string)
			if !ok || requestID == "" {
				requestID = "unknown"
			}

			attrs := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"route_class", routeClass(r.URL.Path),
			}

			// Query strings only appear on directory lookups (?region=),
			// skip the attribute otherwise.
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}

			// Request body size approximates batch size for document runs.
			if r.ContentLength > 0 {
				attrs = append(attrs, "request_bytes", r.ContentLength)
			}

			slow := duration >= slowRequestThreshold
			if slow {
				attrs = append(attrs, "slow", true)
			}

			attrs = append(attrs,
				"remote_addr", r.RemoteAddr,
				"status_code", ww.statusCode,
				"bytes_written", ww.bytesWritten,
				"duration_ms", duration.Milliseconds(),
			)

			if ww.statusCode >= 500 || slow {
				logger.WarnContext(r.Context(), "HTTP request", attrs...)
			} else {
				logger.InfoContext(r.Context(), "HTTP request", attrs...)
			}

			responseWriterPool.Put(ww)
		})
	}
}

// responseWriterWrapper captures the status code and bytes written.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	n, err := w.ResponseWriter.Write(data)
	w.bytesWritten += n
	return n, err
}
