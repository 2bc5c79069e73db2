// Package middleware provides HTTP middleware for the explorer API.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// TraceHeader carries the request trace ID in both directions.
const TraceHeader = "X-Trace-ID"

type traceKey struct{}

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceID returns the trace ID stored in ctx, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// LoggingMiddleware assigns a trace ID to every request, echoes it in the
// response and logs the completed request.
func LoggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(TraceHeader)
			if traceID == "" {
				traceID = uuid.NewString()
			}
			r = r.WithContext(WithTraceID(r.Context(), traceID))
			w.Header().Set(TraceHeader, traceID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			entry := log.WithField("trace_id", traceID).
				WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("status", wrapped.statusCode).
				WithField("duration", time.Since(start).String())
			if wrapped.statusCode >= http.StatusInternalServerError {
				entry.Warn("request failed")
				return
			}
			entry.Debug("request completed")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
