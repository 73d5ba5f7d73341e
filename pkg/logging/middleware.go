package logging

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds client-supplied request IDs; longer ones are replaced
const maxRequestIDLen = 64

// RequestIDMiddleware tags each request with an ID, taken from the
// X-Request-ID header when the client sends a usable one, and logs the
// outcome. Event streams are logged when they close.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.New().String()
		}

		ctx := WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		rec := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		DebugContext(ctx, "request started", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)

		next.ServeHTTP(rec, r)

		level, msg := requestOutcome(rec)
		logger.Log(ctx, level, msg, withRequestID(ctx, []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"bytes", rec.written,
			"durationMs", time.Since(start).Milliseconds(),
		})...)
	})
}

// requestOutcome picks the log level and message for a finished request
func requestOutcome(rec *responseWriter) (slog.Level, string) {
	switch {
	case rec.statusCode >= http.StatusInternalServerError:
		return slog.LevelError, "request failed"
	case rec.statusCode >= http.StatusBadRequest:
		return slog.LevelWarn, "request rejected"
	case strings.HasPrefix(rec.Header().Get("Content-Type"), "text/event-stream"):
		return slog.LevelDebug, "stream closed"
	default:
		return slog.LevelInfo, "request completed"
	}
}

// responseWriter records the status code and body size of a response
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// Flush lets event streams push through the wrapper
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
