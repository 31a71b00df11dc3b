package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	chiMid "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"leftmove.org/leftmove-web/internal/observability"
)

// Logger emits one structured log line per request through the context logger.
// It also attaches request-scoped fields to that logger for downstream handlers.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rid := chiMid.GetReqID(r.Context())
		ctx := r.Context()
		if rid != "" {
			ctx = WithRequestID(ctx, rid)
		}
		logger := observability.FromContext(ctx).With(
			zap.String("request_id", rid),
			zap.String("method", observability.SanitizeMethod(r.Method)),
			zap.String("path", observability.SanitizeRoute(r.URL.Path)),
		)
		if traceID := observability.TraceID(ctx); traceID != "" {
			logger = logger.With(zap.String("trace_id", traceID))
		}
		ctx = observability.WithLogger(ctx, logger)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		fields := []zap.Field{
			zap.Int("status", rw.status),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_ip", clientIP(r)),
			zap.Bool("htmx", IsHTMX(r.Context())),
		}
		switch {
		case rw.status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case rw.status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func clientIP(r *http.Request) string {
	// Trust X-Forwarded-For set by Cloud Run (last IP is client)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		p := strings.Split(xff, ",")
		return strings.TrimSpace(p[len(p)-1])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
