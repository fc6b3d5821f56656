package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/docpipe/internal/logging"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Logger attaches a request-scoped zap logger to the context.
func Logger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := base
			if id := GetRequestID(r.Context()); id != "" {
				log = log.With(zap.String("request_id", id))
			}
			next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), log)))
		})
	}
}

// AccessLog emits one structured log line per HTTP request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", clientIP(r)),
			zap.String("user_agent", r.UserAgent()),
		}
		if tenantID := routeTenantID(r); tenantID != "" {
			fields = append(fields, zap.String("tenant_id", tenantID))
		}

		log := logging.FromContext(r.Context())
		if status >= http.StatusInternalServerError {
			log.Error("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	})
}

// routeTenantID reads the tenant path parameter once routing has completed.
func routeTenantID(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.URLParam("tenantID")
	}
	return ""
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
