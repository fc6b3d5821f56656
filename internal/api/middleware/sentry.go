package middleware

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

// SentryMiddleware traces each request as a transaction named after its chi
// route pattern, so every tenant's requests to one endpoint group together.
// Panics and 5xx responses are reported. Without an initialized client it is
// a no-op sink.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceRoute),
		}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		tx := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
		defer tx.Finish()

		r = r.WithContext(sentry.SetHubOnContext(tx.Context(), hub))
		scope := hub.Scope()
		scope.SetRequest(r)
		if requestID := GetRequestID(r.Context()); requestID != "" {
			scope.SetTag("request_id", requestID)
		}

		defer func() {
			if err := recover(); err != nil {
				tx.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				// chi's Recoverer still turns this into a 500.
				panic(err)
			}
		}()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		// Route params and the pattern are resolved only after routing.
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				tx.Name = r.Method + " " + pattern
			}
			for param, tag := range routeTags {
				if v := rctx.URLParam(param); v != "" {
					tx.SetTag(tag, v)
					scope.SetTag(tag, v)
				}
			}
		}

		status := rec.statusCode()
		tx.Status = spanStatus(status)
		tx.SetData("http.response.status_code", status)
		if status >= http.StatusInternalServerError {
			hub.CaptureMessage(tx.Name + ": " + http.StatusText(status))
		}
	})
}

var routeTags = map[string]string{
	"tenantID":   "tenant_id",
	"projectID":  "project_id",
	"documentID": "document_id",
}

var spanStatuses = map[int]sentry.SpanStatus{
	http.StatusBadRequest:            sentry.SpanStatusInvalidArgument,
	http.StatusUnauthorized:          sentry.SpanStatusUnauthenticated,
	http.StatusForbidden:             sentry.SpanStatusPermissionDenied,
	http.StatusNotFound:              sentry.SpanStatusNotFound,
	http.StatusConflict:              sentry.SpanStatusAlreadyExists,
	http.StatusRequestEntityTooLarge: sentry.SpanStatusResourceExhausted,
	http.StatusTooManyRequests:       sentry.SpanStatusResourceExhausted,
	http.StatusServiceUnavailable:    sentry.SpanStatusUnavailable,
	http.StatusGatewayTimeout:        sentry.SpanStatusDeadlineExceeded,
}

func spanStatus(code int) sentry.SpanStatus {
	if s, ok := spanStatuses[code]; ok {
		return s
	}
	switch {
	case code < 400:
		return sentry.SpanStatusOK
	case code < 500:
		return sentry.SpanStatusInvalidArgument
	default:
		return sentry.SpanStatusInternalError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
