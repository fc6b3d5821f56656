// Package telemetry reports pipeline errors and traces to Sentry. Every
// function is a no-op until Init has been called with a DSN.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const serviceName = "docpipe"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init initializes Sentry with tracing enabled and returns a function that
// flushes pending events.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		BeforeSend:       dropCancellations,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span.Name == "GET /health" {
				return 0.0
			}
			var root sentry.SpanID
			if ctx.Span.ParentSpanID != root {
				if ctx.Span.Sampled.Bool() {
					return 1.0
				}
				return 0.0
			}
			return cfg.TracesSampleRate
		}),
	})
	if err != nil {
		zap.L().Warn("sentry init failed, continuing without tracing", zap.Error(err))
		return func() {}, nil
	}

	zap.L().Info("sentry tracing initialized",
		zap.String("environment", cfg.Environment),
		zap.Float64("sample_rate", cfg.TracesSampleRate),
	)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// dropCancellations discards events for work stopped by shutdown or a cycle
// timeout.
func dropCancellations(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint == nil || hint.OriginalException == nil {
		return event
	}
	if errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

// SpanAttributes tag a span with the document it concerns.
type SpanAttributes struct {
	TenantID   string
	ProjectID  string
	DocumentID string
	Operation  string
}

// Span wraps sentry.Span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span as failed and reports err.
func (s *Span) SetError(err error) {
	if s.inner == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan starts a child of the span in ctx, or a new transaction when
// there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.TenantID != "" {
		span.SetTag("tenant_id", attrs.TenantID)
	}
	if attrs.ProjectID != "" {
		span.SetTag("project_id", attrs.ProjectID)
	}
	if attrs.DocumentID != "" {
		span.SetTag("document_id", attrs.DocumentID)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
	return span.Context(), &Span{inner: span}
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureError reports err with the scope attached to ctx.
func CaptureError(ctx context.Context, err error) {
	hubFrom(ctx).CaptureException(err)
}

// CaptureDocumentError reports a failure processing one document, tagged so
// repeated failures of the same document group together.
func CaptureDocumentError(ctx context.Context, tenantID, documentID string, err error) {
	hub := hubFrom(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("tenant_id", tenantID)
		scope.SetTag("document_id", documentID)
		scope.SetFingerprint([]string{"{{ default }}", documentID})
		hub.CaptureException(err)
	})
}

// RecordTransition leaves a breadcrumb for a document status change so later
// errors in the same scope show the document's path through the pipeline.
func RecordTransition(ctx context.Context, documentID, from, to string) {
	hubFrom(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Category:  "document",
		Message:   from + " -> " + to,
		Level:     sentry.LevelInfo,
		Data:      map[string]any{"document_id": documentID},
		Timestamp: time.Now(),
	}, nil)
}
