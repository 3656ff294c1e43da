// Package middleware provides the HTTP middleware chain of the ledger API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the server span middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are served without a span, e.g. the load balancer health probe
	SkipPaths []string
}

// TracingWithConfig wraps otelgin. Span names follow "METHOD route", e.g.
// "POST /api/v1/documents/:id/finalize". The span ends when otelgin's
// handler returns, so attributes are added by TracingAttributeInjector
// further down the chain.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !skip[r.URL.Path]
	}))
}

// TracingAttributeInjector tags the server span with request, owner and
// idempotency ids; place it after Owner
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		tagSpan(c)
		c.Next()
	}
}

func tagSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 3)
	if id := c.GetString(RequestIDContextKey); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if owner := GetOwnerID(c); owner != "" {
		attrs = append(attrs, attribute.String("owner_id", owner))
	}
	if key := c.GetHeader(IdempotencyKeyHeader); key != "" {
		attrs = append(attrs, attribute.String("idempotency_key", key))
	}
	span.SetAttributes(attrs...)
}

// spanStatus maps an error response to the span status description
func spanStatus(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusPaymentRequired, status == http.StatusLocked:
		return "Billing Denied"
	case status == http.StatusTooManyRequests:
		return "Rate Limited"
	case status == http.StatusNotFound:
		return "Not Found"
	}
	return "Client Error"
}

// SpanErrorMarker fails the server span on 4xx and 5xx answers; place it
// after TracingWithConfig
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		span := trace.SpanFromContext(c.Request.Context())
		if status < http.StatusBadRequest || !span.IsRecording() {
			return
		}
		span.SetStatus(codes.Error, spanStatus(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
