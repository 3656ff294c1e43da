package middleware

import (
	"context"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// httpMetrics holds all HTTP-related metrics instruments.
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

var (
	requestSizeBuckets  = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}
	responseSizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000}
)

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.Instrument{
		Name:        "http_server_request_total",
		Description: "Total number of HTTP requests",
		Unit:        "{request}",
	}.Counter(meter)
	if err != nil {
		return nil, err
	}

	var requestDuration, requestSize, responseSize *telemetry.Histogram
	histograms := []struct {
		target **telemetry.Histogram
		inst   telemetry.Instrument
	}{
		{&requestDuration, telemetry.Instrument{Name: "http_server_request_duration_seconds", Description: "HTTP request latency in seconds", Unit: "s", Buckets: telemetry.HTTPDurationBuckets}},
		{&requestSize, telemetry.Instrument{Name: "http_server_request_size_bytes", Description: "HTTP request body size in bytes", Unit: "By", Buckets: requestSizeBuckets}},
		{&responseSize, telemetry.Instrument{Name: "http_server_response_size_bytes", Description: "HTTP response body size in bytes", Unit: "By", Buckets: responseSizeBuckets}},
	}
	for _, h := range histograms {
		if *h.target, err = h.inst.Histogram(meter); err != nil {
			return nil, err
		}
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestSize:     requestSize,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics returns a Gin middleware that collects HTTP metrics:
//   - http_server_request_total by method, route, status_code and owner_id
//   - http_server_request_duration_seconds by method and route
//   - http_server_request_size_bytes and http_server_response_size_bytes
//   - http_server_active_requests
//
// A meter that fails to build its instruments yields a pass-through handler.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return passThrough
	}
	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return passThrough
	}
	return httpMetricsMiddleware(metrics)
}

func passThrough(c *gin.Context) {
	c.Next()
}

func httpMetricsMiddleware(metrics *httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := getRequestSize(c)

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		recordHTTPMetrics(ctx, metrics, httpObservation{
			method:       c.Request.Method,
			route:        getRoutePattern(c),
			statusCode:   c.Writer.Status(),
			ownerID:      GetOwnerID(c),
			duration:     time.Since(start),
			requestSize:  requestSize,
			responseSize: c.Writer.Size(),
		})
	}
}

type httpObservation struct {
	method       string
	route        string
	statusCode   int
	ownerID      string
	duration     time.Duration
	requestSize  int64
	responseSize int
}

func recordHTTPMetrics(ctx context.Context, metrics *httpMetrics, o httpObservation) {
	requestAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(o.method),
		telemetry.AttrHTTPRoute.String(o.route),
		telemetry.AttrHTTPStatusCode.Int(o.statusCode),
	}
	if o.ownerID != "" {
		requestAttrs = append(requestAttrs, telemetry.AttrOwnerID.String(o.ownerID))
	}
	metrics.requestTotal.Inc(ctx, requestAttrs...)

	// Duration and sizes carry method and route only
	baseAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(o.method),
		telemetry.AttrHTTPRoute.String(o.route),
	}
	metrics.requestDuration.RecordDuration(ctx, o.duration, baseAttrs...)

	if o.requestSize > 0 {
		metrics.requestSize.Record(ctx, float64(o.requestSize), baseAttrs...)
	}
	if o.responseSize > 0 {
		metrics.responseSize.Record(ctx, float64(o.responseSize), baseAttrs...)
	}
}

// getRoutePattern returns the matched route (e.g. "/api/v1/ledgers/:id")
// to keep label cardinality bounded.
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

func getRequestSize(c *gin.Context) int64 {
	if cl := c.Request.ContentLength; cl > 0 {
		return cl
	}
	return 0
}

// HTTPMetricsStatusGroup groups a status code into its class (2xx, 4xx, ...).
func HTTPMetricsStatusGroup(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "other"
	}
}
