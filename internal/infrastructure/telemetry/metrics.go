package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument describes one metric. Buckets only apply to histograms.
type Instrument struct {
	Name        string
	Description string
	Unit        string
	Buckets     []float64
}

// Counter is a monotonically increasing int64 metric
type Counter struct{ c metric.Int64Counter }

// Histogram records float64 samples, durations in seconds
type Histogram struct{ h metric.Float64Histogram }

// Gauge records the latest int64 value
type Gauge struct{ g metric.Int64Gauge }

// Counter creates the instrument as a counter on meter
func (i Instrument) Counter(meter metric.Meter) (*Counter, error) {
	c, err := meter.Int64Counter(i.Name, metric.WithDescription(i.Description), metric.WithUnit(i.Unit))
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", i.Name, err)
	}
	return &Counter{c: c}, nil
}

// Histogram creates the instrument as a histogram on meter
func (i Instrument) Histogram(meter metric.Meter) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(i.Description), metric.WithUnit(i.Unit)}
	if len(i.Buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(i.Buckets...))
	}
	h, err := meter.Float64Histogram(i.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("create histogram %s: %w", i.Name, err)
	}
	return &Histogram{h: h}, nil
}

// Gauge creates the instrument as a gauge on meter
func (i Instrument) Gauge(meter metric.Meter) (*Gauge, error) {
	g, err := meter.Int64Gauge(i.Name, metric.WithDescription(i.Description), metric.WithUnit(i.Unit))
	if err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", i.Name, err)
	}
	return &Gauge{g: g}, nil
}

func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

func (h *Histogram) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, v, metric.WithAttributes(attrs...))
}

func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

func (g *Gauge) Record(ctx context.Context, v int64, attrs ...attribute.KeyValue) {
	g.g.Record(ctx, v, metric.WithAttributes(attrs...))
}

// Attribute keys shared by the HTTP and ledger metrics
var (
	AttrOwnerID      = attribute.Key("owner_id")
	AttrEventType    = attribute.Key("event_type")
	AttrDocumentType = attribute.Key("document_type")
	AttrPostingType  = attribute.Key("posting_type")
	AttrReason       = attribute.Key("reason")
	AttrOutcome      = attribute.Key("outcome")

	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")
)

// Bucket boundaries in seconds
var (
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	SyncDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
)
