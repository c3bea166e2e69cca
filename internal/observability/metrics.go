package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "pdfcourier"

// Metrics holds all application metrics:
// - Runs: throughput, duration, outcome and overlap rejections
// - Composition: subjects composed, page counts and failures by kind
// - Delivery: per-artifact latency and outcome, backlog and target reacquisition
// - HTTP: control surface traffic
type Metrics struct {
	meter metric.Meter

	// HTTP metrics
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Run metrics
	RunDuration metric.Float64Histogram
	RunsTotal   metric.Int64Counter
	RunsSkipped metric.Int64Counter
	RunsActive  metric.Int64UpDownCounter

	// Composition metrics
	SubjectsComposed  metric.Int64Counter
	CompositionErrors metric.Int64Counter
	DocumentPages     metric.Int64Histogram

	// Delivery metrics
	DeliveryDuration    metric.Float64Histogram
	DeliveriesTotal     metric.Int64Counter
	PendingArtifacts    metric.Int64Gauge
	TargetReacquisition metric.Int64Counter
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := newMetrics(provider.Meter(meterName))
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.Handler(), nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, err
	}

	// Run metrics
	m.RunDuration, err = meter.Float64Histogram(
		"run_duration_seconds",
		metric.WithDescription("Run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 900, 1800),
	)
	if err != nil {
		return nil, err
	}

	m.RunsTotal, err = meter.Int64Counter(
		"runs_total",
		metric.WithDescription("Total number of finished runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	m.RunsSkipped, err = meter.Int64Counter(
		"runs_skipped_total",
		metric.WithDescription("Total number of runs rejected because another run was in progress"),
	)
	if err != nil {
		return nil, err
	}

	m.RunsActive, err = meter.Int64UpDownCounter(
		"runs_active",
		metric.WithDescription("Number of runs in progress"),
	)
	if err != nil {
		return nil, err
	}

	// Composition metrics
	m.SubjectsComposed, err = meter.Int64Counter(
		"subjects_composed_total",
		metric.WithDescription("Total number of subjects composed into an artifact"),
	)
	if err != nil {
		return nil, err
	}

	m.CompositionErrors, err = meter.Int64Counter(
		"composition_errors_total",
		metric.WithDescription("Total number of subjects that produced no artifact"),
	)
	if err != nil {
		return nil, err
	}

	m.DocumentPages, err = meter.Int64Histogram(
		"document_pages",
		metric.WithDescription("Pages per composed document, cover included"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 50, 100, 200),
	)
	if err != nil {
		return nil, err
	}

	// Delivery metrics
	m.DeliveryDuration, err = meter.Float64Histogram(
		"delivery_duration_seconds",
		metric.WithDescription("Artifact delivery latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 20, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	m.DeliveriesTotal, err = meter.Int64Counter(
		"deliveries_total",
		metric.WithDescription("Total number of delivery attempts"),
	)
	if err != nil {
		return nil, err
	}

	m.PendingArtifacts, err = meter.Int64Gauge(
		"pending_artifacts",
		metric.WithDescription("Artifacts awaiting delivery (saturation)"),
	)
	if err != nil {
		return nil, err
	}

	m.TargetReacquisition, err = meter.Int64Counter(
		"target_reacquisitions_total",
		metric.WithDescription("Total number of times the destination was reselected mid-batch"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordHTTPRequest records HTTP request metrics. route is the matched
// route pattern.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		routeAttr(route),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordRunStarted records a run acquiring the guard.
func (m *Metrics) RecordRunStarted(ctx context.Context) {
	m.RunsActive.Add(ctx, 1)
}

// RecordRunCompleted records a run finishing with the given outcome.
func (m *Metrics) RecordRunCompleted(ctx context.Context, outcome string, durationSeconds float64) {
	attrs := metric.WithAttributes(outcomeAttr(outcome))
	m.RunDuration.Record(ctx, durationSeconds, attrs)
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunsActive.Add(ctx, -1)
}

// RecordRunSkipped records a run rejected because another was in progress.
func (m *Metrics) RecordRunSkipped(ctx context.Context) {
	m.RunsSkipped.Add(ctx, 1)
}

// RecordSubjectComposed records a composed subject and its page count.
func (m *Metrics) RecordSubjectComposed(ctx context.Context, pages int) {
	m.SubjectsComposed.Add(ctx, 1)
	m.DocumentPages.Record(ctx, int64(pages))
}

// RecordCompositionError records a subject that produced no artifact.
func (m *Metrics) RecordCompositionError(ctx context.Context, kind string) {
	m.CompositionErrors.Add(ctx, 1, metric.WithAttributes(kindAttr(kind)))
}

// RecordDelivery records one delivery attempt.
func (m *Metrics) RecordDelivery(ctx context.Context, success bool, durationSeconds float64) {
	attrs := metric.WithAttributes(successAttr(success))
	m.DeliveriesTotal.Add(ctx, 1, attrs)
	m.DeliveryDuration.Record(ctx, durationSeconds, attrs)
}

// RecordPendingArtifacts records the current delivery backlog.
func (m *Metrics) RecordPendingArtifacts(ctx context.Context, count int64) {
	m.PendingArtifacts.Record(ctx, count)
}

// RecordTargetReacquired records the destination being reselected.
func (m *Metrics) RecordTargetReacquired(ctx context.Context) {
	m.TargetReacquisition.Add(ctx, 1)
}
