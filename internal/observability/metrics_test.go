package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics, handler, err := NewMetrics(ctx)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	if metrics == nil {
		t.Fatal("Expected metrics to be non-nil")
	}

	if handler == nil {
		t.Fatal("Expected handler to be non-nil")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics, _, err := NewMetrics(ctx)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/livez", 200, 0.001)
	metrics.RecordHTTPRequest(ctx, "POST", "/v1/runs", 202, 0.050)
	metrics.RecordHTTPRequest(ctx, "POST", "/v1/runs", 409, 0.002)
	metrics.RecordHTTPRequest(ctx, "GET", "/v1/runs/last", 404, 0.005)
	metrics.RecordHTTPRequest(ctx, "GET", "unmatched", 404, 0.001)
}

// newTestMetrics returns metrics backed by a manual reader.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := newMetrics(provider.Meter(meterName))
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("Expected int64 sum, got %T", data)
	}
	want := attribute.NewSet(attrs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if len(attrs) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func TestRecordRunMetrics(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	m, reader := newTestMetrics(t)

	m.RecordRunStarted(ctx)
	m.RecordRunCompleted(ctx, "success", 12.5)
	m.RecordRunStarted(ctx)
	m.RecordRunSkipped(ctx)
	m.RecordRunSkipped(ctx)

	data := collect(t, reader)

	if got := sumFor(t, data["runs_total"], outcomeAttr("success")); got != 1 {
		t.Errorf("Expected 1 successful run, got %d", got)
	}
	if got := sumFor(t, data["runs_skipped_total"]); got != 2 {
		t.Errorf("Expected 2 skipped runs, got %d", got)
	}
	if got := sumFor(t, data["runs_active"]); got != 1 {
		t.Errorf("Expected 1 active run, got %d", got)
	}
}

func TestRecordCompositionMetrics(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	m, reader := newTestMetrics(t)

	m.RecordSubjectComposed(ctx, 3)
	m.RecordSubjectComposed(ctx, 1)
	m.RecordCompositionError(ctx, "unsupported_encoding")

	data := collect(t, reader)

	if got := sumFor(t, data["subjects_composed_total"]); got != 2 {
		t.Errorf("Expected 2 composed subjects, got %d", got)
	}
	if got := sumFor(t, data["composition_errors_total"], kindAttr("unsupported_encoding")); got != 1 {
		t.Errorf("Expected 1 unsupported encoding error, got %d", got)
	}

	pages, ok := data["document_pages"].(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("Expected int64 histogram, got %T", data["document_pages"])
	}
	if len(pages.DataPoints) != 1 || pages.DataPoints[0].Count != 2 || pages.DataPoints[0].Sum != 4 {
		t.Errorf("Unexpected document_pages data points: %+v", pages.DataPoints)
	}
}

func TestRecordDeliveryMetrics(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	m, reader := newTestMetrics(t)

	m.RecordDelivery(ctx, true, 4.2)
	m.RecordDelivery(ctx, false, 10)
	m.RecordDelivery(ctx, true, 3.1)
	m.RecordPendingArtifacts(ctx, 3)
	m.RecordPendingArtifacts(ctx, 1)
	m.RecordTargetReacquired(ctx)

	data := collect(t, reader)

	if got := sumFor(t, data["deliveries_total"], successAttr(true)); got != 2 {
		t.Errorf("Expected 2 successful deliveries, got %d", got)
	}
	if got := sumFor(t, data["deliveries_total"], successAttr(false)); got != 1 {
		t.Errorf("Expected 1 failed delivery, got %d", got)
	}
	if got := sumFor(t, data["target_reacquisitions_total"]); got != 1 {
		t.Errorf("Expected 1 reacquisition, got %d", got)
	}

	gauge, ok := data["pending_artifacts"].(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("Expected int64 gauge, got %T", data["pending_artifacts"])
	}
	if len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 1 {
		t.Errorf("Expected pending_artifacts 1, got %+v", gauge.DataPoints)
	}
}

func TestRecordHTTPRequest_ByRoute(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	m, reader := newTestMetrics(t)

	m.RecordHTTPRequest(ctx, "POST", "/v1/runs", 202, 0.01)
	m.RecordHTTPRequest(ctx, "POST", "/v1/runs", 409, 0.01)
	m.RecordHTTPRequest(ctx, "GET", "unmatched", 404, 0.01)
	m.RecordHTTPRequest(ctx, "GET", "unmatched", 404, 0.01)

	data := collect(t, reader)

	if got := sumFor(t, data["http_requests_total"], methodAttr("POST"), routeAttr("/v1/runs"), statusAttr(202)); got != 1 {
		t.Errorf("Expected 1 accepted run request, got %d", got)
	}
	if got := sumFor(t, data["http_requests_total"], methodAttr("GET"), routeAttr("unmatched"), statusAttr(404)); got != 2 {
		t.Errorf("Expected unmatched requests in one series, got %d", got)
	}
	if got := sumFor(t, data["http_errors_total"]); got != 3 {
		t.Errorf("Expected 3 errors, got %d", got)
	}
}
