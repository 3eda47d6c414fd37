// Package instrumentationtest records metrics in memory for assertions in
// tests of instrumented packages.
package instrumentationtest

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/agentpark/internal/instrumentation"
)

// Recorder collects the metrics written through its Metrics.
type Recorder struct {
	Metrics *instrumentation.Metrics
	reader  *sdkmetric.ManualReader
}

// NewRecorder creates metrics backed by a manual reader.
func NewRecorder(t testing.TB) *Recorder {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := instrumentation.NewMetrics(provider.Meter("instrumentationtest"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return &Recorder{Metrics: m, reader: reader}
}

// Count returns the value of the int64 counter name summed over the data
// points whose attributes include every key/value in attrs.
func (r *Recorder) Count(t testing.TB, name string, attrs map[string]string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, not an int64 sum", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if matches(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func matches(set attribute.Set, want map[string]string) bool {
	for k, v := range want {
		got, ok := set.Value(attribute.Key(k))
		if !ok || got.AsString() != v {
			return false
		}
	}
	return true
}
