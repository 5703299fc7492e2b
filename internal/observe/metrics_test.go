package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere returns the int64 sum of the data point whose attribute key has
// value, or -1 when no such point exists.
func sumWhere(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	return -1
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordUtterance(ctx, true)
	m.RecordUtterance(ctx, false)
	m.RecordUtterance(ctx, false)
	m.RecordFrameDropped(ctx, "muted")
	m.RecordTurn(ctx)
	m.RecordNudge(ctx)
	m.RecordNudge(ctx)
	m.RecordTranscriptionFailure(ctx)
	m.RecordTTSFallback(ctx)
	m.RecordBreakerTransition(ctx, "groq", "open")

	rm := collect(t, reader)
	tests := []struct {
		name, key, value string
		want             int64
	}{
		{"intervox.utterances", "outcome", "emitted", 1},
		{"intervox.utterances", "outcome", "noise", 2},
		{"intervox.frames.dropped", "reason", "muted", 1},
		{"intervox.turns", "", "", 1},
		{"intervox.nudges", "", "", 2},
		{"intervox.transcription.failures", "", "", 1},
		{"intervox.tts.fallbacks", "", "", 1},
		{"intervox.breaker.transitions", "to", "open", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.value, func(t *testing.T) {
			if got := sumWhere(t, rm, tt.name, tt.key, tt.value); got != tt.want {
				t.Errorf("value = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecordProviderCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderCall(ctx, "llm", "groq", 0.4, false)
	m.RecordProviderCall(ctx, "llm", "groq", 1.2, true)

	rm := collect(t, reader)
	met := findMetric(rm, "intervox.provider.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Fatalf("histogram = %+v", met.Data)
	}
	if got := sumWhere(t, rm, "intervox.provider.errors", "provider", "groq"); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
}

func TestActiveSessions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.SessionStarted(ctx)
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)
	if got := sumWhere(t, collect(t, reader), "intervox.sessions.active", "", ""); got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordUtterance(ctx, true)
	m.RecordFrameDropped(ctx, "full")
	m.RecordProviderCall(ctx, "stt", "x", 1, true)
	m.SessionStarted(ctx)
	m.SessionEnded(ctx)
}
