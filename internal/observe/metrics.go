// Package observe provides the observability primitives for intervox:
// OpenTelemetry metrics exported to Prometheus, tracing, trace-aware logging,
// HTTP middleware and instrumented provider wrappers.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution. Every Record method
// is a no-op on a nil *Metrics.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all intervox metrics.
const meterName = "github.com/MrWong99/intervox"

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// FramesDropped counts capture frames lost to a full queue or the mute
	// interlock. Attribute: reason.
	FramesDropped metric.Int64Counter

	// Utterances counts closed utterances. Attribute: outcome (emitted|noise).
	Utterances metric.Int64Counter

	// Turns counts recorded conversation turns.
	Turns metric.Int64Counter

	// Nudges counts nudge prompts played.
	Nudges metric.Int64Counter

	// TranscriptionFailures counts utterances that produced no usable text.
	TranscriptionFailures metric.Int64Counter

	// ProviderDuration tracks provider call latency. Attributes: kind, provider.
	ProviderDuration metric.Float64Histogram

	// ProviderErrors counts failed provider calls. Attributes: kind, provider.
	ProviderErrors metric.Int64Counter

	// TTSFallbacks counts utterances spoken by the fallback voice.
	TTSFallbacks metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes.
	// Attributes: provider, to.
	BreakerTransitions metric.Int64Counter

	// ActiveSessions tracks running interviews.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks API request latency. Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram bucket boundaries in seconds sized for
// network speech and language model calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.FramesDropped, "intervox.frames.dropped", "Capture frames dropped before segmentation."},
		{&met.Utterances, "intervox.utterances", "Closed utterances by outcome."},
		{&met.Turns, "intervox.turns", "Recorded conversation turns."},
		{&met.Nudges, "intervox.nudges", "Nudge prompts played after silence."},
		{&met.TranscriptionFailures, "intervox.transcription.failures", "Utterances without a usable transcript."},
		{&met.ProviderErrors, "intervox.provider.errors", "Failed provider calls by kind and provider."},
		{&met.TTSFallbacks, "intervox.tts.fallbacks", "Utterances rendered by the fallback voice."},
		{&met.BreakerTransitions, "intervox.breaker.transitions", "Circuit breaker state changes."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if met.ProviderDuration, err = m.Float64Histogram("intervox.provider.duration",
		metric.WithDescription("Latency of provider calls by kind and provider."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("intervox.sessions.active",
		metric.WithDescription("Number of running interview sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("intervox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Call it after [InitProvider] so
// the instruments land on the Prometheus exporter.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrameDropped counts one dropped capture frame.
func (m *Metrics) RecordFrameDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.FramesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordUtterance counts a closed utterance. emitted is false for noise.
func (m *Metrics) RecordUtterance(ctx context.Context, emitted bool) {
	if m == nil {
		return
	}
	outcome := "noise"
	if emitted {
		outcome = "emitted"
	}
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordTurn counts a recorded turn.
func (m *Metrics) RecordTurn(ctx context.Context) {
	if m == nil {
		return
	}
	m.Turns.Add(ctx, 1)
}

// RecordNudge counts a nudge prompt.
func (m *Metrics) RecordNudge(ctx context.Context) {
	if m == nil {
		return
	}
	m.Nudges.Add(ctx, 1)
}

// RecordTranscriptionFailure counts an utterance without usable text.
func (m *Metrics) RecordTranscriptionFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.TranscriptionFailures.Add(ctx, 1)
}

// RecordProviderCall records the latency of one provider call and counts it
// as an error when failed is true.
func (m *Metrics) RecordProviderCall(ctx context.Context, kind, provider string, seconds float64, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("provider", provider),
	)
	m.ProviderDuration.Record(ctx, seconds, attrs)
	if failed {
		m.ProviderErrors.Add(ctx, 1, attrs)
	}
}

// RecordTTSFallback counts an utterance handed to the fallback voice.
func (m *Metrics) RecordTTSFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.TTSFallbacks.Add(ctx, 1)
}

// RecordBreakerTransition counts a breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, provider, to string) {
	if m == nil {
		return
	}
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("to", to),
	))
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}
