package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/intervox/pkg/provider/llm"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	"github.com/MrWong99/intervox/pkg/provider/tts"
)

// observeCall wraps one provider call in a span and records its latency.
func observeCall[R any](ctx context.Context, m *Metrics, kind, name string, fn func(context.Context) (R, error)) (R, error) {
	ctx, span := StartSpan(ctx, kind+"."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.kind", kind),
			attribute.String("provider.name", name),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	m.RecordProviderCall(ctx, kind, name, time.Since(start).Seconds(), err != nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

type instrumentedSTT struct {
	p    stt.Provider
	name string
	m    *Metrics
}

// InstrumentSTT returns p with a span and latency metric around every call.
func InstrumentSTT(p stt.Provider, name string, m *Metrics) stt.Provider {
	return &instrumentedSTT{p: p, name: name, m: m}
}

func (i *instrumentedSTT) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	return observeCall(ctx, i.m, "stt", i.name, func(ctx context.Context) (string, error) {
		return i.p.Transcribe(ctx, pcm, sampleRate)
	})
}

type instrumentedLLM struct {
	p    llm.Provider
	name string
	m    *Metrics
}

// InstrumentLLM returns p with a span and latency metric around every call.
func InstrumentLLM(p llm.Provider, name string, m *Metrics) llm.Provider {
	return &instrumentedLLM{p: p, name: name, m: m}
}

func (i *instrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return observeCall(ctx, i.m, "llm", i.name, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return i.p.Complete(ctx, req)
	})
}

type instrumentedTTS struct {
	p    tts.Provider
	name string
	m    *Metrics
}

// InstrumentTTS returns p with a span and latency metric around every call.
func InstrumentTTS(p tts.Provider, name string, m *Metrics) tts.Provider {
	return &instrumentedTTS{p: p, name: name, m: m}
}

func (i *instrumentedTTS) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	return observeCall(ctx, i.m, "tts", i.name, func(ctx context.Context) (tts.Audio, error) {
		return i.p.Synthesize(ctx, text)
	})
}
