// Package event defines the notifications an interview session pushes to
// its observers: state changes, transcripts, questions and the final
// feedback.
//
// Publishing is best-effort. A [Sink] must never block the publisher; the
// WebSocket transport buffers and drops, tests record.
package event

import (
	"encoding/json"
	"maps"
	"sync"
	"time"
)

// Type names an event on the wire.
type Type string

// Event types.
const (
	InterviewStarted    Type = "interview_started"
	InterviewerQuestion Type = "interviewer_question"
	InterviewerNudge    Type = "interviewer_nudge"
	Listening           Type = "listening"
	Processing          Type = "processing"
	CandidateResponse   Type = "candidate_response"
	TranscriptionFailed Type = "transcription_failed"
	TTSStarting         Type = "tts_starting"
	TTSFallback         Type = "tts_fallback"
	TTSCompleted        Type = "tts_completed"
	FinalFeedback       Type = "final_feedback"
	InterviewEnded      Type = "interview_ended"
	InterviewEnding     Type = "interview_ending"
	StateChanged        Type = "state_changed"
	AudioFormat         Type = "audio_format"
	Pong                Type = "pong"
	Error               Type = "error"
)

// Event is one notification. It marshals to a flat JSON object holding
// "type", "timestamp" (Unix seconds) and every entry of Fields.
type Event struct {
	Type   Type
	Time   time.Time
	Fields map[string]any
}

// New returns an Event of type t stamped with the current time. kv is a list
// of alternating string keys and values; a trailing key without a value is
// ignored.
func New(t Type, kv ...any) Event {
	e := Event{Type: t, Time: time.Now(), Fields: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			e.Fields[k] = kv[i+1]
		}
	}
	return e
}

// Message is shorthand for an event carrying only a "message" field.
func Message(t Type, msg string) Event { return New(t, "message", msg) }

// String returns Fields[key] when it is a string.
func (e Event) String(key string) string {
	s, _ := e.Fields[key].(string)
	return s
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+2)
	maps.Copy(out, e.Fields)
	out["type"] = e.Type
	out["timestamp"] = float64(e.Time.UnixNano()) / 1e9
	return json.Marshal(out)
}

// Sink receives events. Publish must not block.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(Event)

// Publish calls f.
func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// OrDiscard returns s, or [Discard] when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Fanout publishes every event to each of its sinks in order.
type Fanout []Sink

// Publish implements [Sink].
func (f Fanout) Publish(e Event) {
	for _, s := range f {
		if s != nil {
			s.Publish(e)
		}
	}
}

// Recorder keeps every published event. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements [Sink].
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a snapshot of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ Sink = (*Recorder)(nil)
	_ Sink = Fanout(nil)
)
