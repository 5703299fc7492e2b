package pipeline_test

import (
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/intervox/internal/pipeline"
	"github.com/MrWong99/intervox/pkg/audio"
	vadmock "github.com/MrWong99/intervox/pkg/provider/vad/mock"
)

const (
	rate    = 16000
	frameMs = 20
)

// frame returns a 20ms frame the mock classifier treats as speech when speech
// is true.
func frame(speech bool) audio.AudioFrame {
	data := make([]byte, audio.FrameBytes(rate, frameMs))
	if speech {
		data[0] = 1
	}
	return audio.AudioFrame{Data: data, SampleRate: rate, Channels: 1}
}

// pattern expands runs like (50,false),(40,true) into a frame slice.
func pattern(runs ...any) []bool {
	var out []bool
	for i := 0; i+1 < len(runs); i += 2 {
		n, speech := runs[i].(int), runs[i+1].(bool)
		for range n {
			out = append(out, speech)
		}
	}
	return out
}

type emission struct {
	at int
	u  *pipeline.Utterance
}

func feed(a *pipeline.Assembler, seq []bool) []emission {
	var out []emission
	for i, s := range seq {
		if u, ok := a.Push(frame(s), s); ok {
			out = append(out, emission{at: i, u: u})
		}
	}
	return out
}

func defaultAssembler() *pipeline.Assembler {
	return pipeline.NewAssembler(pipeline.AssemblerConfig{
		SilenceThreshold: time.Second,
		MinSpeech:        800 * time.Millisecond,
	})
}

func TestAssembler_SilenceEmitsNothing(t *testing.T) {
	t.Parallel()
	a := defaultAssembler()
	if got := feed(a, pattern(500, false)); len(got) != 0 {
		t.Fatalf("emitted %d utterances from silence", len(got))
	}
	if a.Active() {
		t.Error("assembler active after silence only")
	}
}

func TestAssembler_ShortRunIsNoise(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		speech int
	}{
		{"one frame", 1},
		{"half second", 25},
		{"just under", 39},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := defaultAssembler()
			got := feed(a, pattern(10, false, tt.speech, true, 60, false))
			if len(got) != 0 {
				t.Fatalf("emitted %d utterances, want 0", len(got))
			}
			if a.Noise() != 1 {
				t.Errorf("noise = %d, want 1", a.Noise())
			}
			if a.Active() {
				t.Error("assembler still active after closing noise")
			}
		})
	}
}

func TestAssembler_LongRunEmitsOnce(t *testing.T) {
	t.Parallel()
	a := defaultAssembler()
	got := feed(a, pattern(60, true, 200, false))
	if len(got) != 1 {
		t.Fatalf("emitted %d utterances, want 1", len(got))
	}
	u := got[0].u
	if len(u.Frames) != 110 {
		t.Errorf("frames = %d, want 110", len(u.Frames))
	}
	if len(u.PCM) != 110*audio.FrameBytes(rate, frameMs) {
		t.Errorf("pcm = %d bytes", len(u.PCM))
	}
	if u.SampleRate != rate {
		t.Errorf("sample rate = %d", u.SampleRate)
	}
}

func TestAssembler_SpeechResetsSilenceTimer(t *testing.T) {
	t.Parallel()
	a := pipeline.NewAssembler(pipeline.AssemblerConfig{
		SilenceThreshold: 4 * frameMs * time.Millisecond,
		MinSpeech:        frameMs * time.Millisecond,
	})
	seq := []bool{true, true, false, false, true, true, false, false, false, false, false}
	got := feed(a, seq)
	if len(got) != 1 {
		t.Fatalf("emitted %d utterances, want 1", len(got))
	}
	if got[0].at != 9 {
		t.Errorf("closed at frame %d, want 9", got[0].at)
	}
	if n := len(got[0].u.Frames); n != 10 {
		t.Errorf("frames = %d, want 10", n)
	}
}

func TestAssembler_EndToEnd(t *testing.T) {
	t.Parallel()
	a := defaultAssembler()
	got := feed(a, pattern(50, false, 40, true, 60, false))
	if len(got) != 1 {
		t.Fatalf("emitted %d utterances, want 1", len(got))
	}
	e := got[0]
	if want := 50 + 40 + 49; e.at != want {
		t.Errorf("closed at frame %d, want %d (50th trailing silent frame)", e.at, want)
	}
	if e.u.SpeechDuration < 800*time.Millisecond || e.u.SpeechDuration > time.Second {
		t.Errorf("speech duration = %v, want 0.8s-1.0s", e.u.SpeechDuration)
	}
	if e.u.Duration != 1800*time.Millisecond {
		t.Errorf("duration = %v, want 1.8s including trailing silence", e.u.Duration)
	}
	if a.Active() {
		t.Error("trailing silence after close reopened the assembler")
	}
}

func TestAssembler_Reset(t *testing.T) {
	t.Parallel()
	a := defaultAssembler()
	feed(a, pattern(30, true))
	if !a.Active() {
		t.Fatal("not active after speech")
	}
	a.Reset()
	if a.Active() {
		t.Fatal("active after Reset")
	}
	if got := feed(a, pattern(100, false)); len(got) != 0 {
		t.Errorf("emitted %d after Reset", len(got))
	}
}

func TestSegmenter(t *testing.T) {
	t.Parallel()
	cls := &vadmock.Classifier{}
	s := pipeline.NewSegmenter(cls, rate, frameMs)

	if !s.Classify(frame(true)) {
		t.Error("speech frame classified as silence")
	}
	if s.Classify(frame(false)) {
		t.Error("silent frame classified as speech")
	}

	partial := audio.AudioFrame{Data: []byte{1, 2, 3}, SampleRate: rate}
	if s.Classify(partial) {
		t.Error("partial frame classified as speech")
	}
	if cls.CallCount() != 2 {
		t.Errorf("classifier calls = %d, want 2 (partial frame must not reach it)", cls.CallCount())
	}

	cls.Func = func([]byte) (bool, error) { return true, errors.New("model error") }
	if s.Classify(frame(true)) {
		t.Error("classifier error treated as speech")
	}
	if s.Rejected() != 2 {
		t.Errorf("rejected = %d, want 2", s.Rejected())
	}
}
