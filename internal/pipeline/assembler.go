package pipeline

import (
	"time"

	"github.com/MrWong99/intervox/pkg/audio"
)

// Default assembler thresholds. They were tuned by ear and are configurable.
const (
	DefaultSilenceThreshold = time.Second
	DefaultMinSpeech        = 800 * time.Millisecond
)

// Utterance is one candidate turn: every frame from the first speech frame
// through the silence run that closed it.
type Utterance struct {
	Frames     []audio.AudioFrame
	PCM        []byte
	SampleRate int

	// Duration covers all frames, trailing silence included.
	Duration time.Duration

	// SpeechDuration spans the first through the last speech frame.
	SpeechDuration time.Duration
}

// AssemblerConfig holds the timing thresholds of an [Assembler].
type AssemblerConfig struct {
	// SilenceThreshold is how long trailing silence must last to close an
	// utterance. Default: 1s.
	SilenceThreshold time.Duration

	// MinSpeech is the shortest speech span kept as a turn. Shorter closed
	// utterances are noise. Default: 800ms.
	MinSpeech time.Duration

	// FrameDuration is used for frames that do not report their own
	// duration. Default: 20ms.
	FrameDuration time.Duration
}

func (c *AssemblerConfig) applyDefaults() {
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = DefaultSilenceThreshold
	}
	if c.MinSpeech < 0 {
		c.MinSpeech = 0
	}
	if c.FrameDuration <= 0 {
		c.FrameDuration = 20 * time.Millisecond
	}
}

// Assembler groups classified frames into utterances.
//
// Time is the frame clock: every pushed frame advances it by the frame's
// duration, so the thresholds hold whether frames arrive in real time or
// from a test slice. Assembler is not safe for concurrent use; it belongs to
// the coordinator goroutine.
type Assembler struct {
	cfg AssemblerConfig

	clock        time.Duration
	active       bool
	frames       []audio.AudioFrame
	speechStart  time.Duration
	speechEnd    time.Duration
	silenceStart time.Duration
	silenceSet   bool

	noise int
}

// NewAssembler returns an inactive Assembler.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	cfg.applyDefaults()
	return &Assembler{cfg: cfg}
}

// Push feeds one classified frame. It returns the finished utterance and true
// when f closes a run of speech long enough to keep.
func (a *Assembler) Push(f audio.AudioFrame, isSpeech bool) (*Utterance, bool) {
	start := a.clock
	d := f.Duration()
	if d <= 0 {
		d = a.cfg.FrameDuration
	}
	a.clock += d
	end := a.clock

	switch {
	case isSpeech && !a.active:
		a.active = true
		a.frames = []audio.AudioFrame{f}
		a.speechStart, a.speechEnd = start, end
		a.silenceSet = false
		return nil, false

	case isSpeech:
		a.frames = append(a.frames, f)
		a.speechEnd = end
		a.silenceSet = false
		return nil, false

	case !a.active:
		return nil, false
	}

	a.frames = append(a.frames, f)
	if !a.silenceSet {
		a.silenceStart, a.silenceSet = start, true
	}
	if end-a.silenceStart < a.cfg.SilenceThreshold {
		return nil, false
	}

	u := a.close()
	if u.SpeechDuration < a.cfg.MinSpeech {
		a.noise++
		return nil, false
	}
	return u, true
}

func (a *Assembler) close() *Utterance {
	u := &Utterance{
		Frames:         a.frames,
		SpeechDuration: a.speechEnd - a.speechStart,
	}
	size := 0
	for _, f := range a.frames {
		size += len(f.Data)
	}
	u.PCM = make([]byte, 0, size)
	for _, f := range a.frames {
		u.PCM = append(u.PCM, f.Data...)
		if f.SampleRate > 0 && u.SampleRate == 0 {
			u.SampleRate = f.SampleRate
		}
		if fd := f.Duration(); fd > 0 {
			u.Duration += fd
		} else {
			u.Duration += a.cfg.FrameDuration
		}
	}

	a.frames = nil
	a.active = false
	a.silenceSet = false
	return u
}

// Active reports whether an utterance is open.
func (a *Assembler) Active() bool { return a.active }

// Reset drops any open utterance. The frame clock keeps running.
func (a *Assembler) Reset() {
	a.frames = nil
	a.active = false
	a.silenceSet = false
}

// Noise returns how many closed utterances were discarded as too short.
func (a *Assembler) Noise() int { return a.noise }
