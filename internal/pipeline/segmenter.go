// Package pipeline turns a stream of captured audio frames into interview
// turns.
//
// The flow is one-way: the device callback offers frames to a [FrameQueue];
// a single [Coordinator] goroutine reads them, classifies each with a
// [Segmenter], feeds the result to an [Assembler], and dispatches every
// finished [Utterance] to transcription, the dialogue generator and speech
// output. While the interviewer speaks the device's interlock is set and the
// queue drops captured frames at the source.
package pipeline

import (
	"log/slog"
	"sync/atomic"

	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/provider/vad"
)

// Segmenter classifies single frames as speech or non-speech. It keeps no
// memory between frames and is safe for concurrent use.
type Segmenter struct {
	cls        vad.Classifier
	frameBytes int
	rejected   atomic.Int64
}

// NewSegmenter returns a Segmenter accepting only frames of exactly
// frameMs milliseconds of mono s16le audio at sampleRate.
func NewSegmenter(cls vad.Classifier, sampleRate, frameMs int) *Segmenter {
	return &Segmenter{cls: cls, frameBytes: audio.FrameBytes(sampleRate, frameMs)}
}

// Classify reports whether f contains speech. Frames of the wrong length and
// classifier failures count as non-speech: a false positive could hold an
// utterance open forever, a false negative only loses one frame.
func (s *Segmenter) Classify(f audio.AudioFrame) bool {
	if len(f.Data) != s.frameBytes {
		s.rejected.Add(1)
		slog.Debug("frame rejected", "bytes", len(f.Data), "want", s.frameBytes)
		return false
	}
	speech, err := s.cls.IsSpeech(f.Data)
	if err != nil {
		s.rejected.Add(1)
		slog.Debug("vad classify failed", "err", err)
		return false
	}
	return speech
}

// Rejected returns how many frames were treated as non-speech because of a
// size mismatch or classifier error.
func (s *Segmenter) Rejected() int64 { return s.rejected.Load() }
