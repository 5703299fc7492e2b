// Package vad defines the frame-level voice activity classifier used by the
// interview pipeline.
//
// A [Classifier] answers one question for one frame: does it contain speech?
// It carries no memory between calls; hang-over and smoothing are the job of
// the utterance assembler, which sees the whole stream.
package vad

import (
	"errors"
	"fmt"
)

// ErrFrameSize is returned when a frame does not match the configured
// duration × sample rate.
var ErrFrameSize = errors.New("vad: frame size mismatch")

// Mode is the classifier aggressiveness. Higher modes reject more non-speech
// at the cost of missing quiet speech. Valid range: 0–3.
type Mode int

// Config holds the parameters a classifier is built with.
type Config struct {
	// SampleRate is the PCM sample rate in Hz. Common values: 8000, 16000, 48000.
	SampleRate int

	// FrameSizeMs is the frame duration in milliseconds (10, 20 or 30).
	FrameSizeMs int

	// Mode is the aggressiveness, 0 (least) to 3 (most).
	Mode Mode
}

// FrameBytes returns the exact byte length of a mono s16le frame under c.
func (c Config) FrameBytes() int {
	return c.SampleRate * c.FrameSizeMs / 1000 * 2
}

// Validate reports whether c describes a usable classifier.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("vad: sample rate %d must be positive", c.SampleRate)
	case c.FrameSizeMs != 10 && c.FrameSizeMs != 20 && c.FrameSizeMs != 30:
		return fmt.Errorf("vad: frame size %d ms not supported (10, 20, 30)", c.FrameSizeMs)
	case c.Mode < 0 || c.Mode > 3:
		return fmt.Errorf("vad: mode %d out of range [0, 3]", c.Mode)
	}
	return nil
}

// Classifier decides whether a single PCM frame contains speech.
//
// IsSpeech must be a pure function of the frame bytes and safe for concurrent
// use. It returns [ErrFrameSize] (possibly wrapped) when the frame length does
// not match the configuration.
type Classifier interface {
	IsSpeech(frame []byte) (bool, error)
}
