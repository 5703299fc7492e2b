// Package audio defines the PCM frame type and the device abstraction used by
// the interview pipeline.
//
// All PCM in this package is little-endian signed 16-bit. Unless stated
// otherwise, buffers are mono.
//
// A [Device] is the single full-duplex endpoint a session talks to: it
// delivers captured frames through a callback and plays synthesised speech
// back, blocking until playback has finished. Implementations live in
// sub-packages (audio/local for the host microphone and speaker, audio/mock
// for tests) and in the transport layer for remote clients.
package audio

import (
	"context"
	"time"
)

// BytesPerSample is the width of one s16le sample.
const BytesPerSample = 2

// AudioFrame is a fixed-duration slice of PCM audio. Frames are immutable once
// produced; consumers must not modify Data.
type AudioFrame struct {
	// Data holds the PCM bytes.
	Data []byte

	// SampleRate in Hz (16000 for the interview pipeline).
	SampleRate int

	// Channels is 1 for mono.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Samples returns the number of samples per channel in the frame.
func (f AudioFrame) Samples() int {
	ch := f.Channels
	if ch <= 0 {
		ch = 1
	}
	return len(f.Data) / (BytesPerSample * ch)
}

// Duration returns the playback duration of the frame.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Samples()) * time.Second / time.Duration(f.SampleRate)
}

// FrameBytes returns the exact byte length of a mono s16le frame lasting
// frameMs milliseconds at sampleRate.
func FrameBytes(sampleRate, frameMs int) int {
	return sampleRate * frameMs / 1000 * BytesPerSample
}

// PCMDuration returns the playback duration of a mono s16le buffer.
func PCMDuration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// Device is a full-duplex audio endpoint.
//
// Implementations must be safe for concurrent use: Start's callback runs on a
// capture goroutine while Play is called from the processing loop.
type Device interface {
	// Start begins capture. onFrame is invoked once per captured frame on an
	// internal goroutine and must not block. Start returns once capture is
	// running; capture stops when ctx is cancelled or Close is called.
	Start(ctx context.Context, onFrame func(AudioFrame)) error

	// Play renders mono PCM at sampleRate and blocks until playback has
	// finished, ctx is cancelled, or the device fails.
	Play(ctx context.Context, pcm []byte, sampleRate int) error

	// Close stops capture and releases the device. Calling Close more than
	// once is safe.
	Close() error
}
