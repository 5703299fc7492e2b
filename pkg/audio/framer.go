package audio

import "time"

// Framer re-chunks an arbitrary stream of mono PCM into frames of exactly
// FrameBytes(sampleRate, frameMs) bytes. Bytes that do not fill a whole frame
// are carried over to the next Write, so partial frames are never emitted.
//
// A Framer is not safe for concurrent use.
type Framer struct {
	sampleRate int
	frameSize  int
	frameDur   time.Duration
	buf        []byte
	next       time.Duration
}

// NewFramer returns a Framer for mono s16le PCM at sampleRate producing
// frameMs-millisecond frames.
func NewFramer(sampleRate, frameMs int) *Framer {
	return &Framer{
		sampleRate: sampleRate,
		frameSize:  FrameBytes(sampleRate, frameMs),
		frameDur:   time.Duration(frameMs) * time.Millisecond,
	}
}

// Write appends pcm and calls emit for every complete frame now available.
// Each emitted frame owns its Data slice.
func (f *Framer) Write(pcm []byte, emit func(AudioFrame)) {
	if f.frameSize <= 0 {
		return
	}
	f.buf = append(f.buf, pcm...)
	for len(f.buf) >= f.frameSize {
		data := make([]byte, f.frameSize)
		copy(data, f.buf[:f.frameSize])
		f.buf = f.buf[f.frameSize:]
		emit(AudioFrame{
			Data:       data,
			SampleRate: f.sampleRate,
			Channels:   1,
			Timestamp:  f.next,
		})
		f.next += f.frameDur
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
}

// Pending returns the number of buffered bytes not yet forming a frame.
func (f *Framer) Pending() int { return len(f.buf) }

// Reset discards any buffered partial frame.
func (f *Framer) Reset() { f.buf = nil }
