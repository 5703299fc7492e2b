// Package speech sits between the interview loop and the speech providers.
//
// A [Transcriber] turns an utterance into text and rejects filler. A
// [Speaker] renders a prompt through the primary or fallback voice and plays
// it, holding the device's [Interlock] for the whole playback so that the
// capture path drops the interviewer's own voice.
package speech

import "sync/atomic"

// Interlock mutes capture while the interviewer is speaking. There is one
// per audio device. The zero value is unmuted and ready to use.
type Interlock struct {
	muted atomic.Bool
}

// Mute sets the flag. It reports false if the flag was already set.
func (l *Interlock) Mute() bool { return l.muted.CompareAndSwap(false, true) }

// Unmute clears the flag.
func (l *Interlock) Unmute() { l.muted.Store(false) }

// Muted reports whether capture must drop frames.
func (l *Interlock) Muted() bool { return l.muted.Load() }
