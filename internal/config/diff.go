package config

import (
	"reflect"
	"slices"
)

// Change describes a single field that differs between two configs.
type Change struct {
	Field string
	Old   any
	New   any
}

// ConfigDiff describes what changed between two configs. Only the interview
// timing block and the log level are applied without a restart; everything
// else is reported in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// Interview lists changed fields of the interview block.
	Interview []Change

	// RestartRequired names top-level sections that changed but are only
	// read at startup.
	RestartRequired []string
}

// InterviewChanged reports whether any interview setting changed.
func (d ConfigDiff) InterviewChanged() bool { return len(d.Interview) > 0 }

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && len(d.Interview) == 0 && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	o, n := old.Interview, new.Interview
	add := func(field string, a, b any) {
		if a != b {
			d.Interview = append(d.Interview, Change{Field: field, Old: a, New: b})
		}
	}
	add("session_minutes", o.SessionMinutes, n.SessionMinutes)
	add("silence_threshold", o.SilenceThreshold, n.SilenceThreshold)
	add("min_speech", o.MinSpeech, n.MinSpeech)
	add("max_silence_gap", o.MaxSilenceGap, n.MaxSilenceGap)
	add("retry_attempts", o.RetryAttempts, n.RetryAttempts)
	add("retry_backoff", o.RetryBackoff, n.RetryBackoff)
	add("max_tts_chars", o.MaxTTSChars, n.MaxTTSChars)
	add("summary_timeout", o.SummaryTimeout, n.SummaryTimeout)
	add("history_turns", o.HistoryTurns, n.HistoryTurns)
	add("poll_interval", o.PollInterval, n.PollInterval)

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.AuthSecret != new.Server.AuthSecret ||
		!slices.Equal(old.Server.CORSOrigins, new.Server.CORSOrigins) {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if !providersEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if !audioEqual(old.Audio, new.Audio) {
		d.RestartRequired = append(d.RestartRequired, "audio")
	}
	if old.Storage != new.Storage {
		d.RestartRequired = append(d.RestartRequired, "storage")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}
	return d
}

func providersEqual(a, b ProvidersConfig) bool {
	ae, be := a.entries(), b.entries()
	for i := range ae {
		x, y := ae[i], be[i]
		if x.Name != y.Name || x.APIKey != y.APIKey || x.BaseURL != y.BaseURL || x.Model != y.Model {
			return false
		}
		if len(x.Options) != len(y.Options) || (len(x.Options) > 0 && !reflect.DeepEqual(x.Options, y.Options)) {
			return false
		}
	}
	return true
}

func audioEqual(a, b AudioConfig) bool {
	modeA, modeB := -1, -1
	if a.VADMode != nil {
		modeA = *a.VADMode
	}
	if b.VADMode != nil {
		modeB = *b.VADMode
	}
	return a.SampleRate == b.SampleRate && a.FrameMs == b.FrameMs &&
		a.QueueSize == b.QueueSize && a.Device == b.Device && modeA == modeB
}
