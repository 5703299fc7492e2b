package pipeline

// State is the coordinator's position in the turn cycle.
type State int

const (
	StateNotStarted State = iota
	StateListening
	StateProcessing
	StateSpeaking
	StateNudging
	StateEnded
)

// String returns the lowercase wire name of s.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateNudging:
		return "nudging"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
