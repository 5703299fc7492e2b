// Package record defines the persisted outcome of an interview session and
// the storage interface it is written through.
//
// A [Record] is written exactly once, when the session ends. Backends live in
// sub-packages: record/file writes one JSON document per interview,
// record/postgres keeps a queryable table, and record/mock is for tests.
// [Multi] fans a single Save out to several backends.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by [Store.Get] when no record has the given ID.
var ErrNotFound = errors.New("record: not found")

// Exchange is one candidate answer and the interviewer's reaction to it.
type Exchange struct {
	Round        int    `json:"round"`
	Candidate    string `json:"candidate"`
	Evaluation   string `json:"evaluation"`
	NextQuestion string `json:"next_question"`

	// Timestamp is the offset from session start, in seconds.
	Timestamp float64 `json:"timestamp"`
}

// Record is the complete, immutable result of one interview.
type Record struct {
	InterviewID     string     `json:"interview_id"`
	InterviewType   string     `json:"interview_type"`
	RoleTitle       string     `json:"role_title"`
	Company         string     `json:"company"`
	DurationMinutes float64    `json:"duration_minutes"`
	TotalExchanges  int        `json:"total_exchanges"`
	Conversation    []Exchange `json:"conversation"`
	FinalFeedback   string     `json:"final_feedback"`
	Timestamp       time.Time  `json:"timestamp"`

	// Config is the interview profile the session ran with.
	Config json.RawMessage `json:"config,omitempty"`
}

// Summary is the listing view of a record.
type Summary struct {
	InterviewID     string    `json:"interview_id"`
	InterviewType   string    `json:"interview_type"`
	RoleTitle       string    `json:"role_title"`
	DurationMinutes float64   `json:"duration_minutes"`
	TotalExchanges  int       `json:"total_exchanges"`
	Timestamp       time.Time `json:"timestamp"`
}

// Summarise returns the listing view of r.
func (r *Record) Summarise() Summary {
	return Summary{
		InterviewID:     r.InterviewID,
		InterviewType:   r.InterviewType,
		RoleTitle:       r.RoleTitle,
		DurationMinutes: r.DurationMinutes,
		TotalExchanges:  r.TotalExchanges,
		Timestamp:       r.Timestamp,
	}
}

// Validate reports whether r can be stored.
func (r *Record) Validate() error {
	if r == nil {
		return errors.New("record: nil record")
	}
	if r.InterviewID == "" {
		return errors.New("record: interview_id is required")
	}
	if r.TotalExchanges != len(r.Conversation) {
		return errors.New("record: total_exchanges does not match conversation length")
	}
	return nil
}

// Store persists interview records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save writes r, replacing any record with the same ID.
	Save(ctx context.Context, r *Record) error

	// Get returns the record for id or [ErrNotFound].
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit summaries, newest first. A non-positive limit
	// returns every record.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Close releases backend resources.
	Close() error
}
