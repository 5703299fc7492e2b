// Package api exposes interview sessions over HTTP and WebSocket.
//
// REST endpoints create, inspect and end sessions; a WebSocket connection to
// /interview/{id}/connect carries the candidate's microphone audio in and the
// interviewer's voice and session events out. Creating a session only
// registers it; the interview starts when the client connects.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/intervox/internal/event"
	"github.com/MrWong99/intervox/internal/health"
	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/session"
	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/record"
)

// ErrUnknownSession must be wrapped by every [Service] method that is given
// an ID it does not know.
var ErrUnknownSession = errors.New("api: unknown session")

// ErrConflict must be wrapped by [Service.Connect] when the session cannot
// take a connection right now, for example because it is already running.
var ErrConflict = errors.New("api: conflict")

// Service is the session registry the API drives.
type Service interface {
	// Create registers a session for p and returns its ID. p is normalised.
	Create(ctx context.Context, p interview.Profile) (string, error)

	// Status returns the live status and profile of a session.
	Status(id string) (session.Status, interview.Profile, error)

	// End stops the session, if running, and returns its final record.
	End(ctx context.Context, id string) (*record.Record, error)

	// Summary returns the stored record of a finished session.
	Summary(ctx context.Context, id string) (*record.Record, error)

	// History lists up to limit finished sessions, newest first.
	History(ctx context.Context, limit int) ([]record.Summary, error)

	// Connect runs the interview on dev, publishing events to sink, and
	// blocks until it has ended. Cancelling ctx stops the interview.
	Connect(ctx context.Context, id string, dev audio.Device, sink event.Sink) error

	// Active returns the number of registered, unfinished sessions.
	Active() int

	// APIKeyConfigured reports whether the primary LLM has credentials.
	APIKeyConfigured() bool
}

// Config configures a [Server].
type Config struct {
	Service Service

	// AuthSecret enables HS256 bearer authentication when non-empty.
	AuthSecret string

	// CORSOrigins lists allowed origins. Empty means "*".
	CORSOrigins []string

	// Health serves /healthz and /readyz. Optional.
	Health *health.Handler

	// Metrics instruments every request. May be nil.
	Metrics *observe.Metrics

	// SampleRate is the rate of client audio. Default: 16000.
	SampleRate int

	// FrameMs is the capture frame length. Default: 20.
	FrameMs int

	// Version is reported by the banner endpoint.
	Version string

	// OnSessionError receives resource failures of WebSocket sessions, for
	// error reporting. Optional.
	OnSessionError func(ctx context.Context, id string, err error)
}

// Server routes API requests. Create it with [New].
type Server struct {
	cfg  Config
	auth *Authenticator
	mux  *http.ServeMux
	now  func() time.Time
}

// New returns a Server with every route registered.
func New(cfg Config) *Server {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameMs <= 0 {
		cfg.FrameMs = 20
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	s := &Server{cfg: cfg, mux: http.NewServeMux(), now: time.Now}
	if cfg.AuthSecret != "" {
		s.auth = NewAuthenticator(cfg.AuthSecret)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	if s.cfg.Health != nil {
		s.cfg.Health.Register(s.mux)
	}

	s.mux.Handle("POST /interview/start", s.protect(s.handleStart))
	s.mux.Handle("POST /interview/technical/start", s.protect(s.handleTechnicalStart))
	s.mux.Handle("POST /interview/role-based/start", s.protect(s.handleRoleStart))
	s.mux.Handle("GET /interview/categories", s.protect(s.handleCategories))
	s.mux.Handle("GET /interview/roles", s.protect(s.handleRoles))
	s.mux.Handle("GET /interview/{id}/status", s.protect(s.handleStatus))
	s.mux.Handle("DELETE /interview/{id}", s.protect(s.handleEnd))
	s.mux.Handle("GET /interview/{id}/summary", s.protect(s.handleSummary))
	s.mux.Handle("GET /interviews", s.protect(s.handleHistory))

	// The browser WebSocket API cannot set headers; the token travels in the
	// query string and is checked by the handler.
	s.mux.HandleFunc("GET /interview/{id}/connect", s.handleConnect)
}

// Handler returns the root handler with recovery, CORS and instrumentation.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = observe.Middleware(s.cfg.Metrics)(h)
	h = withCORS(s.cfg.CORSOrigins, h)
	h = withRecovery(h)
	return h
}

func (s *Server) protect(fn http.HandlerFunc) http.Handler {
	if s.auth == nil {
		return fn
	}
	return s.auth.Middleware(fn)
}

// ── Responses ───────────────────────────────────────────────────────────────

// InterviewResponse is the envelope of every interview endpoint.
type InterviewResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	InterviewID string `json:"interview_id,omitempty"`
	Data        any    `json:"data,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Detail: msg})
}
