package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/pkg/record"
)

const (
	// maxBody bounds request bodies.
	maxBody = 1 << 20

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "AI Interview System is running",
		"status":  "active",
		"version": s.cfg.Version,
		"endpoints": []string{
			"POST /interview/start",
			"POST /interview/technical/start",
			"POST /interview/role-based/start",
			"GET /interview/categories",
			"GET /interview/roles",
			"GET /interview/{id}/status",
			"GET /interview/{id}/summary",
			"DELETE /interview/{id}",
			"GET /interview/{id}/connect",
			"GET /interviews",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"api_key_configured": s.cfg.Service.APIKeyConfigured(),
		"active_interviews":  s.cfg.Service.Active(),
		"timestamp":          float64(s.now().UnixMilli()) / 1000,
	})
}

// ── Create ──────────────────────────────────────────────────────────────────

// technicalRequest is the body of POST /interview/technical/start.
type technicalRequest struct {
	Categories      []string `json:"technical_categories"`
	DurationMinutes int      `json:"session_minutes"`
}

// roleRequest is the body of POST /interview/role-based/start.
type roleRequest struct {
	Role            string   `json:"role_type"`
	RoleTitle       string   `json:"role_title"`
	Company         string   `json:"company"`
	Skills          []string `json:"specific_skills"`
	FocusAreas      []string `json:"interview_focus"`
	DurationMinutes int      `json:"session_minutes"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var p interview.Profile
	if !decode(w, r, &p) {
		return
	}
	s.create(w, r, p, "Interview session created")
}

func (s *Server) handleTechnicalStart(w http.ResponseWriter, r *http.Request) {
	var req technicalRequest
	if !decode(w, r, &req) {
		return
	}
	s.create(w, r, interview.Profile{
		Type:            interview.TypeTechnical,
		Categories:      req.Categories,
		DurationMinutes: req.DurationMinutes,
	}, "Technical interview session created")
}

func (s *Server) handleRoleStart(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		writeError(w, http.StatusBadRequest, "role_type is required")
		return
	}
	s.create(w, r, interview.Profile{
		Type:            interview.TypeRoleBased,
		Role:            req.Role,
		RoleTitle:       req.RoleTitle,
		Company:         req.Company,
		Skills:          req.Skills,
		FocusAreas:      req.FocusAreas,
		DurationMinutes: req.DurationMinutes,
	}, "Role-based interview session created")
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, p interview.Profile, msg string) {
	if !s.cfg.Service.APIKeyConfigured() {
		writeError(w, http.StatusInternalServerError, "LLM API key not configured")
		return
	}
	norm, err := p.Normalise()
	if err != nil {
		var ce *interview.CategoryError
		switch {
		case errors.As(err, &ce):
			writeError(w, http.StatusBadRequest, fmt.Sprintf(
				"Invalid technical categories: %v. Valid options: %v", ce.Invalid, interview.CategoryNames()))
		case errors.Is(err, interview.ErrUnknownRole):
			writeError(w, http.StatusBadRequest, fmt.Sprintf(
				"Unknown role_type %q. Valid options: %v", p.Role, roleNames()))
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	id, err := s.cfg.Service.Create(r.Context(), norm)
	if err != nil {
		slog.Error("create interview failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not create interview")
		return
	}

	data := map[string]any{"config": norm}
	if norm.IsTechnical() {
		selected := norm.Categories
		if len(selected) == 0 {
			selected = interview.CategoryNames()
		}
		data["available_categories"] = categoryMap()
		data["selected_categories"] = selected
	}
	writeJSON(w, http.StatusOK, InterviewResponse{
		Status:      "success",
		Message:     msg,
		InterviewID: id,
		Data:        data,
	})
}

// ── Tables ──────────────────────────────────────────────────────────────────

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":  categoryMap(),
		"description": "Available technical interview categories",
	})
}

func (s *Server) handleRoles(w http.ResponseWriter, _ *http.Request) {
	roles := make(map[string]any)
	for _, role := range interview.Roles() {
		roles[role.Name] = map[string]string{
			"description":   role.Description,
			"default_title": role.DefaultTitle,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"roles":       roles,
		"description": "Available role types for role-based interviews",
	})
}

func categoryMap() map[string]string {
	m := make(map[string]string)
	for _, c := range interview.Categories() {
		m[c.Name] = c.Description
	}
	return m
}

func roleNames() []string {
	var out []string
	for _, role := range interview.Roles() {
		out = append(out, role.Name)
	}
	return out
}

// ── Session ─────────────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, p, err := s.cfg.Service.Status(id)
	if err != nil {
		s.lookupError(w, err)
		return
	}
	status := "started"
	switch {
	case st.Ended:
		status = "ended"
	case st.Started:
		status = "active"
	}
	remaining := st.Remaining
	if !st.Started {
		remaining = p.Duration(0)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interview_id":      id,
		"status":            status,
		"state":             st.State.String(),
		"interview_type":    p.Type,
		"elapsed_minutes":   st.Elapsed.Minutes(),
		"total_exchanges":   st.Exchanges,
		"remaining_minutes": remaining.Minutes(),
	})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.cfg.Service.End(r.Context(), id)
	if err != nil && rec == nil {
		s.lookupError(w, err)
		return
	}
	if err != nil {
		slog.Warn("interview ended with error", "interview_id", id, "err", err)
	}
	writeJSON(w, http.StatusOK, InterviewResponse{
		Status:      "success",
		Message:     "Interview ended successfully",
		InterviewID: id,
		Data:        map[string]any{"summary": rec.Summarise(), "final_feedback": rec.FinalFeedback},
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.Service.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}
	list, err := s.cfg.Service.History(r.Context(), limit)
	if err != nil {
		slog.Error("list interviews failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []record.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"interviews": list, "count": len(list)})
}

func (s *Server) lookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownSession) || errors.Is(err, record.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Interview not found")
		return
	}
	slog.Error("interview lookup failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decode reads a JSON body into v. An empty body leaves v unchanged. On
// failure it writes a 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
	return false
}
