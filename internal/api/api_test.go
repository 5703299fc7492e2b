package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/intervox/internal/event"
	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/pipeline"
	"github.com/MrWong99/intervox/internal/session"
	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/record"
)

// fakeService is an in-memory [Service].
type fakeService struct {
	mu       sync.Mutex
	profiles map[string]interview.Profile
	status   map[string]session.Status
	records  map[string]*record.Record
	next     int
	noKey    bool

	// connect, when set, replaces the default Connect which blocks until
	// ctx ends.
	connect func(ctx context.Context, id string, dev audio.Device, sink event.Sink) error
	// panicOn makes Status panic for that ID.
	panicOn string
}

func newFakeService() *fakeService {
	return &fakeService{
		profiles: make(map[string]interview.Profile),
		status:   make(map[string]session.Status),
		records:  make(map[string]*record.Record),
	}
}

func (f *fakeService) add(id string, p interview.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[id] = p
	f.status[id] = session.Status{ID: id, State: pipeline.StateNotStarted}
}

func (f *fakeService) Create(_ context.Context, p interview.Profile) (string, error) {
	f.mu.Lock()
	f.next++
	id := fmt.Sprintf("s%d", f.next)
	f.mu.Unlock()
	f.add(id, p)
	return id, nil
}

func (f *fakeService) Status(id string) (session.Status, interview.Profile, error) {
	if id == f.panicOn && id != "" {
		panic("status exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return session.Status{}, interview.Profile{}, fmt.Errorf("fake: %w: %s", ErrUnknownSession, id)
	}
	return f.status[id], p, nil
}

func (f *fakeService) End(_ context.Context, id string) (*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[id]; !ok {
		return nil, fmt.Errorf("fake: %w: %s", ErrUnknownSession, id)
	}
	rec := &record.Record{InterviewID: id, InterviewType: "technical", FinalFeedback: "Well done."}
	f.records[id] = rec
	st := f.status[id]
	st.Ended = true
	f.status[id] = st
	return rec, nil
}

func (f *fakeService) Summary(_ context.Context, id string) (*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, record.ErrNotFound
	}
	return rec, nil
}

func (f *fakeService) History(_ context.Context, limit int) ([]record.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []record.Summary
	for _, rec := range f.records {
		if len(out) == limit {
			break
		}
		out = append(out, rec.Summarise())
	}
	return out, nil
}

func (f *fakeService) Connect(ctx context.Context, id string, dev audio.Device, sink event.Sink) error {
	if f.connect != nil {
		return f.connect(ctx, id, dev, sink)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles)
}

func (f *fakeService) APIKeyConfigured() bool { return !f.noKey }

// do sends one request through the full handler chain and decodes the JSON
// response into a map.
func do(t *testing.T, h http.Handler, method, path, body string, header ...string) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func TestCreate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		body       string
		noKey      bool
		wantCode   int
		wantDetail string
	}{
		{name: "default", path: "/interview/start", wantCode: http.StatusOK},
		{name: "technical", path: "/interview/technical/start", body: `{"technical_categories":["DSA","dbms"]}`, wantCode: http.StatusOK},
		{name: "role based", path: "/interview/role-based/start", body: `{"role_type":"sales","company":"Acme"}`, wantCode: http.StatusOK},
		{name: "invalid category", path: "/interview/technical/start", body: `{"technical_categories":["cooking"]}`, wantCode: http.StatusBadRequest, wantDetail: "Invalid technical categories"},
		{name: "unknown role", path: "/interview/role-based/start", body: `{"role_type":"astronaut"}`, wantCode: http.StatusBadRequest, wantDetail: "Unknown role_type"},
		{name: "missing role", path: "/interview/role-based/start", body: `{}`, wantCode: http.StatusBadRequest, wantDetail: "role_type is required"},
		{name: "malformed body", path: "/interview/start", body: `{`, wantCode: http.StatusBadRequest, wantDetail: "invalid request body"},
		{name: "no api key", path: "/interview/start", noKey: true, wantCode: http.StatusInternalServerError, wantDetail: "API key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newFakeService()
			svc.noKey = tt.noKey
			h := New(Config{Service: svc}).Handler()

			code, body := do(t, h, http.MethodPost, tt.path, tt.body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %v)", code, tt.wantCode, body)
			}
			if tt.wantDetail != "" {
				detail, _ := body["detail"].(string)
				if !strings.Contains(detail, tt.wantDetail) {
					t.Errorf("detail = %q, want it to contain %q", detail, tt.wantDetail)
				}
				return
			}
			if body["status"] != "success" || body["interview_id"] != "s1" {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestCreate_TechnicalSelectsCategories(t *testing.T) {
	t.Parallel()
	svc := newFakeService()
	h := New(Config{Service: svc}).Handler()

	_, body := do(t, h, http.MethodPost, "/interview/technical/start", `{"technical_categories":["DSA"]}`)
	data, _ := body["data"].(map[string]any)
	sel, _ := data["selected_categories"].([]any)
	if len(sel) != 1 || sel[0] != "dsa" {
		t.Errorf("selected_categories = %v", data["selected_categories"])
	}
	if avail, _ := data["available_categories"].(map[string]any); len(avail) != len(interview.Categories()) {
		t.Errorf("available_categories = %v", data["available_categories"])
	}

	// An empty selection means every category.
	_, body = do(t, h, http.MethodPost, "/interview/technical/start", `{}`)
	data, _ = body["data"].(map[string]any)
	if sel, _ := data["selected_categories"].([]any); len(sel) != len(interview.Categories()) {
		t.Errorf("default selected_categories = %v", data["selected_categories"])
	}
}

func TestTables(t *testing.T) {
	t.Parallel()
	h := New(Config{Service: newFakeService()}).Handler()

	code, body := do(t, h, http.MethodGet, "/interview/categories", "")
	if cats, _ := body["categories"].(map[string]any); code != http.StatusOK || cats["dsa"] == nil {
		t.Errorf("categories = %d %v", code, body)
	}
	code, body = do(t, h, http.MethodGet, "/interview/roles", "")
	roles, _ := body["roles"].(map[string]any)
	sales, _ := roles["sales"].(map[string]any)
	if code != http.StatusOK || sales["default_title"] == "" || sales["default_title"] == nil {
		t.Errorf("roles = %d %v", code, body)
	}
}

func TestStatusEndSummary(t *testing.T) {
	t.Parallel()
	svc := newFakeService()
	svc.add("abc", interview.Profile{Type: interview.TypeTechnical, DurationMinutes: 15})
	h := New(Config{Service: svc}).Handler()

	code, body := do(t, h, http.MethodGet, "/interview/abc/status", "")
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if body["status"] != "started" || body["state"] != "not_started" || body["remaining_minutes"] != 15.0 {
		t.Errorf("status body = %v", body)
	}

	// Summary is not available before the interview ended.
	if code, _ := do(t, h, http.MethodGet, "/interview/abc/summary", ""); code != http.StatusNotFound {
		t.Errorf("summary before end = %d, want 404", code)
	}

	code, body = do(t, h, http.MethodDelete, "/interview/abc", "")
	if code != http.StatusOK {
		t.Fatalf("end code = %d", code)
	}
	data, _ := body["data"].(map[string]any)
	if data["final_feedback"] != "Well done." {
		t.Errorf("end body = %v", body)
	}

	code, body = do(t, h, http.MethodGet, "/interview/abc/summary", "")
	if code != http.StatusOK || body["interview_id"] != "abc" {
		t.Errorf("summary = %d %v", code, body)
	}
	_, body = do(t, h, http.MethodGet, "/interview/abc/status", "")
	if body["status"] != "ended" {
		t.Errorf("status after end = %v", body["status"])
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()
	svc := newFakeService()
	svc.add("abc", interview.Profile{Type: interview.TypeTechnical})
	h := New(Config{Service: svc}).Handler()

	code, body := do(t, h, http.MethodGet, "/interviews", "")
	if code != http.StatusOK || body["count"] != 0.0 {
		t.Fatalf("empty history = %d %v", code, body)
	}
	if list, ok := body["interviews"].([]any); !ok || len(list) != 0 {
		t.Errorf("interviews = %v, want empty list", body["interviews"])
	}

	do(t, h, http.MethodDelete, "/interview/abc", "")
	code, body = do(t, h, http.MethodGet, "/interviews?limit=5", "")
	list, _ := body["interviews"].([]any)
	if code != http.StatusOK || len(list) != 1 {
		t.Fatalf("history = %d %v", code, body)
	}
	if first, _ := list[0].(map[string]any); first["interview_id"] != "abc" {
		t.Errorf("first = %v", list[0])
	}

	for _, bad := range []string{"0", "101", "ten"} {
		if code, _ := do(t, h, http.MethodGet, "/interviews?limit="+bad, ""); code != http.StatusBadRequest {
			t.Errorf("limit=%s = %d, want 400", bad, code)
		}
	}
}

func TestUnknownInterview(t *testing.T) {
	t.Parallel()
	h := New(Config{Service: newFakeService()}).Handler()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/interview/nope/status"},
		{http.MethodDelete, "/interview/nope"},
		{http.MethodGet, "/interview/nope/summary"},
	} {
		code, body := do(t, h, tc.method, tc.path, "")
		if code != http.StatusNotFound || body["detail"] != "Interview not found" {
			t.Errorf("%s %s = %d %v", tc.method, tc.path, code, body)
		}
	}
}

func TestHealthAndRoot(t *testing.T) {
	t.Parallel()
	svc := newFakeService()
	svc.add("a", interview.Profile{})
	h := New(Config{Service: svc, Version: "1.2.3"}).Handler()

	code, body := do(t, h, http.MethodGet, "/health", "")
	if code != http.StatusOK || body["status"] != "healthy" || body["active_interviews"] != 1.0 || body["api_key_configured"] != true {
		t.Errorf("health = %d %v", code, body)
	}
	code, body = do(t, h, http.MethodGet, "/", "")
	if code != http.StatusOK || body["version"] != "1.2.3" {
		t.Errorf("root = %d %v", code, body)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()
	h := New(Config{Service: newFakeService(), CORSOrigins: []string{"https://app.example.com"}}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/interview/start", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()
	svc := newFakeService()
	svc.panicOn = "boom"
	h := New(Config{Service: svc}).Handler()

	code, body := do(t, h, http.MethodGet, "/interview/boom/status", "")
	if code != http.StatusInternalServerError || body["detail"] != "internal server error" {
		t.Errorf("panic = %d %v", code, body)
	}
}

func TestOriginPatterns(t *testing.T) {
	t.Parallel()
	got := originPatterns([]string{"https://app.example.com", "localhost:3000"})
	if len(got) != 2 || got[0] != "app.example.com" || got[1] != "localhost:3000" {
		t.Errorf("originPatterns = %v", got)
	}
	if got := originPatterns([]string{"http://a", "*"}); len(got) != 1 || got[0] != "*" {
		t.Errorf("wildcard = %v", got)
	}
}

func TestProtectedRoutes(t *testing.T) {
	t.Parallel()
	svc := newFakeService()
	svc.add("abc", interview.Profile{})
	srv := New(Config{Service: svc, AuthSecret: "s3cret"})
	h := srv.Handler()

	if code, _ := do(t, h, http.MethodGet, "/interview/abc/status", ""); code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", code)
	}
	if code, _ := do(t, h, http.MethodGet, "/interview/abc/status", "", "Authorization", "Bearer garbage"); code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", code)
	}

	tok, err := srv.auth.Issue("tester", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if code, _ := do(t, h, http.MethodGet, "/interview/abc/status", "", "Authorization", "Bearer "+tok); code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", code)
	}
	// Health stays public.
	if code, _ := do(t, h, http.MethodGet, "/health", ""); code != http.StatusOK {
		t.Errorf("health with auth = %d", code)
	}
}
