package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/intervox/pkg/record"
	"github.com/MrWong99/intervox/pkg/record/file"
)

func sample(id string, at time.Time) *record.Record {
	return &record.Record{
		InterviewID:     id,
		InterviewType:   "technical",
		RoleTitle:       "Technical Interview",
		DurationMinutes: 4.5,
		TotalExchanges:  1,
		Conversation: []record.Exchange{
			{Round: 1, Candidate: "I build APIs in Go.", Evaluation: "Clear.", NextQuestion: "How do you test them?", Timestamp: 42.5},
		},
		FinalFeedback: "Solid.",
		Timestamp:     at,
		Config:        []byte(`{"interview_type":"technical"}`),
	}
}

func TestStore_SaveGet(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := file.New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	want := sample("abc-123", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "interview_summary_abc-123.json")); err != nil {
		t.Fatalf("summary file missing: %v", err)
	}

	got, err := s.Get(ctx, "abc-123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FinalFeedback != want.FinalFeedback || len(got.Conversation) != 1 || got.Conversation[0].NextQuestion != "How do you test them?" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}

	// No temp files are left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestStore_GetNotFound(t *testing.T) {
	t.Parallel()
	s, _ := file.New(t.TempDir())
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_RejectsInvalid(t *testing.T) {
	t.Parallel()
	s, _ := file.New(t.TempDir())
	r := sample("", time.Now())
	if err := s.Save(context.Background(), r); err == nil {
		t.Error("expected error for empty interview id")
	}
}

func TestStore_PathIsSanitised(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, _ := file.New(dir)
	p := s.Path("../../etc/passwd")
	if filepath.Dir(p) != filepath.Clean(dir) {
		t.Errorf("path %q escapes %q", p, dir)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	t.Parallel()
	s, _ := file.New(t.TempDir())
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, sample(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].InterviewID != "c" || list[1].InterviewID != "b" {
		t.Errorf("list = %+v", list)
	}
}
