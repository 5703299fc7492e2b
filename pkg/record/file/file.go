// Package file stores interview records as indented JSON documents, one file
// per interview named interview_summary_{id}.json.
//
// Writes go to a temporary file in the same directory and are renamed into
// place, so readers never observe a partial document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MrWong99/intervox/pkg/record"
)

const (
	filePrefix = "interview_summary_"
	fileSuffix = ".json"
)

// Store is a directory-backed [record.Store].
type Store struct {
	dir string
}

// New returns a Store writing to dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("record file: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory records are written to.
func (s *Store) Dir() string { return s.dir }

// Path returns the file a record with id is stored at.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, filePrefix+sanitise(id)+fileSuffix)
}

// Save writes r atomically.
func (s *Store) Save(ctx context.Context, r *record.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("record file: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".interview-*.tmp")
	if err != nil {
		return fmt.Errorf("record file: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("record file: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("record file: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(r.InterviewID)); err != nil {
		return fmt.Errorf("record file: rename: %w", err)
	}
	return nil
}

// Get reads the record for id.
func (s *Store) Get(_ context.Context, id string) (*record.Record, error) {
	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record file: read: %w", err)
	}
	var r record.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("record file: decode %s: %w", id, err)
	}
	return &r, nil
}

// List reads every record in the directory. Unreadable files are skipped.
func (s *Store) List(ctx context.Context, limit int) ([]record.Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("record file: list: %w", err)
	}
	var out []record.Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		r, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, r.Summarise())
	}
	slices.SortFunc(out, func(a, b record.Summary) int { return b.Timestamp.Compare(a.Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// sanitise keeps ids from escaping the directory.
func sanitise(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

var _ record.Store = (*Store)(nil)
