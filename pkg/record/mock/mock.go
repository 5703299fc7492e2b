// Package mock provides an in-memory [record.Store] for tests.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/intervox/pkg/record"
)

// Store is a mock implementation of [record.Store] backed by a map.
type Store struct {
	mu      sync.Mutex
	records map[string]*record.Record

	// SaveErr, if non-nil, is returned by Save and nothing is stored.
	SaveErr error

	// GetErr, if non-nil, is returned by Get.
	GetErr error

	// SaveCalls records every Save invocation in order.
	SaveCalls []*record.Record

	// Closed reports whether Close was called.
	Closed bool
}

// Save records the call and stores r.
func (s *Store) Save(_ context.Context, r *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCalls = append(s.SaveCalls, r)
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if s.records == nil {
		s.records = make(map[string]*record.Record)
	}
	s.records[r.InterviewID] = r
	return nil
}

// Get returns the stored record or [record.ErrNotFound].
func (s *Store) Get(_ context.Context, id string) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	r, ok := s.records[id]
	if !ok {
		return nil, record.ErrNotFound
	}
	return r, nil
}

// List returns summaries newest first.
func (s *Store) List(_ context.Context, limit int) ([]record.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.Summary, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Summarise())
	}
	slices.SortFunc(out, func(a, b record.Summary) int { return b.Timestamp.Compare(a.Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// SaveCount returns the number of Save calls.
func (s *Store) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SaveCalls)
}

var _ record.Store = (*Store)(nil)
