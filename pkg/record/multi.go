package record

import (
	"context"
	"errors"
	"fmt"
)

// Multi writes every record to all of its stores and reads from the first
// store that has it. The first store is the primary: List is served from it.
type Multi struct {
	stores []Store
}

// NewMulti returns a Multi over stores. Nil stores are skipped.
func NewMulti(stores ...Store) *Multi {
	m := &Multi{}
	for _, s := range stores {
		if s != nil {
			m.stores = append(m.stores, s)
		}
	}
	return m
}

// Save writes r to every store. All stores are attempted; the returned error
// joins every failure.
func (m *Multi) Save(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var errs []error
	for i, s := range m.stores {
		if err := s.Save(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("record: store %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Get returns the record from the first store that has it.
func (m *Multi) Get(ctx context.Context, id string) (*Record, error) {
	var errs []error
	for _, s := range m.stores {
		r, err := s.Get(ctx, id)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNotFound
}

// List is served by the primary store.
func (m *Multi) List(ctx context.Context, limit int) ([]Summary, error) {
	if len(m.stores) == 0 {
		return nil, nil
	}
	return m.stores[0].List(ctx, limit)
}

// Close closes every store and joins the errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.stores {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Len returns the number of stores.
func (m *Multi) Len() int { return len(m.stores) }

var _ Store = (*Multi)(nil)
