// Package memory provides an in-process ReportStore.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
)

// Store keeps reports in a map. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	reports map[string]*report.RunReport
}

var _ store.ReportStore = (*Store)(nil)

// New creates an empty in-memory store
func New() *Store {
	return &Store{reports: make(map[string]*report.RunReport)}
}

// Save stores a copy of r, replacing any report with the same ID
func (s *Store) Save(ctx context.Context, r *report.RunReport) error {
	cp := *r
	s.mu.Lock()
	s.reports[r.ID] = &cp
	s.mu.Unlock()
	return nil
}

// Load retrieves a report by ID
func (s *Store) Load(ctx context.Context, id string) (*report.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	cp := *r
	return &cp, nil
}

// List returns the reports for strategy, oldest first
func (s *Store) List(ctx context.Context, strategy string) ([]*report.RunReport, error) {
	s.mu.RLock()
	var out []*report.RunReport
	for _, r := range s.reports {
		if strategy == "" || r.Strategy == strategy {
			cp := *r
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	store.SortByCreated(out)
	return out, nil
}

// Delete removes a report
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	delete(s.reports, id)
	return nil
}

// Len returns the number of stored reports
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
