package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/smallnest/convmem/report"
)

// ErrNotFound is returned when a report ID is not present in a store
var ErrNotFound = errors.New("report not found")

// Saver persists run reports
type Saver interface {
	Save(ctx context.Context, r *report.RunReport) error
}

// ReportStore is a Saver that can also read reports back
type ReportStore interface {
	Saver

	// Load retrieves a report by ID
	Load(ctx context.Context, id string) (*report.RunReport, error)

	// List returns the reports for a strategy, oldest first.
	// An empty strategy lists every report.
	List(ctx context.Context, strategy string) ([]*report.RunReport, error)

	// Delete removes a report
	Delete(ctx context.Context, id string) error
}

// ReportWriteError wraps a failure to persist a run's output
type ReportWriteError struct {
	Target string
	Err    error
}

func (e *ReportWriteError) Error() string {
	return fmt.Sprintf("failed to write report to %s: %v", e.Target, e.Err)
}

func (e *ReportWriteError) Unwrap() error {
	return e.Err
}

// Multi saves to every store in order and stops at the first failure
type Multi []Saver

// Save implements Saver
func (m Multi) Save(ctx context.Context, r *report.RunReport) error {
	for _, s := range m {
		if err := s.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// SortByCreated orders reports oldest first, breaking ties by ID
func SortByCreated(reports []*report.RunReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].ID < reports[j].ID
		}
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})
}
