// Package file writes run reports to disk: the rendered markdown artifact,
// optionally an HTML copy, and a JSON record used to load reports back.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
)

const runsDir = "runs"

// WriteReport writes content to path under a "# header" title line,
// creating parent directories as needed.
func WriteReport(path, content, header string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &store.ReportWriteError{Target: path, Err: err}
	}

	var sb strings.Builder
	if header != "" {
		sb.WriteString("# ")
		sb.WriteString(header)
		sb.WriteString("\n\n")
	}
	sb.WriteString(content)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return &store.ReportWriteError{Target: path, Err: err}
	}
	return nil
}

// Store writes reports under a directory
type Store struct {
	dir  string
	html bool
}

var _ store.ReportStore = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithHTML also writes a sanitized HTML rendering next to each artifact
func WithHTML() Option {
	return func(s *Store) {
		s.html = true
	}
}

// New creates a Store rooted at dir, creating it if missing
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, runsDir), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create report directory: %w", err)
	}
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ArtifactPath returns where the markdown artifact for r is written
func (s *Store) ArtifactPath(r *report.RunReport) string {
	return filepath.Join(s.dir, r.FileName())
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, runsDir, id+".json")
}

// Save writes the artifact and the JSON record for r
func (s *Store) Save(ctx context.Context, r *report.RunReport) error {
	path := s.ArtifactPath(r)
	if err := WriteReport(path, r.Render(), r.Header()); err != nil {
		return err
	}

	if s.html {
		htmlPath := strings.TrimSuffix(path, ".md") + ".html"
		if err := os.WriteFile(htmlPath, r.RenderHTML(), 0o644); err != nil {
			return &store.ReportWriteError{Target: htmlPath, Err: err}
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return &store.ReportWriteError{Target: s.recordPath(r.ID), Err: err}
	}
	if err := os.WriteFile(s.recordPath(r.ID), data, 0o644); err != nil {
		return &store.ReportWriteError{Target: s.recordPath(r.ID), Err: err}
	}
	return nil
}

// Load reads the JSON record of a report
func (s *Store) Load(ctx context.Context, id string) (*report.RunReport, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r report.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// List returns the recorded reports for strategy, oldest first
func (s *Store) List(ctx context.Context, strategy string) ([]*report.RunReport, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, runsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var reports []*report.RunReport
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		r, err := s.Load(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		if strategy == "" || r.Strategy == strategy {
			reports = append(reports, r)
		}
	}
	store.SortByCreated(reports)
	return reports, nil
}

// Delete removes the JSON record of a report. The artifact is shared by
// every run of the same strategy and is left in place.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := os.Remove(s.recordPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}
