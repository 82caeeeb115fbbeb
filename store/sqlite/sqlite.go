// Package sqlite archives run reports in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
)

// Store implements store.ReportStore using SQLite
type Store struct {
	db        *sql.DB
	tableName string
}

var _ store.ReportStore = (*Store)(nil)

// Options configuration for SQLite connection
type Options struct {
	Path      string
	TableName string // Default "run_reports"
}

// New opens the database at opts.Path and creates the schema
func New(opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "run_reports"
	}

	s := &Store{
		db:        db,
		tableName: tableName,
	}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			strategy TEXT NOT NULL,
			report TEXT NOT NULL,
			total_tokens INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_strategy ON %s (strategy);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a report, replacing any row with the same ID
func (s *Store) Save(ctx context.Context, r *report.RunReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return &store.ReportWriteError{Target: "sqlite:" + s.tableName, Err: err}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, strategy, report, total_tokens, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			strategy = excluded.strategy,
			report = excluded.report,
			total_tokens = excluded.total_tokens,
			created_at = excluded.created_at
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query, r.ID, r.Strategy, string(data), r.TotalTokens(), r.CreatedAt); err != nil {
		return &store.ReportWriteError{Target: "sqlite:" + s.tableName, Err: err}
	}
	return nil
}

// Load retrieves a report by ID
func (s *Store) Load(ctx context.Context, id string) (*report.RunReport, error) {
	query := fmt.Sprintf("SELECT report FROM %s WHERE id = ?", s.tableName)

	var data string
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return decode(data)
}

// List returns the reports for strategy, oldest first
func (s *Store) List(ctx context.Context, strategy string) ([]*report.RunReport, error) {
	query := fmt.Sprintf(`
		SELECT report FROM %s
		WHERE (? = '' OR strategy = ?)
		ORDER BY created_at ASC, id ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, strategy, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*report.RunReport
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		r, err := decode(data)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}
	return reports, nil
}

// Delete removes a report
func (s *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

func decode(data string) (*report.RunReport, error) {
	var r report.RunReport
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}
