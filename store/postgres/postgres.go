// Package postgres archives run reports in PostgreSQL as JSONB rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.ReportStore using PostgreSQL
type Store struct {
	pool      DBPool
	tableName string
}

var _ store.ReportStore = (*Store)(nil)

// Options configuration for Postgres connection
type Options struct {
	ConnString string
	TableName  string // Default "run_reports"
}

// New creates a Postgres report store and ensures its schema exists
func New(ctx context.Context, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := NewWithPool(pool, opts.TableName)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool creates a store with an existing pool.
// Useful for testing with mocks
func NewWithPool(pool DBPool, tableName string) *Store {
	if tableName == "" {
		tableName = "run_reports"
	}
	return &Store{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			strategy TEXT NOT NULL,
			report JSONB NOT NULL,
			total_tokens INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_strategy ON %s (strategy);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Save stores a report, replacing any row with the same ID
func (s *Store) Save(ctx context.Context, r *report.RunReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return &store.ReportWriteError{Target: "postgres:" + s.tableName, Err: err}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, strategy, report, total_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			strategy = EXCLUDED.strategy,
			report = EXCLUDED.report,
			total_tokens = EXCLUDED.total_tokens,
			created_at = EXCLUDED.created_at
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query, r.ID, r.Strategy, data, r.TotalTokens(), r.CreatedAt); err != nil {
		return &store.ReportWriteError{Target: "postgres:" + s.tableName, Err: err}
	}
	return nil
}

// Load retrieves a report by ID
func (s *Store) Load(ctx context.Context, id string) (*report.RunReport, error) {
	query := fmt.Sprintf("SELECT report FROM %s WHERE id = $1", s.tableName)

	var data []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return decode(data)
}

// List returns the reports for strategy, oldest first
func (s *Store) List(ctx context.Context, strategy string) ([]*report.RunReport, error) {
	query := fmt.Sprintf("SELECT report FROM %s WHERE ($1 = '' OR strategy = $1) ORDER BY created_at ASC, id ASC", s.tableName)

	rows, err := s.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*report.RunReport
	for rows.Next() {
		var data []byte
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
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

func decode(data []byte) (*report.RunReport, error) {
	var r report.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}
