// Package redis archives run reports in Redis as JSON documents, indexed by
// strategy.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/convmem/report"
	"github.com/smallnest/convmem/store"
)

// Store implements store.ReportStore using Redis
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.ReportStore = (*Store)(nil)

// Options configuration for Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "convmem:"
	TTL      time.Duration // Expiration for reports, default 0 (no expiration)
}

// New creates a Redis report store
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.Prefix, opts.TTL)
}

// NewWithClient creates a store over an existing client
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "convmem:"
	}
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) reportKey(id string) string {
	return fmt.Sprintf("%sreport:%s", s.prefix, id)
}

func (s *Store) indexKey(strategy string) string {
	if strategy == "" {
		return s.prefix + "reports"
	}
	return fmt.Sprintf("%sstrategy:%s:reports", s.prefix, strategy)
}

// Close closes the client
func (s *Store) Close() error {
	return s.client.Close()
}

// Save stores a report and indexes it under its strategy
func (s *Store) Save(ctx context.Context, r *report.RunReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return &store.ReportWriteError{Target: "redis", Err: err}
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.reportKey(r.ID), data, s.ttl)
	for _, key := range []string{s.indexKey(""), s.indexKey(r.Strategy)} {
		pipe.SAdd(ctx, key, r.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return &store.ReportWriteError{Target: "redis", Err: err}
	}
	return nil
}

// Load retrieves a report by ID
func (s *Store) Load(ctx context.Context, id string) (*report.RunReport, error) {
	data, err := s.client.Get(ctx, s.reportKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load report from redis: %w", err)
	}

	var r report.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// List returns the reports for strategy, oldest first. Index entries whose
// report has expired are skipped.
func (s *Store) List(ctx context.Context, strategy string) ([]*report.RunReport, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(strategy)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for strategy %q: %w", strategy, err)
	}
	if len(ids) == 0 {
		return []*report.RunReport{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.reportKey(id)
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}

	reports := make([]*report.RunReport, 0, len(results))
	for _, result := range results {
		str, ok := result.(string)
		if !ok {
			continue
		}
		var r report.RunReport
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, &r)
	}

	store.SortByCreated(reports)
	return reports, nil
}

// Delete removes a report and its index entries
func (s *Store) Delete(ctx context.Context, id string) error {
	r, err := s.Load(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.reportKey(id))
	pipe.SRem(ctx, s.indexKey(""), id)
	pipe.SRem(ctx, s.indexKey(r.Strategy), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}
