package main

import (
	"context"
	"fmt"
	"io"

	"github.com/smallnest/convmem/config"
	"github.com/smallnest/convmem/store"
	"github.com/smallnest/convmem/store/memory"
	"github.com/smallnest/convmem/store/postgres"
	"github.com/smallnest/convmem/store/redis"
	"github.com/smallnest/convmem/store/sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// openArchive returns the archive store selected by cfg, or nil for "none"
func openArchive(ctx context.Context, cfg config.ArchiveConfig) (store.ReportStore, io.Closer, error) {
	switch cfg.Backend {
	case "", config.ArchiveNone:
		return nil, nopCloser{}, nil
	case config.ArchiveMemory:
		return memory.New(), nopCloser{}, nil
	case config.ArchiveSQLite:
		s, err := sqlite.New(sqlite.Options{Path: cfg.Path, TableName: cfg.Table})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.ArchiveRedis:
		s := redis.New(redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.Prefix,
			TTL:      cfg.TTL,
		})
		return s, s, nil
	case config.ArchivePostgres:
		s, err := postgres.New(ctx, postgres.Options{ConnString: cfg.DSN, TableName: cfg.Table})
		if err != nil {
			return nil, nil, err
		}
		return s, closerFunc(s.Close), nil
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
