// Package store persists conversation run reports.
//
// Every run writes its markdown artifact through store/file. The other
// sub-packages archive the structured report so that runs of different
// strategies can be compared later:
//
//   - store/memory keeps reports in process, mostly for tests
//   - store/sqlite writes to a local SQLite database
//   - store/redis writes JSON documents to Redis with optional TTL
//   - store/postgres writes JSONB rows through a pgx pool
//
// All of them implement ReportStore. Multi fans a single Save out to
// several stores:
//
//	artifacts, err := file.New("outputs")
//	if err != nil {
//		return err
//	}
//	archive, err := sqlite.New(sqlite.Options{Path: "runs.db"})
//	if err != nil {
//		return err
//	}
//	defer archive.Close()
//
//	saver := store.Multi{artifacts, archive}
//
// Failures are reported as *ReportWriteError so callers can tell a lost
// artifact apart from other errors with errors.As.
package store
