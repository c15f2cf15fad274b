// Package store is oracle-v2's embedded relational store: a single-writer,
// many-reader wrapper over modernc.org/sqlite with an FTS5 virtual table
// for keyword search. All access goes through prepared, parameterized
// queries on *Store; no package holds its own *sql.DB.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xaxixak/oracle-v2/internal/logging"
)

// Store owns the sqlite connection pool: one writer connection (enforced
// by SetMaxOpenConns(1) on a dedicated handle) and a separate read pool,
// matching §4.1's single-writer/many-reader contract.
type Store struct {
	writer *sql.DB
	reader *sql.DB
	log    *logging.Logger
}

// Open opens (and if absent, creates and bootstraps) the database file at
// path. Corruption at open time is fatal, per §4.1.
func Open(path string, log *logging.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("store: open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := writer.Ping(); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("store: corrupt or unreadable database: %w", err)
	}

	s := &Store{writer: writer, reader: reader, log: log}

	if err := s.bootstrap(); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("store: bootstrap: %w", err)
	}

	return s, nil
}

// Close releases both connection pools.
func (s *Store) Close() error {
	werr := s.writer.Close()
	rerr := s.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// now is overridable in tests; production code always uses wall time,
// matching §4.3's "timestamps are indexer time, not source mtime" rule.
var now = func() time.Time { return time.Now().UTC() }
