package store

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// bootstrap applies the embedded migration scripts in lexical order,
// idempotently. A schema_migrations table tracks which have already run.
func (s *Store) bootstrap() error {
	if _, err := s.writer.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		row := s.writer.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, name)
		if err := row.Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		script, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.writer.Exec(string(script)); err != nil {
			if !isDuplicateColumn(err) {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
			// Column already present: swallowed per §4.1.
		}

		if _, err := s.writer.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, now().Format(timeLayout)); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}

// timeLayout is the wire/storage format for every timestamp column.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"
