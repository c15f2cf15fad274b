package store

import (
	"context"
	"database/sql"
	"fmt"
)

// TypeCounts maps a document type to its row count.
type TypeCounts map[string]int

// DocumentCountsByType returns the number of documents per type, plus the
// grand total (§4.11 summary).
func (s *Store) DocumentCountsByType(ctx context.Context) (TypeCounts, int, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT type, COUNT(1) FROM oracle_documents GROUP BY type`)
	if err != nil {
		return nil, 0, fmt.Errorf("store: document counts: %w", err)
	}
	defer rows.Close()

	counts := TypeCounts{}
	total := 0
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, 0, err
		}
		counts[t] = n
		total += n
	}
	return counts, total, rows.Err()
}

// LogCountSince counts rows in one of the four append-only log tables
// created after the given timestamp. table must be one of the fixed
// literals the caller passes from dashboard.go; never user input.
func (s *Store) LogCountSince(ctx context.Context, table, since string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE created_at > ?`, table)
	var n int
	err := s.reader.QueryRowContext(ctx, query, since).Scan(&n)
	return n, err
}

// ActivityRow is one row of §4.11's activity feed, already truncated.
type ActivityRow struct {
	Kind      string
	Summary   string
	CreatedAt string
}

// RecentSearchLog returns the most recent search_log rows, capped at limit.
func (s *Store) RecentSearchLog(ctx context.Context, limit int) ([]ActivityRow, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT query, created_at FROM search_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivity(rows, "search")
}

// RecentConsultLog returns the most recent consult_log rows, capped at limit.
func (s *Store) RecentConsultLog(ctx context.Context, limit int) ([]ActivityRow, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT decision, created_at FROM consult_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivity(rows, "consult")
}

// RecentLearnLog returns the most recent learn_log rows, capped at limit.
func (s *Store) RecentLearnLog(ctx context.Context, limit int) ([]ActivityRow, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT pattern_preview, created_at FROM learn_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivity(rows, "learn")
}

func scanActivity(rows *sql.Rows, kind string) ([]ActivityRow, error) {
	var out []ActivityRow
	for rows.Next() {
		var summary, createdAt string
		if err := rows.Scan(&summary, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, ActivityRow{Kind: kind, Summary: truncateActivity(summary, 120), CreatedAt: createdAt})
	}
	return out, rows.Err()
}

func truncateActivity(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// GrowthPoint is one day's counts for §4.11 growth.
type GrowthPoint struct {
	Day           string
	NewDocuments  int
	Consultations int
	Searches      int
}

// GrowthSeries returns per-day counts over the last `days` days, oldest
// first, for the three series growth() aggregates.
func (s *Store) GrowthSeries(ctx context.Context, days int) ([]GrowthPoint, error) {
	docs, err := dailyCounts(ctx, s.reader, "oracle_documents", days)
	if err != nil {
		return nil, err
	}
	consults, err := dailyCounts(ctx, s.reader, "consult_log", days)
	if err != nil {
		return nil, err
	}
	searches, err := dailyCounts(ctx, s.reader, "search_log", days)
	if err != nil {
		return nil, err
	}

	merged := map[string]*GrowthPoint{}
	var order []string
	apply := func(counts map[string]int, assign func(*GrowthPoint, int)) {
		for day, n := range counts {
			p, ok := merged[day]
			if !ok {
				p = &GrowthPoint{Day: day}
				merged[day] = p
				order = append(order, day)
			}
			assign(p, n)
		}
	}
	apply(docs, func(p *GrowthPoint, n int) { p.NewDocuments = n })
	apply(consults, func(p *GrowthPoint, n int) { p.Consultations = n })
	apply(searches, func(p *GrowthPoint, n int) { p.Searches = n })

	sortStrings(order)
	out := make([]GrowthPoint, 0, len(order))
	for _, d := range order {
		out = append(out, *merged[d])
	}
	return out, nil
}

func dailyCounts(ctx context.Context, reader *sql.DB, table string, days int) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT substr(created_at, 1, 10) AS day, COUNT(1)
		FROM %s
		WHERE created_at > datetime('now', ?)
		GROUP BY day`, table)
	rows, err := reader.QueryContext(ctx, query, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("store: daily counts %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
