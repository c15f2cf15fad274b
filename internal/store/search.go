package store

import (
	"context"
	"fmt"
)

// KeywordRow is one row of a keyword-index search result, carrying the
// raw fts5 rank so Retrieval can apply §4.5.5's normalization.
type KeywordRow struct {
	ID         string
	Type       DocType
	Title      string
	Content    string
	SourceFile string
	Concepts   []string
	Project    string
	Rank       float64
}

// KeywordSearch runs the sanitized query against oracle_fts joined with
// oracle_documents, applying the type and project filters, ordered by the
// index's internal rank, capped at limit rows (§4.5.4).
func (s *Store) KeywordSearch(ctx context.Context, query string, docType DocType, filter ProjectFilter, limit int) ([]KeywordRow, error) {
	clauses := []string{"oracle_fts MATCH ?"}
	args := []interface{}{query}

	if docType != "" && docType != TypeAll {
		clauses = append(clauses, "d.type = ?")
		args = append(args, string(docType))
	}
	if pc, pargs := filter.clause("d.project"); pc != "" {
		clauses = append(clauses, pc)
		args = append(args, pargs...)
	}

	where := ""
	for i, c := range clauses {
		if i == 0 {
			where = "WHERE " + c
		} else {
			where += " AND " + c
		}
	}

	args = append(args, limit)

	sqlStr := fmt.Sprintf(`SELECT d.id, d.type, d.title, f.content, d.source_file, d.concepts, d.project, f.rank
		FROM oracle_fts f
		JOIN oracle_documents d ON d.id = f.id
		%s
		ORDER BY f.rank
		LIMIT ?`, where)

	rows, err := s.reader.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("store: keyword search: %w", err)
	}
	defer rows.Close()

	var out []KeywordRow
	for rows.Next() {
		var r KeywordRow
		var concepts, project string
		if err := rows.Scan(&r.ID, &r.Type, &r.Title, &r.Content, &r.SourceFile, &concepts, &project, &r.Rank); err != nil {
			return nil, fmt.Errorf("store: scan keyword row: %w", err)
		}
		r.Concepts = splitConcepts(concepts)
		r.Project = project
		out = append(out, r)
	}
	return out, rows.Err()
}

// KeywordSearchTotal returns the total matching row count for the same
// filters as KeywordSearch, without a limit (§4.5.4).
func (s *Store) KeywordSearchTotal(ctx context.Context, query string, docType DocType, filter ProjectFilter) (int, error) {
	clauses := []string{"oracle_fts MATCH ?"}
	args := []interface{}{query}

	if docType != "" && docType != TypeAll {
		clauses = append(clauses, "d.type = ?")
		args = append(args, string(docType))
	}
	if pc, pargs := filter.clause("d.project"); pc != "" {
		clauses = append(clauses, pc)
		args = append(args, pargs...)
	}

	where := ""
	for i, c := range clauses {
		if i == 0 {
			where = "WHERE " + c
		} else {
			where += " AND " + c
		}
	}

	sqlStr := fmt.Sprintf(`SELECT COUNT(1) FROM oracle_fts f JOIN oracle_documents d ON d.id = f.id %s`, where)

	var total int
	if err := s.reader.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("store: keyword total: %w", err)
	}
	return total, nil
}

// RandomDocument returns one random principle or learning document, for
// oracle_reflect (§4.12, §9 "randomness in reflect").
func (s *Store) RandomDocument(ctx context.Context) (Document, string, error) {
	var id string
	err := s.reader.QueryRowContext(ctx,
		`SELECT id FROM oracle_documents WHERE type IN ('principle','learning') ORDER BY RANDOM() LIMIT 1`).Scan(&id)
	if err != nil {
		return Document{}, "", err
	}
	return s.GetDocument(ctx, id)
}

// ConceptCount is one row of §4.11's concept-tag aggregation.
type ConceptCount struct {
	Concept string
	Count   int
}

// ConceptCounts returns concept tag frequencies across oracle_documents,
// optionally filtered by type, sorted descending, capped at limit.
func (s *Store) ConceptCounts(ctx context.Context, docType DocType, limit int) ([]ConceptCount, error) {
	where := ""
	args := []interface{}{}
	if docType != "" && docType != TypeAll {
		where = "WHERE type = ?"
		args = append(args, string(docType))
	}

	rows, err := s.reader.QueryContext(ctx, fmt.Sprintf(`SELECT concepts FROM oracle_documents %s`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("store: concept counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var concepts string
		if err := rows.Scan(&concepts); err != nil {
			return nil, err
		}
		for _, c := range splitConcepts(concepts) {
			counts[c]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ConceptCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, ConceptCount{Concept: c, Count: n})
	}
	sortConceptCounts(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortConceptCounts(cc []ConceptCount) {
	for i := 1; i < len(cc); i++ {
		for j := i; j > 0 && less(cc[j], cc[j-1]); j-- {
			cc[j], cc[j-1] = cc[j-1], cc[j]
		}
	}
}

func less(a, b ConceptCount) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Concept < b.Concept
}

// GroupedDocument is one row of oracle_list's groupByFile projection.
type GroupedDocument struct {
	ID         string
	Type       DocType
	Title      string
	SourceFile string
	Concepts   []string
	Project    string
	IndexedAt  string
}

// ListDocuments returns documents of docType, optionally grouped by
// source_file (picking the row with MAX(indexed_at) per file, §4.12,
// §9 note 4), ordered by indexed_at descending, paginated.
func (s *Store) ListDocuments(ctx context.Context, docType DocType, groupByFile bool, limit, offset int) ([]GroupedDocument, error) {
	where := ""
	args := []interface{}{}
	if docType != "" && docType != TypeAll {
		where = "WHERE type = ?"
		args = append(args, string(docType))
	}

	var sqlStr string
	if groupByFile {
		sqlStr = fmt.Sprintf(`SELECT id, type, title, source_file, concepts, project, indexed_at FROM oracle_documents d
			%s
			AND indexed_at = (
				SELECT MAX(indexed_at) FROM oracle_documents d2 WHERE d2.source_file = d.source_file
			)
			GROUP BY source_file
			ORDER BY indexed_at DESC
			LIMIT ? OFFSET ?`, withAnd(where))
	} else {
		sqlStr = fmt.Sprintf(`SELECT id, type, title, source_file, concepts, project, indexed_at FROM oracle_documents
			%s
			ORDER BY indexed_at DESC
			LIMIT ? OFFSET ?`, where)
	}
	args = append(args, limit, offset)

	rows, err := s.reader.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []GroupedDocument
	for rows.Next() {
		var g GroupedDocument
		var concepts, project string
		if err := rows.Scan(&g.ID, &g.Type, &g.Title, &g.SourceFile, &concepts, &project, &g.IndexedAt); err != nil {
			return nil, err
		}
		g.Concepts = splitConcepts(concepts)
		g.Project = project
		out = append(out, g)
	}
	return out, rows.Err()
}

func withAnd(where string) string {
	if where == "" {
		return "WHERE 1=1"
	}
	return where
}

// GraphDocuments returns every principle plus a random sample of up to
// sampleLimit learnings, for oracle_graph's concept-overlap node set
// (§6.3): principles are small and stable in number, learnings are not,
// so only learnings are sampled.
func (s *Store) GraphDocuments(ctx context.Context, sampleLimit int) ([]GroupedDocument, error) {
	principles, err := s.documentsByType(ctx, TypePrinciple, "indexed_at DESC", 0)
	if err != nil {
		return nil, fmt.Errorf("store: graph principles: %w", err)
	}
	learnings, err := s.documentsByType(ctx, TypeLearning, "RANDOM()", sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("store: graph learnings: %w", err)
	}
	return append(principles, learnings...), nil
}

func (s *Store) documentsByType(ctx context.Context, docType DocType, order string, limit int) ([]GroupedDocument, error) {
	sqlStr := fmt.Sprintf(`SELECT id, type, title, source_file, concepts, project, indexed_at
		FROM oracle_documents WHERE type = ? ORDER BY %s`, order)
	args := []interface{}{string(docType)}
	if limit > 0 {
		sqlStr += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.reader.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupedDocument
	for rows.Next() {
		var g GroupedDocument
		var concepts, project string
		if err := rows.Scan(&g.ID, &g.Type, &g.Title, &g.SourceFile, &concepts, &project, &g.IndexedAt); err != nil {
			return nil, err
		}
		g.Concepts = splitConcepts(concepts)
		g.Project = project
		out = append(out, g)
	}
	return out, rows.Err()
}
