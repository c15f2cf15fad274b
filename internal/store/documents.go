package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ProjectFilterMode selects how a query's project filter is applied: §4.5.2.
type ProjectFilterMode int

const (
	// ProjectFilterNone applies no project filter at all.
	ProjectFilterNone ProjectFilterMode = iota
	// ProjectFilterWith returns rows matching the project or universal (NULL) rows.
	ProjectFilterWith
	// ProjectFilterNullOnly returns only universal (NULL) rows.
	ProjectFilterNullOnly
)

// ProjectFilter is the resolved project-scoping decision for one query.
type ProjectFilter struct {
	Mode    ProjectFilterMode
	Project string
}

func (f ProjectFilter) clause(column string) (string, []interface{}) {
	switch f.Mode {
	case ProjectFilterWith:
		return fmt.Sprintf("(%s = ? OR %s IS NULL)", column, column), []interface{}{f.Project}
	case ProjectFilterNullOnly:
		return fmt.Sprintf("%s IS NULL", column), nil
	default:
		return "", nil
	}
}

// UpsertDocument writes (or overwrites) a document's metadata row and
// keyword-index row atomically. content is the chunked text; it is never
// persisted on the metadata row (§3.2).
func (s *Store) UpsertDocument(ctx context.Context, doc Document, content string) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin upsert: %w", err)
	}
	defer tx.Rollback()

	concepts := strings.Join(doc.Concepts, " ")

	var supersededAt, distilledAt sql.NullString
	if doc.SupersededAt != nil {
		supersededAt = sql.NullString{String: doc.SupersededAt.Format(timeLayout), Valid: true}
	}
	_ = distilledAt

	_, err = tx.ExecContext(ctx, `INSERT INTO oracle_documents
		(id, type, title, source_file, concepts, project, created_at, updated_at, indexed_at,
		 superseded_by, superseded_at, superseded_reason, origin, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type=excluded.type, title=excluded.title, source_file=excluded.source_file,
			concepts=excluded.concepts, project=excluded.project, updated_at=excluded.updated_at,
			indexed_at=excluded.indexed_at, superseded_by=excluded.superseded_by,
			superseded_at=excluded.superseded_at, superseded_reason=excluded.superseded_reason,
			origin=excluded.origin, created_by=excluded.created_by`,
		doc.ID, string(doc.Type), doc.Title, doc.SourceFile, concepts, nullableString(doc.Project),
		doc.CreatedAt.Format(timeLayout), doc.UpdatedAt.Format(timeLayout), doc.IndexedAt.Format(timeLayout),
		nullableString(doc.SupersededBy), supersededAt, nullableString(doc.SupersededReason),
		nullableString(doc.Origin), nullableString(doc.CreatedBy))
	if err != nil {
		return fmt.Errorf("store: upsert document metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM oracle_fts WHERE id = ?`, doc.ID); err != nil {
		return fmt.Errorf("store: clear stale fts row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO oracle_fts (id, type, title, content, concepts)
		VALUES (?, ?, ?, ?, ?)`, doc.ID, string(doc.Type), doc.Title, content, concepts); err != nil {
		return fmt.Errorf("store: insert fts row: %w", err)
	}

	return tx.Commit()
}

// GetDocument returns one document's metadata plus its indexed content.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, string, error) {
	var doc Document
	var project, supersededBy, supersededAt, supersededReason, origin, createdBy sql.NullString
	var concepts string
	var createdAt, updatedAt, indexedAt string

	row := s.reader.QueryRowContext(ctx, `SELECT id, type, title, source_file, concepts, project,
		created_at, updated_at, indexed_at, superseded_by, superseded_at, superseded_reason, origin, created_by
		FROM oracle_documents WHERE id = ?`, id)
	if err := row.Scan(&doc.ID, &doc.Type, &doc.Title, &doc.SourceFile, &concepts, &project,
		&createdAt, &updatedAt, &indexedAt, &supersededBy, &supersededAt, &supersededReason, &origin, &createdBy); err != nil {
		if err == sql.ErrNoRows {
			return Document{}, "", sql.ErrNoRows
		}
		return Document{}, "", fmt.Errorf("store: get document: %w", err)
	}

	var content string
	if err := s.reader.QueryRowContext(ctx, `SELECT content FROM oracle_fts WHERE id = ?`, id).Scan(&content); err != nil && err != sql.ErrNoRows {
		return Document{}, "", fmt.Errorf("store: get document content: %w", err)
	}

	doc.Concepts = splitConcepts(concepts)
	doc.Project = project.String
	doc.SupersededBy = supersededBy.String
	doc.SupersededReason = supersededReason.String
	doc.Origin = origin.String
	doc.CreatedBy = createdBy.String
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	doc.IndexedAt = parseTime(indexedAt)

	return doc, content, nil
}

// ProjectsOf looks up the project slug for each of the given document ids,
// used by Retrieval to join vector results back against the metadata
// table before applying the project filter (§4.5.2).
func (s *Store) ProjectsOf(ctx context.Context, ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.reader.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, project FROM oracle_documents WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("store: projects of: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var project sql.NullString
		if err := rows.Scan(&id, &project); err != nil {
			return nil, err
		}
		result[id] = project.String
	}
	return result, rows.Err()
}

// ClearAll truncates both indices. This is the only deviation from the
// append-only invariant, bracketing the full re-index job (§4.4).
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM oracle_fts`); err != nil {
		return fmt.Errorf("store: clear fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM oracle_documents`); err != nil {
		return fmt.Errorf("store: clear documents: %w", err)
	}
	return tx.Commit()
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func splitConcepts(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
