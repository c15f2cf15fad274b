package store

import (
	"context"
	"database/sql"
)

// TraceRow is the raw persisted shape of a Trace: dig-point arrays are
// carried as JSON text; internal/trace is responsible for the typed
// in-memory representation (§9 "JSON on the wire, typed internally").
type TraceRow struct {
	ID              string
	Query           string
	QueryType       string
	Files           string
	Commits         string
	Issues          string
	Retros          string
	Learnings       string
	Resonance       string
	FileCount       int
	CommitCount     int
	IssueCount      int
	Depth           int
	ParentTraceID   string
	ChildTraceIDs   string
	Status          string
	Awakening       string
	DistilledToID   string
	DistilledAt     string
	CreatedAt       string
	UpdatedAt       string
}

// InsertTrace appends a new trace row: §4.8 create.
func (s *Store) InsertTrace(ctx context.Context, t TraceRow) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO traces
		(id, query, query_type, files, commits, issues, retros, learnings, resonance,
		 file_count, commit_count, issue_count, depth, parent_trace_id, child_trace_ids,
		 status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Query, nullableString(t.QueryType), t.Files, t.Commits, t.Issues, t.Retros, t.Learnings, t.Resonance,
		t.FileCount, t.CommitCount, t.IssueCount, t.Depth, nullableString(t.ParentTraceID), t.ChildTraceIDs,
		t.Status, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetTrace returns one trace row by id.
func (s *Store) GetTrace(ctx context.Context, id string) (TraceRow, error) {
	var t TraceRow
	var queryType, parent, awakening, distilledTo, distilledAt sql.NullString

	row := s.reader.QueryRowContext(ctx, `SELECT id, query, query_type, files, commits, issues, retros,
		learnings, resonance, file_count, commit_count, issue_count, depth, parent_trace_id,
		child_trace_ids, status, awakening, distilled_to_id, distilled_at, created_at, updated_at
		FROM traces WHERE id = ?`, id)
	if err := row.Scan(&t.ID, &t.Query, &queryType, &t.Files, &t.Commits, &t.Issues, &t.Retros,
		&t.Learnings, &t.Resonance, &t.FileCount, &t.CommitCount, &t.IssueCount, &t.Depth, &parent,
		&t.ChildTraceIDs, &t.Status, &awakening, &distilledTo, &distilledAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return TraceRow{}, err
	}

	t.QueryType = queryType.String
	t.ParentTraceID = parent.String
	t.Awakening = awakening.String
	t.DistilledToID = distilledTo.String
	t.DistilledAt = distilledAt.String
	return t, nil
}

// ListTraces returns summary rows ordered by created_at descending: §4.8 list.
func (s *Store) ListTraces(ctx context.Context, limit, offset int) ([]TraceRow, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT id, query, query_type, files, commits, issues, retros,
		learnings, resonance, file_count, commit_count, issue_count, depth, parent_trace_id,
		child_trace_ids, status, awakening, distilled_to_id, distilled_at, created_at, updated_at
		FROM traces ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TraceRow
	for rows.Next() {
		var t TraceRow
		var queryType, parent, awakening, distilledTo, distilledAt sql.NullString
		if err := rows.Scan(&t.ID, &t.Query, &queryType, &t.Files, &t.Commits, &t.Issues, &t.Retros,
			&t.Learnings, &t.Resonance, &t.FileCount, &t.CommitCount, &t.IssueCount, &t.Depth, &parent,
			&t.ChildTraceIDs, &t.Status, &awakening, &distilledTo, &distilledAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.QueryType = queryType.String
		t.ParentTraceID = parent.String
		t.Awakening = awakening.String
		t.DistilledToID = distilledTo.String
		t.DistilledAt = distilledAt.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTraceWithParentLink inserts a new trace row and, if parentID is
// non-empty, rewrites the parent's child_trace_ids in the same
// transaction (§4.8 create: "appends the child id onto the parent's
// child_trace_ids").
func (s *Store) CreateTraceWithParentLink(ctx context.Context, t TraceRow, parentID, childTraceIDsJSON string) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO traces
		(id, query, query_type, files, commits, issues, retros, learnings, resonance,
		 file_count, commit_count, issue_count, depth, parent_trace_id, child_trace_ids,
		 status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Query, nullableString(t.QueryType), t.Files, t.Commits, t.Issues, t.Retros, t.Learnings, t.Resonance,
		t.FileCount, t.CommitCount, t.IssueCount, t.Depth, nullableString(t.ParentTraceID), t.ChildTraceIDs,
		t.Status, t.CreatedAt, t.UpdatedAt); err != nil {
		return err
	}

	if parentID != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE traces SET child_trace_ids = ?, updated_at = ? WHERE id = ?`,
			childTraceIDsJSON, t.UpdatedAt, parentID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateTraceChildren rewrites a parent's child_trace_ids array: §4.8 create,
// "appends the child id onto the parent's child_trace_ids" transactionally.
func (s *Store) UpdateTraceChildren(ctx context.Context, parentID, childTraceIDsJSON string) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE traces SET child_trace_ids = ?, updated_at = ? WHERE id = ?`,
		childTraceIDsJSON, now().Format(timeLayout), parentID)
	return err
}

// DistillTrace marks a trace distilled: §4.8 distill.
func (s *Store) DistillTrace(ctx context.Context, id, awakening, distilledToID string) error {
	nowStr := now().Format(timeLayout)
	_, err := s.writer.ExecContext(ctx, `UPDATE traces SET
		status = 'distilled', awakening = ?, distilled_to_id = ?, distilled_at = ?, updated_at = ?
		WHERE id = ?`, awakening, nullableString(distilledToID), nowStr, nowStr, id)
	return err
}
