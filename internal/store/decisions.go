package store

import (
	"context"
	"database/sql"
)

// DecisionRow is the raw persisted shape of a Decision: §3.1, §4.10.
type DecisionRow struct {
	ID         string
	Title      string
	Status     string
	Context    string
	Options    string // JSON array
	Decision   string
	Rationale  string
	Project    string
	Tags       string // JSON array
	CreatedAt  string
	UpdatedAt  string
	DecidedAt  string
	DecidedBy  string
}

// InsertDecision appends a new decision row.
func (s *Store) InsertDecision(ctx context.Context, d DecisionRow) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO decisions
		(id, title, status, context, options, decision, rationale, project, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Status, nullableString(d.Context), d.Options, nullableString(d.Decision),
		nullableString(d.Rationale), nullableString(d.Project), d.Tags, d.CreatedAt, d.UpdatedAt)
	return err
}

// GetDecision returns one decision by id.
func (s *Store) GetDecision(ctx context.Context, id string) (DecisionRow, error) {
	var d DecisionRow
	var context_, decision, rationale, project, decidedAt, decidedBy sql.NullString

	row := s.reader.QueryRowContext(ctx, `SELECT id, title, status, context, options, decision,
		rationale, project, tags, created_at, updated_at, decided_at, decided_by
		FROM decisions WHERE id = ?`, id)
	if err := row.Scan(&d.ID, &d.Title, &d.Status, &context_, &d.Options, &decision, &rationale,
		&project, &d.Tags, &d.CreatedAt, &d.UpdatedAt, &decidedAt, &decidedBy); err != nil {
		return DecisionRow{}, err
	}

	d.Context = context_.String
	d.Decision = decision.String
	d.Rationale = rationale.String
	d.Project = project.String
	d.DecidedAt = decidedAt.String
	d.DecidedBy = decidedBy.String
	return d, nil
}

// ListDecisions returns decisions ordered by created_at descending.
func (s *Store) ListDecisions(ctx context.Context, status string, limit, offset int) ([]DecisionRow, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = ?"
		args = append(args, status)
	}
	args = append(args, limit, offset)

	rows, err := s.reader.QueryContext(ctx, `SELECT id, title, status, context, options, decision,
		rationale, project, tags, created_at, updated_at, decided_at, decided_by FROM decisions `+
		where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRow
	for rows.Next() {
		var d DecisionRow
		var context_, decision, rationale, project, decidedAt, decidedBy sql.NullString
		if err := rows.Scan(&d.ID, &d.Title, &d.Status, &context_, &d.Options, &decision, &rationale,
			&project, &d.Tags, &d.CreatedAt, &d.UpdatedAt, &decidedAt, &decidedBy); err != nil {
			return nil, err
		}
		d.Context = context_.String
		d.Decision = decision.String
		d.Rationale = rationale.String
		d.Project = project.String
		d.DecidedAt = decidedAt.String
		d.DecidedBy = decidedBy.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDecision rewrites the mutable fields of a decision row.
func (s *Store) UpdateDecision(ctx context.Context, d DecisionRow) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE decisions SET
		title = ?, context = ?, options = ?, decision = ?, rationale = ?, project = ?, tags = ?, updated_at = ?
		WHERE id = ?`, d.Title, nullableString(d.Context), d.Options, nullableString(d.Decision),
		nullableString(d.Rationale), nullableString(d.Project), d.Tags, now().Format(timeLayout), d.ID)
	return err
}

// TransitionDecision applies a status change, stamping decided_at/decided_by
// when entering "decided" (§4.10).
func (s *Store) TransitionDecision(ctx context.Context, id, newStatus, decidedBy string) error {
	nowStr := now().Format(timeLayout)
	if newStatus == "decided" {
		_, err := s.writer.ExecContext(ctx, `UPDATE decisions SET
			status = ?, decided_at = ?, decided_by = ?, updated_at = ? WHERE id = ?`,
			newStatus, nowStr, nullableString(decidedBy), nowStr, id)
		return err
	}
	_, err := s.writer.ExecContext(ctx, `UPDATE decisions SET status = ?, updated_at = ? WHERE id = ?`,
		newStatus, nowStr, id)
	return err
}
