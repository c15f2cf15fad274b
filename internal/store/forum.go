package store

import (
	"context"
	"database/sql"
)

// ForumThreadRow is the raw persisted shape of a forum thread: §3.1, §4.9.
type ForumThreadRow struct {
	ID                  string
	Title               string
	Status              string
	Project             string
	ExternalIssueURL    string
	ExternalIssueNumber int
	ExternalSyncedAt    string
	CreatedAt           string
	UpdatedAt           string
}

// ForumMessageRow is the raw persisted shape of one thread message.
type ForumMessageRow struct {
	ID              int64
	ThreadID        string
	Role            string
	Content         string
	Author          string
	PrinciplesFound *int
	PatternsFound   *int
	SearchQuery     string
	CommentID       string
	CreatedAt       string
}

// InsertThread creates a new forum thread.
func (s *Store) InsertThread(ctx context.Context, t ForumThreadRow) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO forum_threads
		(id, title, status, project, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Status, nullableString(t.Project), t.CreatedAt, t.UpdatedAt)
	return err
}

// GetThread returns one thread by id.
func (s *Store) GetThread(ctx context.Context, id string) (ForumThreadRow, error) {
	var t ForumThreadRow
	var project, url, syncedAt sql.NullString
	var number sql.NullInt64

	row := s.reader.QueryRowContext(ctx, `SELECT id, title, status, project, external_issue_url,
		external_issue_number, external_synced_at, created_at, updated_at FROM forum_threads WHERE id = ?`, id)
	if err := row.Scan(&t.ID, &t.Title, &t.Status, &project, &url, &number, &syncedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return ForumThreadRow{}, err
	}
	t.Project = project.String
	t.ExternalIssueURL = url.String
	t.ExternalIssueNumber = int(number.Int64)
	t.ExternalSyncedAt = syncedAt.String
	return t, nil
}

// ListThreads returns threads ordered by updated_at descending.
func (s *Store) ListThreads(ctx context.Context, status string, limit, offset int) ([]ForumThreadRow, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = ?"
		args = append(args, status)
	}
	args = append(args, limit, offset)

	rows, err := s.reader.QueryContext(ctx, `SELECT id, title, status, project, external_issue_url,
		external_issue_number, external_synced_at, created_at, updated_at FROM forum_threads `+
		where+` ORDER BY updated_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ForumThreadRow
	for rows.Next() {
		var t ForumThreadRow
		var project, url, syncedAt sql.NullString
		var number sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &project, &url, &number, &syncedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Project = project.String
		t.ExternalIssueURL = url.String
		t.ExternalIssueNumber = int(number.Int64)
		t.ExternalSyncedAt = syncedAt.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateThreadStatus sets a thread's status: §4.9's unconstrained lifecycle.
func (s *Store) UpdateThreadStatus(ctx context.Context, id, status string) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE forum_threads SET status = ?, updated_at = ? WHERE id = ?`,
		status, now().Format(timeLayout), id)
	return err
}

// TouchThread bumps a thread's updated_at: §4.9 step 4.
func (s *Store) TouchThread(ctx context.Context, id string) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE forum_threads SET updated_at = ? WHERE id = ?`,
		now().Format(timeLayout), id)
	return err
}

// InsertMessage appends a message to a thread.
func (s *Store) InsertMessage(ctx context.Context, m ForumMessageRow) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO forum_messages
		(thread_id, role, content, author, principles_found, patterns_found, search_query, comment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ThreadID, m.Role, m.Content, nullableString(m.Author), nullableInt(m.PrinciplesFound),
		nullableInt(m.PatternsFound), nullableString(m.SearchQuery), nullableString(m.CommentID), m.CreatedAt)
	return err
}

// ListMessages returns a thread's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, threadID string) ([]ForumMessageRow, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT id, thread_id, role, content, author,
		principles_found, patterns_found, search_query, comment_id, created_at
		FROM forum_messages WHERE thread_id = ? ORDER BY id ASC`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ForumMessageRow
	for rows.Next() {
		var m ForumMessageRow
		var author, searchQuery, commentID sql.NullString
		var principles, patterns sql.NullInt64
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &author, &principles, &patterns,
			&searchQuery, &commentID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Author = author.String
		m.SearchQuery = searchQuery.String
		m.CommentID = commentID.String
		if principles.Valid {
			v := int(principles.Int64)
			m.PrinciplesFound = &v
		}
		if patterns.Valid {
			v := int(patterns.Int64)
			m.PatternsFound = &v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
