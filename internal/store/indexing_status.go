package store

import (
	"context"
	"database/sql"
)

// GetIndexingStatus reads the singleton indexing_status row.
func (s *Store) GetIndexingStatus(ctx context.Context) (IndexingStatus, error) {
	var st IndexingStatus
	var startedAt, completedAt, errMsg sql.NullString
	var isIndexing int

	row := s.reader.QueryRowContext(ctx, `SELECT is_indexing, progress_current, progress_total,
		started_at, completed_at, error FROM indexing_status WHERE id = 1`)
	if err := row.Scan(&isIndexing, &st.ProgressCurrent, &st.ProgressTotal, &startedAt, &completedAt, &errMsg); err != nil {
		return IndexingStatus{}, err
	}

	st.IsIndexing = isIndexing != 0
	st.StartedAt = parseTimePtr(startedAt.String)
	st.CompletedAt = parseTimePtr(completedAt.String)
	st.Error = errMsg.String
	return st, nil
}

// SetIndexingStarted begins a new indexing job: §4.4 step 1.
func (s *Store) SetIndexingStarted(ctx context.Context, progressTotal int) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE indexing_status SET
		is_indexing = 1, progress_current = 0, progress_total = ?, started_at = ?, completed_at = NULL, error = NULL
		WHERE id = 1`, progressTotal, now().Format(timeLayout))
	return err
}

// SetIndexingProgress updates progress_current mid-run.
func (s *Store) SetIndexingProgress(ctx context.Context, current int) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE indexing_status SET progress_current = ? WHERE id = 1`, current)
	return err
}

// SetIndexingCompleted marks a successful run: §4.4 step 6.
func (s *Store) SetIndexingCompleted(ctx context.Context, total int) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE indexing_status SET
		is_indexing = 0, progress_current = ?, completed_at = ?, error = NULL WHERE id = 1`, total, now().Format(timeLayout))
	return err
}

// SetIndexingFailed marks a failed run: §4.4 step 6.
func (s *Store) SetIndexingFailed(ctx context.Context, message string) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE indexing_status SET
		is_indexing = 0, error = ?, completed_at = ? WHERE id = 1`, message, now().Format(timeLayout))
	return err
}

// ResetIndexingOnStartup clears a stale is_indexing=1 left by a crashed
// process, per §4.4's "if we are starting, nothing is indexing" rule.
func (s *Store) ResetIndexingOnStartup(ctx context.Context) error {
	_, err := s.writer.ExecContext(ctx, `UPDATE indexing_status SET is_indexing = 0 WHERE id = 1 AND is_indexing = 1`)
	return err
}
