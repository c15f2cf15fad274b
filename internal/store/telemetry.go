package store

import "context"

// LogSearch appends a search_log row. Call sites treat failures as
// fire-and-forget per §4.5.8; this method still returns the error so the
// caller's logger can record it with the stable "telemetry:" prefix.
func (s *Store) LogSearch(ctx context.Context, query string, docType DocType, mode string, resultsCount, searchTimeMs int, project string) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO search_log
		(query, type, mode, results_count, search_time_ms, project, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		query, string(docType), mode, resultsCount, searchTimeMs, nullableString(project), now().Format(timeLayout))
	return err
}

// LogDocumentAccess appends one document_access row per returned id.
func (s *Store) LogDocumentAccess(ctx context.Context, documentID, accessType string) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO document_access
		(document_id, access_type, created_at) VALUES (?, ?, ?)`,
		documentID, accessType, now().Format(timeLayout))
	return err
}

// LogConsult appends a consult_log row: §4.6.
func (s *Store) LogConsult(ctx context.Context, decision, context_ string, principlesFound, patternsFound int, guidance, project string) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO consult_log
		(decision, context, principles_found, patterns_found, guidance, project, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		decision, nullableString(context_), principlesFound, patternsFound, guidance, nullableString(project), now().Format(timeLayout))
	return err
}

// LogLearn appends a learn_log row: §4.7 step 8.
func (s *Store) LogLearn(ctx context.Context, documentID, patternPreview, source, concepts, project string) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO learn_log
		(document_id, pattern_preview, source, concepts, project, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		documentID, patternPreview, nullableString(source), nullableString(concepts), nullableString(project), now().Format(timeLayout))
	return err
}
