package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xaxixak/oracle-v2/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oracle.db")
	s, err := Open(path, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBootstrapIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oracle.db")
	s1, err := Open(path, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, logging.NewNop())
	require.NoError(t, err)
	defer s2.Close()

	status, err := s2.GetIndexingStatus(context.Background())
	require.NoError(t, err)
	require.False(t, status.IsIndexing)
}

func TestUpsertDocumentAndSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ts := time.Now().UTC()
	doc := Document{
		ID:         "resonance_test_0",
		Type:       TypePrinciple,
		Title:      "Nothing is Deleted",
		SourceFile: "resonance/test.md",
		Concepts:   []string{"append", "history"},
		CreatedAt:  ts,
		UpdatedAt:  ts,
		IndexedAt:  ts,
	}
	require.NoError(t, s.UpsertDocument(ctx, doc, "Nothing is Deleted: append only, preserve history"))

	got, content, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Title, got.Title)
	require.Contains(t, content, "append only")
	require.ElementsMatch(t, []string{"append", "history"}, got.Concepts)

	rows, err := s.KeywordSearch(ctx, "append", TypeAll, ProjectFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, doc.ID, rows[0].ID)
	require.Less(t, rows[0].Rank, 0.0)

	total, err := s.KeywordSearchTotal(ctx, "append", TypeAll, ProjectFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestUpsertDocumentOverwritesById(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	doc := Document{ID: "learning_x", Type: TypeLearning, Title: "v1", CreatedAt: ts, UpdatedAt: ts, IndexedAt: ts}
	require.NoError(t, s.UpsertDocument(ctx, doc, "first body"))

	doc.Title = "v2"
	require.NoError(t, s.UpsertDocument(ctx, doc, "second body"))

	got, content, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "v2", got.Title)
	require.Equal(t, "second body", content)

	rows, err := s.KeywordSearch(ctx, "first", TypeAll, ProjectFilter{}, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestProjectFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	mk := func(id, project string) Document {
		return Document{ID: id, Type: TypeLearning, Title: id, Project: project, CreatedAt: ts, UpdatedAt: ts, IndexedAt: ts}
	}
	require.NoError(t, s.UpsertDocument(ctx, mk("d1", "P"), "shared text"))
	require.NoError(t, s.UpsertDocument(ctx, mk("d2", ""), "shared text"))
	require.NoError(t, s.UpsertDocument(ctx, mk("d3", "Q"), "shared text"))

	withP, err := s.KeywordSearch(ctx, "shared", TypeAll, ProjectFilter{Mode: ProjectFilterWith, Project: "P"}, 10)
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, r := range withP {
		ids[r.ID] = true
	}
	require.True(t, ids["d1"])
	require.True(t, ids["d2"])
	require.False(t, ids["d3"])

	noProject, err := s.KeywordSearch(ctx, "shared", TypeAll, ProjectFilter{Mode: ProjectFilterNullOnly}, 10)
	require.NoError(t, err)
	require.Len(t, noProject, 1)
	require.Equal(t, "d2", noProject[0].ID)
}

func TestClearAllTruncatesBothIndices(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	require.NoError(t, s.UpsertDocument(ctx, Document{ID: "a", Type: TypeLearning, CreatedAt: ts, UpdatedAt: ts, IndexedAt: ts}, "x"))
	require.NoError(t, s.ClearAll(ctx))

	_, _, err := s.GetDocument(ctx, "a")
	require.Error(t, err)

	total, err := s.KeywordSearchTotal(ctx, "x", TypeAll, ProjectFilter{})
	require.NoError(t, err)
	require.Equal(t, 0, total)
}
