package dashboard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func seedDoc(t *testing.T, st *store.Store, id string, docType store.DocType, title, content string) {
	t.Helper()
	ts := time.Now().UTC()
	err := st.UpsertDocument(context.Background(), store.Document{
		ID:        id,
		Type:      docType,
		Title:     title,
		Concepts:  []string{"indexing", "retrieval"},
		CreatedAt: ts,
		UpdatedAt: ts,
		IndexedAt: ts,
	}, content)
	require.NoError(t, err)
}

func TestSummaryCountsDocumentsAndConcepts(t *testing.T) {
	svc, st := newTestService(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Keep writers single", "single writer connections avoid contention")
	seedDoc(t, st, "doc_2", store.TypePattern, "Hybrid fusion", "combine keyword and vector scores")

	require.NoError(t, st.LogSearch(context.Background(), "writer", store.TypeAll, "hybrid", 2, 5, ""))
	require.NoError(t, st.LogConsult(context.Background(), "adopt hybrid search", "", 1, 1, "guidance", ""))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalDocuments)
	require.Equal(t, 1, summary.CountsByType["principle"])
	require.Equal(t, 1, summary.CountsByType["pattern"])
	require.Greater(t, summary.TotalConcepts, 0)
	require.Equal(t, 1, summary.Last7Days.Searches)
	require.Equal(t, 1, summary.Last7Days.Consultations)
	require.Equal(t, "ok", summary.FTSStatus)
}

func TestActivityCapsPerTableAtTwenty(t *testing.T) {
	svc, st := newTestService(t)
	for i := 0; i < 25; i++ {
		require.NoError(t, st.LogSearch(context.Background(), "q", store.TypeAll, "hybrid", 0, 1, ""))
	}

	activity, err := svc.Activity(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, activity.Searches, activityCap)
}

func TestGrowthMapsPeriodToWindow(t *testing.T) {
	svc, st := newTestService(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Recent doc", "content")

	growth, err := svc.Growth(context.Background(), "month")
	require.NoError(t, err)
	require.Equal(t, "month", growth.Period)
	require.NotEmpty(t, growth.Points)

	var total int
	for _, p := range growth.Points {
		total += p.NewDocuments
	}
	require.Equal(t, 1, total)
}

func TestSessionStatsCountsSinceTimestamp(t *testing.T) {
	svc, st := newTestService(t)
	require.NoError(t, st.LogSearch(context.Background(), "q", store.TypeAll, "hybrid", 0, 1, ""))
	require.NoError(t, st.LogLearn(context.Background(), "learning_1", "pattern preview", "manual", "", ""))

	stats, err := svc.SessionStats(context.Background(), time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Searches)
	require.Equal(t, 1, stats.Learnings)
	require.Equal(t, 0, stats.Consultations)
}

func TestGraphEdgesWeightedBySharedConcepts(t *testing.T) {
	svc, st := newTestService(t)
	require.NoError(t, st.UpsertDocument(context.Background(), store.Document{
		ID: "p_1", Type: store.TypePrinciple, Title: "Single writer", Concepts: []string{"indexing", "locking"},
	}, "content"))
	require.NoError(t, st.UpsertDocument(context.Background(), store.Document{
		ID: "l_1", Type: store.TypeLearning, Title: "Retry idempotent writes", Concepts: []string{"locking"},
	}, "content"))
	require.NoError(t, st.UpsertDocument(context.Background(), store.Document{
		ID: "l_2", Type: store.TypeLearning, Title: "Unrelated", Concepts: []string{"reflection"},
	}, "content"))

	graph, err := svc.Graph(context.Background())
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 3)

	var found bool
	for _, e := range graph.Edges {
		if (e.Source == "p_1" && e.Target == "l_1") || (e.Source == "l_1" && e.Target == "p_1") {
			require.Equal(t, 1, e.Weight)
			found = true
		}
		require.NotEqual(t, "l_2", e.Source)
		require.NotEqual(t, "l_2", e.Target)
	}
	require.True(t, found, "expected an edge between p_1 and l_1")
}
