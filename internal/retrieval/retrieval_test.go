package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

func newTestService(t *testing.T) (*Service, *store.Store, *vectorbackend.Fake) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	vec := vectorbackend.NewFake()
	tracer := noop.NewTracerProvider().Tracer("test")
	svc := New(st, vec, "oracle_documents", logging.NewNop(), tracer)
	return svc, st, vec
}

func seedDoc(t *testing.T, st *store.Store, id, docType, title, content, project string) {
	t.Helper()
	now := time.Now().UTC()
	doc := store.Document{
		ID:         id,
		Type:       store.DocType(docType),
		Title:      title,
		SourceFile: id + ".md",
		Concepts:   []string{"trust"},
		Project:    project,
		CreatedAt:  now,
		UpdatedAt:  now,
		IndexedAt:  now,
	}
	require.NoError(t, st.UpsertDocument(context.Background(), doc, content))
}

func TestSelectWeightsRules(t *testing.T) {
	require.Equal(t, Weights{Fts: 0.7, Vector: 0.3, Tag: "hybrid-short"}, SelectWeights("trust"))
	require.Equal(t, Weights{Fts: 0.75, Vector: 0.25, Tag: "hybrid-boolean"}, SelectWeights(`"append only"`))
	require.Equal(t, Weights{Fts: 0.75, Vector: 0.25, Tag: "hybrid-boolean"}, SelectWeights("trust AND pattern"))
	require.Equal(t, Weights{Fts: 0.3, Vector: 0.7, Tag: "hybrid-long"}, SelectWeights("one two three four five six"))
	require.Equal(t, Weights{Fts: 0.5, Vector: 0.5}, SelectWeights("one two three"))
}

func TestFuseAppliesHybridBoostAndCap(t *testing.T) {
	ftsRows := []store.KeywordRow{{ID: "a", Rank: -2.0, Content: "alpha"}}
	vec := vectorbackend.QueryResult{IDs: []string{"a"}, Documents: []string{"alpha"}, Distances: []float64{0.1}}

	results := fuse(ftsRows, vec, Weights{Fts: 0.7, Vector: 0.3})
	require.Len(t, results, 1)
	require.Equal(t, SourceHybrid, results[0].Source)
	require.LessOrEqual(t, results[0].Score, 1.0)
}

func TestFuseDedupesByID(t *testing.T) {
	ftsRows := []store.KeywordRow{{ID: "a", Rank: -1.0, Content: "alpha"}, {ID: "b", Rank: -0.5, Content: "beta"}}
	vec := vectorbackend.QueryResult{IDs: []string{"a"}, Documents: []string{"alpha"}, Distances: []float64{0.2}}

	results := fuse(ftsRows, vec, Weights{Fts: 0.5, Vector: 0.5})
	require.Len(t, results, 2)
}

func TestSearchKeywordOnlyWhenVectorErrors(t *testing.T) {
	svc, st, vec := newTestService(t)
	seedDoc(t, st, "doc1", "principle", "Trust", "trust the pattern of append only history", "")
	vec.QueryErr = errors.New("connection refused")

	out, err := svc.Search(context.Background(), SearchInput{Query: "trust"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Warning)
	require.Contains(t, out.Warning, "Vector search unavailable")
	require.Len(t, out.Results, 1)
}

func TestSearchProjectFilterScopesResults(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedDoc(t, st, "doc1", "principle", "Trust", "trust pattern one", "proj-a")
	seedDoc(t, st, "doc2", "principle", "Trust Universal", "trust pattern universal", "")
	seedDoc(t, st, "doc3", "principle", "Trust Other", "trust pattern other", "proj-b")

	projA := "proj-a"
	out, err := svc.Search(context.Background(), SearchInput{Query: "trust", Project: &projA})
	require.NoError(t, err)

	ids := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		ids = append(ids, r.ID)
	}
	require.Contains(t, ids, "doc1")
	require.Contains(t, ids, "doc2")
	require.NotContains(t, ids, "doc3")
}

func TestSearchPaginationRespectsOffsetAndLimit(t *testing.T) {
	svc, st, _ := newTestService(t)
	for i := 0; i < 5; i++ {
		seedDoc(t, st, "doc"+string(rune('a'+i)), "principle", "Trust", "trust pattern append", "")
	}

	out, err := svc.Search(context.Background(), SearchInput{Query: "trust", Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	require.Equal(t, 5, out.Total)
}
