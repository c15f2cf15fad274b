package toolserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xaxixak/oracle-v2/internal/consult"
	"github.com/xaxixak/oracle-v2/internal/dashboard"
	"github.com/xaxixak/oracle-v2/internal/decisions"
	"github.com/xaxixak/oracle-v2/internal/forum"
	"github.com/xaxixak/oracle-v2/internal/learn"
	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/retrieval"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/trace"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logging.NewNop()
	tracer := noop.NewTracerProvider().Tracer("test")
	vec := vectorbackend.NewFake()

	learnSvc := learn.New(st, t.TempDir(), log, tracer)
	svc := Services{
		Retrieval: retrieval.New(st, vec, "oracle_documents", log, tracer),
		Consult:   consult.New(st, vec, "oracle_documents", log, tracer),
		Learn:     learnSvc,
		Trace:     trace.New(st, learnSvc, log, tracer),
		Forum:     forum.New(st, consult.New(st, vec, "oracle_documents", log, tracer), log, tracer),
		Decisions: decisions.New(st, tracer),
		Dashboard: dashboard.New(st),
		Store:     st,
	}
	return NewServer("test", svc), st
}

func seedDoc(t *testing.T, st *store.Store, id string, docType store.DocType, title, content string) {
	t.Helper()
	err := st.UpsertDocument(context.Background(), store.Document{
		ID:       id,
		Type:     docType,
		Title:    title,
		Concepts: []string{"indexing"},
	}, content)
	require.NoError(t, err)
}

func TestHandleSearchReturnsResults(t *testing.T) {
	srv, st := newTestServer(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Single writer", "single writer connection avoids sqlite contention")

	result, out, err := srv.handleSearch(context.Background(), nil, &SearchParams{Query: "single writer"})
	require.NoError(t, err)
	require.NotNil(t, result)
	searchOut := out.(retrieval.SearchOutput)
	require.NotEmpty(t, searchOut.Results)
}

func TestHandleReflectReturnsDocument(t *testing.T) {
	srv, st := newTestServer(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Keep it simple", "prefer boring technology")

	result, out, err := srv.handleReflect(context.Background(), nil, &ReflectParams{})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, out)
}

func TestHandleLearnWritesDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	_, out, err := srv.handleLearn(context.Background(), nil, &LearnParams{Pattern: "Prefer explicit errors over panics"})
	require.NoError(t, err)
	learnOut := out.(learn.Output)
	require.NotEmpty(t, learnOut.DocumentID)
}

func TestHandleDecisionsCreateAndTransition(t *testing.T) {
	srv, _ := newTestServer(t)
	_, created, err := srv.handleDecisionsCreate(context.Background(), nil, &DecisionsCreateParams{Title: "Adopt hybrid search"})
	require.NoError(t, err)
	decision := created.(decisions.Decision)

	_, updated, err := srv.handleDecisionsUpdate(context.Background(), nil, &DecisionsUpdateParams{
		ID:     decision.ID,
		Status: string(decisions.StatusDecided),
	})
	require.NoError(t, err)
	require.Equal(t, decisions.StatusDecided, updated.(decisions.Decision).Status)
}

func TestHandleTraceCreateAndGet(t *testing.T) {
	srv, _ := newTestServer(t)
	_, created, err := srv.handleTrace(context.Background(), nil, &TraceParams{Query: "why does search feel slow"})
	require.NoError(t, err)
	tr := created.(trace.Trace)

	_, fetched, err := srv.handleTraceGet(context.Background(), nil, &TraceGetParams{ID: tr.ID})
	require.NoError(t, err)
	require.Equal(t, tr.ID, fetched.(trace.Trace).ID)
}

func TestHandleThreadCreatesAndReplies(t *testing.T) {
	srv, _ := newTestServer(t)
	_, out, err := srv.handleThread(context.Background(), nil, &ThreadParams{Message: "should we cache embeddings"})
	require.NoError(t, err)
	msgOut := out.(forum.MessageOutput)
	require.NotNil(t, msgOut.OracleReply)
}

func TestHandleStatsReturnsSummary(t *testing.T) {
	srv, st := newTestServer(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Doc", "content")

	_, out, err := srv.handleStats(context.Background(), nil, &StatsParams{})
	require.NoError(t, err)
	require.Equal(t, 1, out.(dashboard.Summary).TotalDocuments)
}
