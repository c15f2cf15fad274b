package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
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
	return NewServer(Config{Port: 47778, RepoRoot: t.TempDir(), Version: "test"}, svc, log), st
}

func seedDoc(t *testing.T, st *store.Store, id string, docType store.DocType, title, content string) {
	t.Helper()
	err := st.UpsertDocument(context.Background(), store.Document{
		ID: id, Type: docType, Title: title, Concepts: []string{"indexing"},
	}, content)
	require.NoError(t, err)
}

func TestHandleHealthReturnsOK(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSearchReturnsResults(t *testing.T) {
	srv, st := newTestServer(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Single writer", "single writer connection avoids contention")

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=single+writer", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out retrieval.SearchOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Results)
}

func TestHandleConsultReadsQueryParams(t *testing.T) {
	srv, st := newTestServer(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Append only", "always append, never mutate shared state")

	req := httptest.NewRequest(http.MethodGet, "/api/consult?q=append+only&context=schema+migration", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out consult.Output
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Guidance)
}

func TestHandleLearnCreatesDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	body := strings.NewReader(`{"pattern":"Prefer explicit errors over panics"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/learn", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandleDecisionsLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	createBody := strings.NewReader(`{"title":"Adopt hybrid search"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/decisions", createBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created decisions.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	transitionBody := strings.NewReader(`{"status":"decided"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/decisions/"+created.ID+"/transition", transitionBody)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated decisions.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, decisions.StatusDecided, updated.Status)

	updateBody := strings.NewReader(`{"title":"Adopt hybrid search (revised)"}`)
	req = httptest.NewRequest(http.MethodPatch, "/api/decisions/"+created.ID, updateBody)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleThreadMessageCreatesThread(t *testing.T) {
	srv, _ := newTestServer(t)
	body := strings.NewReader(`{"message":"should we rewrite the indexer"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/thread", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out forum.MessageOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.OracleReply)

	updateBody := strings.NewReader(`{"status":"resolved"}`)
	req = httptest.NewRequest(http.MethodPatch, "/api/thread/"+out.Thread.ID+"/status", updateBody)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleFileRejectsEscapingPath(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/file?path=../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSummaryReturnsCounts(t *testing.T) {
	srv, st := newTestServer(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Doc", "content")

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary dashboard.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, 1, summary.TotalDocuments)
}

func TestHandleStatsAliasesSummary(t *testing.T) {
	srv, st := newTestServer(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Doc", "content")

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary dashboard.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, 1, summary.TotalDocuments)
}

func TestHandleTraceLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	createBody := strings.NewReader(`{"query":"why does indexing stall","files":["internal/indexer/indexer.go"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/trace", createBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created trace.Trace
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodGet, "/api/trace/"+created.ID, nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/trace", nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGraphReturnsNodes(t *testing.T) {
	srv, st := newTestServer(t)
	seedDoc(t, st, "doc_1", store.TypePrinciple, "Doc", "content")

	req := httptest.NewRequest(http.MethodGet, "/api/graph", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var graph dashboard.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
	require.Len(t, graph.Nodes, 1)
}
