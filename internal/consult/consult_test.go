package consult

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	vec := vectorbackend.NewFake()
	svc := New(st, vec, "oracle_documents", logging.NewNop(), noop.NewTracerProvider().Tracer("test"))
	return svc, st
}

func seedDoc(t *testing.T, st *store.Store, id string, docType store.DocType, title, content string) {
	t.Helper()
	now := time.Now().UTC()
	doc := store.Document{
		ID: id, Type: docType, Title: title, SourceFile: id + ".md",
		CreatedAt: now, UpdatedAt: now, IndexedAt: now,
	}
	require.NoError(t, st.UpsertDocument(context.Background(), doc, content))
}

func TestConsultEmptyWhenNothingMatches(t *testing.T) {
	svc, _ := newTestService(t)
	out, err := svc.Consult(context.Background(), Input{Decision: "should we rewrite the scheduler"})
	require.NoError(t, err)
	require.Equal(t, `No matching principles or patterns for: "should we rewrite the scheduler"`, out.Guidance)
}

func TestConsultBuildsGuidanceFromPrinciplesAndPatterns(t *testing.T) {
	svc, st := newTestService(t)
	seedDoc(t, st, "principle_1", store.TypePrinciple, "Append Only", "append only history is immutable trust")
	seedDoc(t, st, "learning_1", store.TypeLearning, "Mirror Pattern", "the mirror pattern preserves context append")

	out, err := svc.Consult(context.Background(), Input{Decision: "append only history"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Principles)
	require.Contains(t, out.Guidance, closingAphorism)
}

func TestConsultReturnsGuidanceForSinglePrinciple(t *testing.T) {
	svc, st := newTestService(t)
	seedDoc(t, st, "principle_1", store.TypePrinciple, "Append Only", "append only history is immutable")

	out, err := svc.Consult(context.Background(), Input{Decision: "append only"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Guidance)
}
