package trace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xaxixak/oracle-v2/internal/learn"
	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	learnSvc := learn.New(st, t.TempDir(), logging.NewNop(), noop.NewTracerProvider().Tracer("test"))
	return New(st, learnSvc, logging.NewNop(), noop.NewTracerProvider().Tracer("test"))
}

func TestCreateRootTraceHasZeroDepth(t *testing.T) {
	svc := newTestService(t)
	tr, err := svc.Create(context.Background(), CreateInput{Query: "how does append-only work"})
	require.NoError(t, err)
	require.Equal(t, 0, tr.Depth)
	require.Equal(t, "raw", tr.Status)
}

func TestCreateChildLinksToParent(t *testing.T) {
	svc := newTestService(t)
	parent, err := svc.Create(context.Background(), CreateInput{Query: "root"})
	require.NoError(t, err)

	child, err := svc.Create(context.Background(), CreateInput{Query: "child", ParentTraceID: parent.ID})
	require.NoError(t, err)
	require.Equal(t, 1, child.Depth)

	reloadedParent, err := svc.Get(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Contains(t, reloadedParent.ChildTraceIDs, child.ID)
}

func TestChainBothIncludesAncestryAndDescendants(t *testing.T) {
	svc := newTestService(t)
	root, err := svc.Create(context.Background(), CreateInput{Query: "root"})
	require.NoError(t, err)
	mid, err := svc.Create(context.Background(), CreateInput{Query: "mid", ParentTraceID: root.ID})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Query: "leaf", ParentTraceID: mid.ID})
	require.NoError(t, err)

	chain, err := svc.Chain(context.Background(), mid.ID, DirectionBoth)
	require.NoError(t, err)
	require.Len(t, chain.Traces, 3)
}

func TestDistillSetsStatusAndAwakening(t *testing.T) {
	svc := newTestService(t)
	tr, err := svc.Create(context.Background(), CreateInput{Query: "root"})
	require.NoError(t, err)

	distilled, err := svc.Distill(context.Background(), DistillInput{ID: tr.ID, Awakening: "append only preserves trust"})
	require.NoError(t, err)
	require.Equal(t, "distilled", distilled.Status)
	require.Equal(t, "append only preserves trust", distilled.Awakening)
}

func TestDistillPromotesToLearning(t *testing.T) {
	svc := newTestService(t)
	tr, err := svc.Create(context.Background(), CreateInput{Query: "root"})
	require.NoError(t, err)

	distilled, err := svc.Distill(context.Background(), DistillInput{ID: tr.ID, Awakening: "append only preserves trust", PromoteToLearning: true})
	require.NoError(t, err)
	require.NotEmpty(t, distilled.DistilledToID)
}
