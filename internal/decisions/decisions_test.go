package decisions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/oraclerr"
	"github.com/xaxixak/oracle-v2/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, noop.NewTracerProvider().Tracer("test"))
}

func TestCreateStartsPending(t *testing.T) {
	svc := newTestService(t)
	d, err := svc.Create(context.Background(), CreateInput{Title: "Adopt hybrid search"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, d.Status)
}

func TestTransitionToDecidedStampsDecidedFields(t *testing.T) {
	svc := newTestService(t)
	d, err := svc.Create(context.Background(), CreateInput{Title: "Adopt hybrid search"})
	require.NoError(t, err)

	updated, err := svc.TransitionStatus(context.Background(), d.ID, StatusDecided, "alice")
	require.NoError(t, err)
	require.Equal(t, StatusDecided, updated.Status)
	require.Equal(t, "alice", updated.DecidedBy)
	require.NotEmpty(t, updated.DecidedAt)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	svc := newTestService(t)
	d, err := svc.Create(context.Background(), CreateInput{Title: "Adopt hybrid search"})
	require.NoError(t, err)

	_, err = svc.TransitionStatus(context.Background(), d.ID, StatusImplemented, "")
	require.Error(t, err)
	require.True(t, oraclerr.IsConflict(err))
}

func TestClosedIsTerminal(t *testing.T) {
	svc := newTestService(t)
	d, err := svc.Create(context.Background(), CreateInput{Title: "Adopt hybrid search"})
	require.NoError(t, err)

	closed, err := svc.TransitionStatus(context.Background(), d.ID, StatusClosed, "")
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)

	_, err = svc.TransitionStatus(context.Background(), d.ID, StatusPending, "")
	require.True(t, oraclerr.IsConflict(err))
}
