package forum

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xaxixak/oracle-v2/internal/consult"
	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tracer := noop.NewTracerProvider().Tracer("test")
	consultSvc := consult.New(st, vectorbackend.NewFake(), "oracle_documents", logging.NewNop(), tracer)
	return New(st, consultSvc, logging.NewNop(), tracer)
}

func TestHandleThreadMessageCreatesThreadAndOracleReply(t *testing.T) {
	svc := newTestService(t)
	out, err := svc.HandleThreadMessage(context.Background(), MessageInput{Message: "should we rewrite the indexer"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Thread.ID)
	require.Equal(t, "active", out.Thread.Status)
	require.NotNil(t, out.OracleReply)
	require.Equal(t, "oracle", out.OracleReply.Role)
}

func TestHandleThreadMessageOracleRoleSkipsAutoReply(t *testing.T) {
	svc := newTestService(t)
	out, err := svc.HandleThreadMessage(context.Background(), MessageInput{Message: "manual note", Role: "oracle"})
	require.NoError(t, err)
	require.Nil(t, out.OracleReply)
}

func TestHandleThreadMessageAppendsToExistingThread(t *testing.T) {
	svc := newTestService(t)
	first, err := svc.HandleThreadMessage(context.Background(), MessageInput{Message: "first message"})
	require.NoError(t, err)

	_, err = svc.HandleThreadMessage(context.Background(), MessageInput{Message: "follow up", ThreadID: first.Thread.ID})
	require.NoError(t, err)

	msgs, err := svc.Messages(context.Background(), first.Thread.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(msgs), 3)
}
