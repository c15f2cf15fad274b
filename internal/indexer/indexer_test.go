package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunEmptyCorpus(t *testing.T) {
	repoRoot := t.TempDir()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	defer st.Close()

	vec := vectorbackend.NewFake()
	idx := New(st, vec, "oracle_documents", logging.NewNop(), noop.NewTracerProvider().Tracer("test"))

	require.NoError(t, idx.Run(context.Background(), repoRoot))

	status, err := st.GetIndexingStatus(context.Background())
	require.NoError(t, err)
	require.False(t, status.IsIndexing)
	require.Equal(t, 0, status.ProgressTotal)
}

func TestRunRebuildsBothIndicesInParity(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "ψ", "memory", "resonance", "core.md"),
		"### 1. Nothing is Deleted\n- append only\n- preserve history\n")

	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	defer st.Close()

	vec := vectorbackend.NewFake()
	idx := New(st, vec, "oracle_documents", logging.NewNop(), noop.NewTracerProvider().Tracer("test"))

	require.NoError(t, idx.Run(context.Background(), repoRoot))

	status, err := st.GetIndexingStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, status.ProgressTotal)
	require.Equal(t, 3, status.ProgressCurrent)

	require.Len(t, vec.Collections["oracle_documents"], 3)

	rows, err := st.KeywordSearch(context.Background(), "append", store.TypeAll, store.ProjectFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "resonance_core_0_sub_0", rows[0].ID)
}
