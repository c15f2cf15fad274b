package learn

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/oraclerr"
	"github.com/xaxixak/oracle-v2/internal/store"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	repoRoot := t.TempDir()
	st, err := store.Open(filepath.Join(t.TempDir(), "oracle.db"), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := New(st, repoRoot, logging.NewNop(), noop.NewTracerProvider().Tracer("test"))
	return svc, repoRoot
}

func TestComputeSlugStripsAndCollapses(t *testing.T) {
	slug := computeSlug("Always Append, Never Mutate!!!")
	require.Equal(t, "always-append-never-mutate", slug)
}

func TestComputeSlugCoversFullMultiLinePattern(t *testing.T) {
	a := computeSlug("Retry on failure\nbut only for idempotent writes")
	b := computeSlug("Retry on failure\nnever for non-idempotent writes")
	require.NotEqual(t, a, b)
	require.Equal(t, "retry-on-failure-but-only-for-idempotent-writes", a)
}

func TestLearnWritesFileAndIndexes(t *testing.T) {
	svc, repoRoot := newTestService(t)

	out, err := svc.Learn(context.Background(), Input{Pattern: "Commits preserve history", Source: "session"})
	require.NoError(t, err)
	require.NotEmpty(t, out.DocumentID)

	path := filepath.Join(repoRoot, "ψ", "memory", "learnings", out.Filename)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "Commits preserve history")
	require.Contains(t, string(content), "Added via Oracle Learn")
}

func TestLearnRejectsDuplicateSameDayFilename(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Learn(context.Background(), Input{Pattern: "Commits preserve history"})
	require.NoError(t, err)

	_, err = svc.Learn(context.Background(), Input{Pattern: "Commits preserve history"})
	require.Error(t, err)
	require.True(t, oraclerr.IsConflict(err))
}

func TestLearnRejectsEmptyPattern(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Learn(context.Background(), Input{Pattern: "   "})
	require.True(t, oraclerr.IsValidation(err))
}
