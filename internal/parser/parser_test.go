package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaxixak/oracle-v2/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseResonanceGranularSplit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ψ", "memory", "resonance", "core.md"),
		"### 1. Nothing is Deleted\n- append only\n- preserve history\n")

	p := New(root)
	chunks, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	require.Equal(t, "resonance_core_0", chunks[0].ID)
	require.Equal(t, store.TypePrinciple, chunks[0].Type)
	require.Contains(t, chunks[0].Content, "1. Nothing is Deleted:")

	require.Equal(t, "resonance_core_0_sub_0", chunks[1].ID)
	require.Equal(t, "append only", chunks[1].Content)

	require.Equal(t, "resonance_core_0_sub_1", chunks[2].ID)
	require.Equal(t, "preserve history", chunks[2].Content)
}

func TestParseLearningsWithoutSections(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ψ", "memory", "learnings", "2026-01-01_foo.md"), "just one blob of text")

	p := New(root)
	chunks, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "learning_2026-01-01_foo", chunks[0].ID)
	require.Equal(t, store.TypeLearning, chunks[0].Type)
}

func TestParseLearningsWithSections(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ψ", "memory", "learnings", "multi.md"),
		"---\ntitle: My Learning\n---\n## Section A\nbody a\n## Section B\nbody b\n")

	p := New(root)
	chunks, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, "learning_multi_0", chunks[0].ID)
	require.Equal(t, "Section A", chunks[0].Title)
}

func TestParseRetrospectivesSkipsShortSections(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ψ", "memory", "retrospectives", "sub", "sess.md"),
		"## too short\ntiny\n## long enough\nthis body has more than fifty characters in it for sure, really.\n")

	p := New(root)
	chunks, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "retro_sess_1", chunks[0].ID)
}

func TestExtractConceptsSubstringMatch(t *testing.T) {
	concepts := ExtractConcepts("Nothing is Deleted", "append only, preserve history forever")
	require.ElementsMatch(t, []string{"append", "history", "delete", "preserve"}, concepts)
}
