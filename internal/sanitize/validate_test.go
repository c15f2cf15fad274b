package sanitize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePathRejectsTraversal(t *testing.T) {
	_, err := ValidatePath("../etc/passwd", "")
	require.ErrorIs(t, err, ErrPathTraversal)
}

func TestWithinRootRejectsEscapingSymlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0o644))

	link := filepath.Join(root, "escape")
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), link))

	_, err := WithinRoot(link, root)
	require.ErrorIs(t, err, ErrPathTraversal)
}

func TestWithinRootAllowsContainedFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "ok.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	resolved, err := WithinRoot(file, root)
	require.NoError(t, err)
	require.NotEmpty(t, resolved)
}
