package retrieval

import (
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/xaxixak/oracle-v2/internal/sanitize"
)

// ResolveProjectSlug walks up from cwd looking for a `.git` or a `ψ`
// directory and maps whatever repository it finds onto a project slug
// (§4.5.2). It returns "" if neither marker is found before reaching the
// filesystem root.
func ResolveProjectSlug(cwd string) string {
	if cwd == "" {
		return ""
	}

	dir := cwd
	for {
		if repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
			root, err := repo.Worktree()
			if err == nil {
				return sanitize.Identifier(filepath.Base(root.Filesystem.Root()))
			}
		}

		marker := filepath.Join(dir, "ψ")
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return sanitize.Identifier(filepath.Base(dir))
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
