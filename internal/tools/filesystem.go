package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentrt/agentrt/internal/apperr"
)

// ListDirectoryTool lists directory entries, confined to the configured
// repo root after resolving symlinks. Confinement logic is grounded on
// the teacher's internal/tools/filesystem.go resolvePath/isPathInside
// (EvalSymlinks the target and the root, then require a path-prefix
// match), trimmed of the teacher's sandbox/virtual-FS/broken-symlink
// interceptor layers, which serve its managed multi-tenant mode and
// have no equivalent here.
type ListDirectoryTool struct {
	repoRoot string
}

func NewListDirectoryTool(repoRoot string) *ListDirectoryTool {
	return &ListDirectoryTool{repoRoot: repoRoot}
}

func (ListDirectoryTool) Name() string { return "list_directory" }
func (ListDirectoryTool) Description() string {
	return "Lists directory entries, restricted to paths within the configured repo root."
}
func (ListDirectoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Path relative to the repo root"},
		},
	}
}

type dirEntryInfo struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

func (t *ListDirectoryTool) Execute(_ context.Context, args map[string]any, _ string) *Result {
	rel, _ := args["path"].(string)

	resolved, err := confinePath(t.repoRoot, rel)
	if err != nil {
		return Err(err.Error())
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return Err("failed to list directory: " + err.Error())
	}

	out := make([]dirEntryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, dirEntryInfo{Name: e.Name(), IsDir: e.IsDir()})
	}
	return Ok(out)
}

// confinePath resolves rel against root and rejects any result that,
// after following symlinks, escapes root.
func confinePath(root, rel string) (string, error) {
	if rel == "" {
		rel = "."
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errUnauthorized("cannot resolve repo root")
	}
	rootReal, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", errUnauthorized("repo root does not exist")
	}

	var candidate string
	if filepath.IsAbs(rel) {
		candidate = filepath.Clean(rel)
	} else {
		candidate = filepath.Clean(filepath.Join(rootReal, rel))
	}

	real, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", errUnauthorized("path does not exist")
	}

	if !isPathInside(real, rootReal) {
		return "", errUnauthorized("path escapes repo root")
	}
	return real, nil
}

func isPathInside(child, parent string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

func errUnauthorized(msg string) error { return apperr.New(apperr.KindUnauthorizedPath, msg) }
