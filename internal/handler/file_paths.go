package handler

import (
	"path/filepath"
	"strings"

	"veo-director/internal/appdirs"
)

// resolveClipPath maps a download path such as "clips/<session>/<file>" onto
// the clip root. It reports false for empty paths and anything that escapes the root.
func resolveClipPath(clipRoot, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	requested = strings.TrimPrefix(requested, string(filepath.Separator))
	requested = strings.TrimPrefix(requested, "/")
	if hasParentTraversal(requested) {
		return "", false
	}
	requested = filepath.ToSlash(filepath.Clean(requested))

	prefix := appdirs.ClipRootName + "/"
	if !strings.HasPrefix(requested, prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(requested, prefix)
	if rel == "" || rel == "." {
		return "", false
	}

	candidate := filepath.Clean(filepath.Join(clipRoot, filepath.FromSlash(rel)))
	if !isPathWithinRoot(clipRoot, candidate) || candidate == filepath.Clean(clipRoot) {
		return "", false
	}
	return candidate, true
}

func isPathWithinRoot(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasParentTraversal(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	parts := strings.Split(normalized, "/")
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}
