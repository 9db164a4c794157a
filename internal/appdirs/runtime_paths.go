package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	ClipRootName   = "clips"
	UploadRootName = "uploads"
	dbFileName     = "veo-director.db"
)

// ClipRootFor is where generated scene clips are written.
func ClipRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), ClipRootName)
}

func ClipDirFor(paths Paths, sessionID string) string {
	return filepath.Join(ClipRootFor(paths), sessionID)
}

func UploadRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), UploadRootName)
}

func UploadDirFor(paths Paths, sessionID string) string {
	return filepath.Join(UploadRootFor(paths), sessionID)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), dbFileName)
}

func ResolveClipRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return ClipRootFor(paths), nil
}

func ResolveUploadRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return UploadRootFor(paths), nil
}

func ResolveDBPath() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return DBPathFor(paths), nil
}

func normalizeOutputDir(outputDir string) string {
	cleaned := strings.TrimSpace(outputDir)
	if cleaned == "" {
		return "."
	}
	return filepath.Clean(cleaned)
}

func normalizeCacheDir(cacheDir string) string {
	cleaned := strings.TrimSpace(cacheDir)
	if cleaned == "" {
		return "cache"
	}
	return filepath.Clean(cleaned)
}
