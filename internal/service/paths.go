package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

func uploadDir(root, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(root, sessionID), nil
}

// uploadPath picks a fresh file name under the session's upload dir. Only the
// extension of the client-supplied name is kept.
func uploadPath(root, sessionID, fileName string) (string, error) {
	dir, err := uploadDir(root, sessionID)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return filepath.Join(dir, uuid.NewString()[:8]+ext), nil
}

// removeUpload deletes a previously stored upload if it lives under root.
func removeUpload(root, path string) error {
	if path == "" {
		return nil
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("upload path %q is outside upload root %q", path, root)
	}
	if err = os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
