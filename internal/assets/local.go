package assets

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veo-director/internal/appdirs"
	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// LocalStore writes clips under <output>/clips/<session>/ and serves them
// through the file download route.
type LocalStore struct {
	root      string
	urlPrefix string
}

func NewLocalStore(root, urlPrefix string) *LocalStore {
	return &LocalStore{root: filepath.Clean(root), urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalStore) Put(_ context.Context, sessionID, sceneID string, data []byte, mimeType string) (*types.ResourceHandle, error) {
	if err := checkIDs(sessionID, sceneID); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to create clip directory", err)
	}

	id := uuid.NewString()
	name := sceneID + "-" + id[:8] + extensionFor(mimeType)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to write clip", err)
	}

	key := path.Join(appdirs.ClipRootName, sessionID, name)
	return &types.ResourceHandle{
		ID:        id,
		Backend:   BackendLocal,
		Key:       key,
		URL:       s.urlPrefix + "/" + key,
		Size:      int64(len(data)),
		MimeType:  mimeType,
		CreatedAt: time.Now(),
	}, nil
}

func (s *LocalStore) URL(_ context.Context, handle types.ResourceHandle) (string, error) {
	if _, err := os.Stat(s.pathFor(handle.Key)); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileNotFound, apperrors.ErrFileNotFound.Message, err)
	}
	return s.urlPrefix + "/" + handle.Key, nil
}

func (s *LocalStore) Release(_ context.Context, handle types.ResourceHandle) error {
	p := s.pathFor(handle.Key)
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	log.GetLogger().Debug("released clip", zap.String("key", handle.Key))
	return nil
}

func (s *LocalStore) ReleaseSession(_ context.Context, sessionID string) error {
	if checkIDs(sessionID) != nil {
		return nil
	}
	return os.RemoveAll(filepath.Join(s.root, sessionID))
}

// pathFor maps a handle key back onto the clip root, refusing keys that escape it.
func (s *LocalStore) pathFor(key string) string {
	rel := strings.TrimPrefix(key, appdirs.ClipRootName+"/")
	if rel == key || rel == "" {
		return ""
	}
	p := filepath.Join(s.root, filepath.FromSlash(rel))
	r, err := filepath.Rel(s.root, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return ""
	}
	return p
}

func checkIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
			return apperrors.New(apperrors.CodeInvalidParams, "Invalid identifier")
		}
	}
	return nil
}
