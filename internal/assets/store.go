// Package assets stores generated scene clips for the lifetime of a session.
package assets

import (
	"context"
	"mime"
	"strings"

	"veo-director/internal/types"
)

const (
	BackendLocal = "local"
	BackendOSS   = "oss"
)

// Store persists clip bytes and hands out resource handles.
// Release is idempotent: releasing an already released handle is not an error.
type Store interface {
	Put(ctx context.Context, sessionID, sceneID string, data []byte, mimeType string) (*types.ResourceHandle, error)
	URL(ctx context.Context, handle types.ResourceHandle) (string, error)
	Release(ctx context.Context, handle types.ResourceHandle) error
	ReleaseSession(ctx context.Context, sessionID string) error
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "", "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".mp4"
}
