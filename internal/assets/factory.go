package assets

import (
	"fmt"

	"veo-director/config"
)

// FileRoutePrefix is where the HTTP layer serves local clips.
const FileRoutePrefix = "/api/file"

func New(cfg config.AssetsConfig, clipRoot string) (Store, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalStore(clipRoot, FileRoutePrefix), nil
	case BackendOSS:
		return NewOSSStore(cfg.Oss), nil
	default:
		return nil, fmt.Errorf("unsupported assets backend %q", cfg.Backend)
	}
}
