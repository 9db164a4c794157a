// Package service implements the session workflow: upload, analysis,
// scripting and scene generation.
package service

import (
	"context"

	"veo-director/internal/assets"
	"veo-director/internal/credential"
	"veo-director/internal/metrics"
	"veo-director/internal/orchestrator"
	"veo-director/internal/session"
	"veo-director/internal/types"
)

type Analyzer interface {
	AnalyzeVideo(ctx context.Context, video []byte, mimeType string) (*types.VideoAnalysis, error)
}

type Scripter interface {
	GenerateScript(ctx context.Context, analysis *types.VideoAnalysis, style types.Style) ([]types.SceneDescriptor, error)
}

// Dispatcher hands long-running work to background workers. Implementations
// call back into the matching Run method.
type Dispatcher interface {
	SubmitAnalysis(sessionID string) error
	SubmitScript(sessionID string) error
	SubmitScene(sessionID, sceneID string) error
	SubmitBatch(sessionID string) error
}

type Service struct {
	Sessions     *session.Manager
	Analyzer     Analyzer
	Scripter     Scripter
	Orchestrator *orchestrator.Orchestrator
	Assets       assets.Store
	Credentials  *credential.Broker
	Metrics      *metrics.Collector
	Dispatcher   Dispatcher

	UploadRoot     string
	MaxUploadBytes int64
	// SceneSeconds is the length each storyboard scene is scripted for.
	SceneSeconds int
}
