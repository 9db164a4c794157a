package session

import (
	"veo-director/internal/types"
)

// Action is one atomic transition of a session. Actions are applied by Reduce
// on the session goroutine only.
type Action interface {
	name() string
}

// VideoUploaded installs a new source clip and drops the previous analysis and storyboard.
type VideoUploaded struct{ Source types.VideoSource }

// VideoRemoved drops the source clip. Analysis and storyboard stay.
type VideoRemoved struct{}

// ErrorRaised sets the session error without touching anything else.
type ErrorRaised struct{ Message string }

type AnalysisStarted struct{}

// AnalysisCompleted installs the analysis together with its initial storyboard
// and ends the action, so observers never see one without the other.
type AnalysisCompleted struct {
	Analysis types.VideoAnalysis
	Scenes   []types.Scene
}

type ScriptStarted struct{}

// ScenesReplaced installs a new storyboard and ends the analysis/scripting action.
type ScenesReplaced struct{ Scenes []types.Scene }

// GatewayFailed ends an analysis or scripting action, keeping prior analysis and scenes.
type GatewayFailed struct{ Message string }

type StyleSelected struct{ Style types.Style }

type PromptEdited struct {
	SceneID string
	Prompt  string
}

type SceneStarted struct{ SceneID string }

type SceneCompleted struct {
	SceneID string
	Handle  types.ResourceHandle
}

type SceneFailed struct {
	SceneID string
	Message string
}

type BatchStarted struct{}

type BatchFinished struct{}

// Interrupted settles a session restored after a restart: in-flight flags are
// cleared and generating scenes become failed.
type Interrupted struct{ Message string }

func (VideoUploaded) name() string     { return "video_uploaded" }
func (VideoRemoved) name() string      { return "video_removed" }
func (ErrorRaised) name() string       { return "error_raised" }
func (AnalysisStarted) name() string   { return "analysis_started" }
func (AnalysisCompleted) name() string { return "analysis_completed" }
func (ScriptStarted) name() string     { return "script_started" }
func (ScenesReplaced) name() string    { return "scenes_replaced" }
func (GatewayFailed) name() string     { return "gateway_failed" }
func (StyleSelected) name() string     { return "style_selected" }
func (PromptEdited) name() string      { return "prompt_edited" }
func (SceneStarted) name() string      { return "scene_started" }
func (SceneCompleted) name() string    { return "scene_completed" }
func (SceneFailed) name() string       { return "scene_failed" }
func (BatchStarted) name() string      { return "batch_started" }
func (BatchFinished) name() string     { return "batch_finished" }
func (Interrupted) name() string       { return "interrupted" }
