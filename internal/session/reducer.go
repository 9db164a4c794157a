package session

import (
	"fmt"
	"time"

	"veo-director/internal/types"
	apperrors "veo-director/pkg/errors"
)

const sceneFailedPrefix = "Scene generation failed: "

// Reduce applies a to state and returns the next state plus every resource
// handle the transition dropped. It does not mutate state. On error the
// returned state is the input state.
func Reduce(state types.SessionState, a Action, now time.Time) (types.SessionState, []types.ResourceHandle, error) {
	next := state.Clone()
	var released []types.ResourceHandle

	switch act := a.(type) {
	case VideoUploaded:
		if state.IsAnalyzing || state.IsStitching {
			return state, nil, apperrors.ErrBusy
		}
		src := act.Source
		next.Video = &src
		next.Analysis = nil
		released = handlesOf(next.Scenes)
		next.Scenes = []types.Scene{}
		next.Error = ""

	case VideoRemoved:
		if state.IsAnalyzing {
			return state, nil, apperrors.ErrBusy
		}
		if state.Video == nil {
			return state, nil, apperrors.ErrVideoMissing
		}
		next.Video = nil

	case ErrorRaised:
		next.Error = act.Message

	case AnalysisStarted:
		if state.IsAnalyzing {
			return state, nil, apperrors.ErrBusy
		}
		if state.Video == nil {
			return state, nil, apperrors.ErrVideoMissing
		}
		next.IsAnalyzing = true
		next.Error = ""

	case AnalysisCompleted:
		if !state.IsAnalyzing {
			return state, nil, apperrors.New(apperrors.CodeInvalidParams, "No analysis in progress")
		}
		analysis := act.Analysis
		next.Analysis = &analysis
		released = handlesOf(next.Scenes)
		next.Scenes = make([]types.Scene, len(act.Scenes))
		copy(next.Scenes, act.Scenes)
		next.IsAnalyzing = false

	case ScriptStarted:
		if state.IsAnalyzing {
			return state, nil, apperrors.ErrBusy
		}
		if state.Analysis == nil {
			return state, nil, apperrors.New(apperrors.CodeInvalidParams, "Analyze a video before scripting")
		}
		next.IsAnalyzing = true
		next.Error = ""

	case ScenesReplaced:
		if !state.IsAnalyzing {
			return state, nil, apperrors.New(apperrors.CodeInvalidParams, "No scripting in progress")
		}
		released = handlesOf(next.Scenes)
		next.Scenes = make([]types.Scene, len(act.Scenes))
		copy(next.Scenes, act.Scenes)
		next.IsAnalyzing = false

	case GatewayFailed:
		next.IsAnalyzing = false
		next.Error = act.Message

	case StyleSelected:
		if !act.Style.Valid() {
			return state, nil, apperrors.ErrInvalidStyle
		}
		next.Style = act.Style

	case PromptEdited:
		i := next.SceneIndex(act.SceneID)
		if i < 0 {
			return state, nil, apperrors.ErrSceneNotFound
		}
		next.Scenes[i].Prompt = act.Prompt

	case SceneStarted:
		i := next.SceneIndex(act.SceneID)
		if i < 0 {
			return state, nil, apperrors.ErrSceneNotFound
		}
		scene := &next.Scenes[i]
		if scene.Status == types.SceneStatusGenerating {
			return state, nil, apperrors.New(apperrors.CodeBusy, "Scene is already generating")
		}
		if scene.Video != nil {
			released = append(released, *scene.Video)
		}
		scene.Status = types.SceneStatusGenerating
		scene.Video = nil
		scene.Error = ""
		// Inside a batch the session error keeps the last scene failure.
		if !state.IsStitching {
			next.Error = ""
		}

	case SceneCompleted:
		i := next.SceneIndex(act.SceneID)
		if i < 0 {
			return state, nil, apperrors.ErrSceneNotFound
		}
		scene := &next.Scenes[i]
		if scene.Status != types.SceneStatusGenerating {
			return state, nil, apperrors.New(apperrors.CodeInvalidParams, "Scene is not generating")
		}
		h := act.Handle
		scene.Status = types.SceneStatusCompleted
		scene.Video = &h
		scene.Error = ""

	case SceneFailed:
		i := next.SceneIndex(act.SceneID)
		if i < 0 {
			return state, nil, apperrors.ErrSceneNotFound
		}
		scene := &next.Scenes[i]
		if scene.Status != types.SceneStatusGenerating {
			return state, nil, apperrors.New(apperrors.CodeInvalidParams, "Scene is not generating")
		}
		scene.Status = types.SceneStatusFailed
		scene.Video = nil
		scene.Error = act.Message
		next.Error = sceneFailedPrefix + act.Message

	case BatchStarted:
		if state.IsStitching {
			return state, nil, apperrors.ErrBusy
		}
		if len(state.Scenes) == 0 {
			return state, nil, apperrors.New(apperrors.CodeInvalidParams, "No scenes to generate")
		}
		next.IsStitching = true
		next.Error = ""

	case BatchFinished:
		next.IsStitching = false

	case Interrupted:
		next.IsAnalyzing = false
		next.IsStitching = false
		for i := range next.Scenes {
			if next.Scenes[i].Status == types.SceneStatusGenerating {
				next.Scenes[i].Status = types.SceneStatusFailed
				next.Scenes[i].Video = nil
				next.Scenes[i].Error = act.Message
			}
		}

	default:
		return state, nil, fmt.Errorf("unknown action %T", a)
	}

	next.TotalSeconds = types.StoryboardSeconds(next.Scenes)
	next.Version = state.Version + 1
	next.UpdatedAt = now
	return next, released, nil
}

func handlesOf(scenes []types.Scene) []types.ResourceHandle {
	var out []types.ResourceHandle
	for _, s := range scenes {
		if s.Video != nil {
			out = append(out, *s.Video)
		}
	}
	return out
}
