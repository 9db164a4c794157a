package session

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"veo-director/internal/types"
	apperrors "veo-director/pkg/errors"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func pendingScenes(ids ...string) []types.Scene {
	scenes := make([]types.Scene, len(ids))
	for i, id := range ids {
		scenes[i] = types.Scene{ID: id, Timestamp: fmt.Sprintf("00:%02d", i*8), Prompt: "prompt " + id, Seconds: types.DefaultSceneSeconds, Status: types.SceneStatusPending}
	}
	return scenes
}

func readyState(ids ...string) types.SessionState {
	return types.SessionState{
		ID:       "sess",
		Video:    &types.VideoSource{FileName: "in.mp4", MimeType: "video/mp4", Size: 10},
		Analysis: &types.VideoAnalysis{},
		Scenes:   pendingScenes(ids...),
		Style:    types.StyleOriginal,
	}
}

func mustReduce(t *testing.T, state types.SessionState, a Action) (types.SessionState, []types.ResourceHandle) {
	t.Helper()
	next, released, err := Reduce(state, a, epoch)
	require.NoError(t, err)
	return next, released
}

func TestSceneLifecycle(t *testing.T) {
	s := readyState("a", "b", "c")

	s, _ = mustReduce(t, s, SceneStarted{SceneID: "b"})
	assert.Equal(t, types.SceneStatusGenerating, s.Scenes[1].Status)
	assert.Equal(t, uint64(1), s.Version)

	s, _ = mustReduce(t, s, SceneCompleted{SceneID: "b", Handle: types.ResourceHandle{Key: "k1"}})
	assert.Equal(t, types.SceneStatusCompleted, s.Scenes[1].Status)
	require.NotNil(t, s.Scenes[1].Video)

	// regenerate drops the previous clip
	s, released := mustReduce(t, s, SceneStarted{SceneID: "b"})
	assert.Equal(t, []types.ResourceHandle{{Key: "k1"}}, released)
	assert.Nil(t, s.Scenes[1].Video)

	s, _ = mustReduce(t, s, SceneFailed{SceneID: "b", Message: "no asset"})
	assert.Equal(t, types.SceneStatusFailed, s.Scenes[1].Status)
	assert.Equal(t, "no asset", s.Scenes[1].Error)
	assert.Equal(t, "Scene generation failed: no asset", s.Error)

	// other scenes untouched
	assert.Equal(t, types.SceneStatusPending, s.Scenes[0].Status)
	assert.Equal(t, types.SceneStatusPending, s.Scenes[2].Status)

	// a new attempt clears the session error
	s, _ = mustReduce(t, s, SceneStarted{SceneID: "b"})
	assert.Empty(t, s.Error)
	assert.Empty(t, s.Scenes[1].Error)
}

func TestBatchKeepsSceneFailure(t *testing.T) {
	s := readyState("a", "b")
	s, _ = mustReduce(t, s, BatchStarted{})
	s, _ = mustReduce(t, s, SceneStarted{SceneID: "a"})
	s, _ = mustReduce(t, s, SceneFailed{SceneID: "a", Message: "boom"})
	s, _ = mustReduce(t, s, SceneStarted{SceneID: "b"})
	assert.Equal(t, "Scene generation failed: boom", s.Error)

	s, _ = mustReduce(t, s, BatchFinished{})
	s, _ = mustReduce(t, s, BatchStarted{})
	assert.Empty(t, s.Error)
}

func TestReduceRejections(t *testing.T) {
	testCases := []struct {
		name     string
		state    func() types.SessionState
		action   Action
		wantCode int
	}{
		{
			name:     "analysis without video",
			state:    func() types.SessionState { return types.SessionState{} },
			action:   AnalysisStarted{},
			wantCode: apperrors.CodeVideoMissing,
		},
		{
			name: "second analysis while analyzing",
			state: func() types.SessionState {
				s := readyState()
				s.IsAnalyzing = true
				return s
			},
			action:   AnalysisStarted{},
			wantCode: apperrors.CodeBusy,
		},
		{
			name: "batch while stitching",
			state: func() types.SessionState {
				s := readyState("a")
				s.IsStitching = true
				return s
			},
			action:   BatchStarted{},
			wantCode: apperrors.CodeBusy,
		},
		{
			name:     "batch without scenes",
			state:    func() types.SessionState { return readyState() },
			action:   BatchStarted{},
			wantCode: apperrors.CodeInvalidParams,
		},
		{
			name: "scene already generating",
			state: func() types.SessionState {
				s := readyState("a")
				s.Scenes[0].Status = types.SceneStatusGenerating
				return s
			},
			action:   SceneStarted{SceneID: "a"},
			wantCode: apperrors.CodeBusy,
		},
		{
			name:     "complete a pending scene",
			state:    func() types.SessionState { return readyState("a") },
			action:   SceneCompleted{SceneID: "a"},
			wantCode: apperrors.CodeInvalidParams,
		},
		{
			name:     "unknown scene",
			state:    func() types.SessionState { return readyState("a") },
			action:   PromptEdited{SceneID: "zzz", Prompt: "x"},
			wantCode: apperrors.CodeSceneNotFound,
		},
		{
			name:     "invalid style",
			state:    func() types.SessionState { return readyState() },
			action:   StyleSelected{Style: "noir"},
			wantCode: apperrors.CodeInvalidStyle,
		},
		{
			name: "upload during batch",
			state: func() types.SessionState {
				s := readyState("a")
				s.IsStitching = true
				return s
			},
			action:   VideoUploaded{},
			wantCode: apperrors.CodeBusy,
		},
		{
			name: "script without analysis",
			state: func() types.SessionState {
				s := readyState()
				s.Analysis = nil
				return s
			},
			action:   ScriptStarted{},
			wantCode: apperrors.CodeInvalidParams,
		},
		{
			name:     "remove a missing video",
			state:    func() types.SessionState { return types.SessionState{} },
			action:   VideoRemoved{},
			wantCode: apperrors.CodeVideoMissing,
		},
		{
			name: "remove video while analyzing",
			state: func() types.SessionState {
				s := readyState("a")
				s.IsAnalyzing = true
				return s
			},
			action:   VideoRemoved{},
			wantCode: apperrors.CodeBusy,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.state()
			next, released, err := Reduce(before, tc.action, epoch)
			assert.True(t, apperrors.Is(err, tc.wantCode), "got %v", err)
			assert.Empty(t, released)
			assert.Equal(t, before, next)
		})
	}
}

func TestVideoUploadedResets(t *testing.T) {
	s := readyState("a", "b")
	s.Scenes[0].Status = types.SceneStatusCompleted
	s.Scenes[0].Video = &types.ResourceHandle{Key: "k"}
	s.Error = "old"

	next, released := mustReduce(t, s, VideoUploaded{Source: types.VideoSource{FileName: "new.mp4"}})
	assert.Nil(t, next.Analysis)
	assert.Empty(t, next.Scenes)
	assert.Empty(t, next.Error)
	assert.Equal(t, "new.mp4", next.Video.FileName)
	assert.Equal(t, []types.ResourceHandle{{Key: "k"}}, released)
}

func TestVideoRemovedKeepsStoryboard(t *testing.T) {
	s := readyState("a", "b")
	s.Scenes[0].Status = types.SceneStatusCompleted
	s.Scenes[0].Video = &types.ResourceHandle{Key: "k"}
	s.IsStitching = true

	next, released := mustReduce(t, s, VideoRemoved{})
	assert.Nil(t, next.Video)
	assert.NotNil(t, next.Analysis)
	assert.Equal(t, s.Scenes, next.Scenes)
	assert.True(t, next.IsStitching)
	assert.Empty(t, released)
}

func TestTotalSecondsFollowsStoryboard(t *testing.T) {
	s := readyState("a")
	s, _ = mustReduce(t, s, ScriptStarted{})
	s, _ = mustReduce(t, s, ScenesReplaced{Scenes: pendingScenes("x", "y", "z")})
	assert.Equal(t, 24, s.TotalSeconds)

	s, _ = mustReduce(t, s, VideoUploaded{Source: types.VideoSource{FileName: "new.mp4"}})
	assert.Equal(t, 0, s.TotalSeconds)
}

func TestAnalysisCompletedInstallsStoryboardAtOnce(t *testing.T) {
	s := readyState("old")
	s.Analysis = nil
	s.Scenes[0].Status = types.SceneStatusCompleted
	s.Scenes[0].Video = &types.ResourceHandle{Key: "k"}

	_, _, err := Reduce(s, AnalysisCompleted{Analysis: types.VideoAnalysis{}, Scenes: pendingScenes("x")}, epoch)
	assert.Error(t, err, "no analysis in progress")

	s, _ = mustReduce(t, s, AnalysisStarted{})
	next, released := mustReduce(t, s, AnalysisCompleted{Analysis: types.VideoAnalysis{}, Scenes: pendingScenes("x", "y")})
	assert.False(t, next.IsAnalyzing)
	assert.NotNil(t, next.Analysis)
	assert.Equal(t, pendingScenes("x", "y"), next.Scenes)
	assert.Equal(t, s.Version+1, next.Version)
	assert.Equal(t, []types.ResourceHandle{{Key: "k"}}, released)
	assert.Equal(t, 2*types.DefaultSceneSeconds, next.TotalSeconds)
}

func TestErrorRaisedOnlySetsError(t *testing.T) {
	s := readyState("a")
	next, _ := mustReduce(t, s, ErrorRaised{Message: "too large"})
	assert.Equal(t, "too large", next.Error)
	assert.Equal(t, s.Scenes, next.Scenes)
	assert.Equal(t, s.Analysis, next.Analysis)
	assert.Equal(t, s.Video, next.Video)
}

func TestGatewayFailureKeepsPriorState(t *testing.T) {
	s := readyState("a")
	s, _ = mustReduce(t, s, ScriptStarted{})
	assert.True(t, s.IsAnalyzing)

	next, _ := mustReduce(t, s, GatewayFailed{Message: "Script generation produced no result"})
	assert.False(t, next.IsAnalyzing)
	assert.Equal(t, "Script generation produced no result", next.Error)
	assert.Equal(t, s.Scenes, next.Scenes)
	assert.NotNil(t, next.Analysis)
}

func TestInterruptedSettlesInFlightWork(t *testing.T) {
	s := readyState("a", "b")
	s.IsStitching = true
	s.Scenes[0].Status = types.SceneStatusGenerating
	s.Scenes[1].Status = types.SceneStatusCompleted
	s.Scenes[1].Video = &types.ResourceHandle{Key: "k"}

	next, released := mustReduce(t, s, Interrupted{Message: InterruptedMessage})
	assert.False(t, next.IsStitching)
	assert.Equal(t, types.SceneStatusFailed, next.Scenes[0].Status)
	assert.Equal(t, InterruptedMessage, next.Scenes[0].Error)
	assert.Equal(t, types.SceneStatusCompleted, next.Scenes[1].Status)
	assert.Empty(t, released)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := readyState("a")
	s.Scenes[0].Status = types.SceneStatusCompleted
	s.Scenes[0].Video = &types.ResourceHandle{Key: "k"}
	before := s.Clone()

	_, _ = mustReduce(t, s, SceneStarted{SceneID: "a"})
	assert.Equal(t, before, s)
}

var allowedTransitions = map[types.SceneStatus][]types.SceneStatus{
	types.SceneStatusPending:    {types.SceneStatusPending, types.SceneStatusGenerating},
	types.SceneStatusGenerating: {types.SceneStatusGenerating, types.SceneStatusCompleted, types.SceneStatusFailed},
	types.SceneStatusCompleted:  {types.SceneStatusCompleted, types.SceneStatusGenerating},
	types.SceneStatusFailed:     {types.SceneStatusFailed, types.SceneStatusGenerating},
}

func transitionAllowed(from, to types.SceneStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func drawAction(t *rapid.T, state types.SessionState, step int) Action {
	ids := []string{"missing"}
	for _, sc := range state.Scenes {
		ids = append(ids, sc.ID)
	}
	sceneID := rapid.SampledFrom(ids).Draw(t, "scene")

	switch rapid.IntRange(0, 10).Draw(t, "kind") {
	case 0, 1:
		return SceneStarted{SceneID: sceneID}
	case 2:
		return SceneCompleted{SceneID: sceneID, Handle: types.ResourceHandle{Key: fmt.Sprintf("clip-%d", step)}}
	case 3:
		return SceneFailed{SceneID: sceneID, Message: "boom"}
	case 4:
		return PromptEdited{SceneID: sceneID, Prompt: rapid.String().Draw(t, "prompt")}
	case 5:
		return BatchStarted{}
	case 6:
		return BatchFinished{}
	case 7:
		return ScriptStarted{}
	case 8:
		n := rapid.IntRange(0, 4).Draw(t, "n")
		fresh := make([]string, n)
		for i := range fresh {
			fresh[i] = fmt.Sprintf("s%d-%d", step, i)
		}
		return ScenesReplaced{Scenes: pendingScenes(fresh...)}
	case 9:
		return GatewayFailed{Message: "gateway"}
	default:
		return StyleSelected{Style: rapid.SampledFrom(types.Styles()).Draw(t, "style")}
	}
}

func checkInvariants(t *rapid.T, s types.SessionState) {
	for _, sc := range s.Scenes {
		switch sc.Status {
		case types.SceneStatusCompleted:
			if sc.Video == nil {
				t.Fatalf("completed scene %s has no clip", sc.ID)
			}
		case types.SceneStatusPending, types.SceneStatusGenerating, types.SceneStatusFailed:
			if sc.Video != nil {
				t.Fatalf("%s scene %s holds a clip", sc.Status, sc.ID)
			}
		default:
			t.Fatalf("scene %s has unknown status %q", sc.ID, sc.Status)
		}
	}
	if want := types.StoryboardSeconds(s.Scenes); s.TotalSeconds != want {
		t.Fatalf("total_seconds %d, storyboard runs %d", s.TotalSeconds, want)
	}
}

func TestReduceProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := readyState("a", "b", "c", "d")
		steps := rapid.IntRange(1, 60).Draw(t, "steps")

		for step := 0; step < steps; step++ {
			action := drawAction(t, state, step)
			next, released, err := Reduce(state, action, epoch)

			if err != nil {
				if !reflect.DeepEqual(next, state) || len(released) != 0 {
					t.Fatalf("rejected %T changed state", action)
				}
				continue
			}
			if next.Version != state.Version+1 {
				t.Fatalf("version %d after %d", next.Version, state.Version)
			}
			checkInvariants(t, next)

			before := map[string]types.SceneStatus{}
			for _, sc := range state.Scenes {
				before[sc.ID] = sc.Status
			}
			for _, sc := range next.Scenes {
				if from, ok := before[sc.ID]; ok && !transitionAllowed(from, sc.Status) {
					t.Fatalf("illegal transition %s -> %s on %s", from, sc.Status, sc.ID)
				}
			}

			// every clip that left the state was released, and only those
			kept := map[string]bool{}
			for _, h := range handlesOf(next.Scenes) {
				kept[h.Key] = true
			}
			dropped := map[string]bool{}
			for _, h := range handlesOf(state.Scenes) {
				if !kept[h.Key] {
					dropped[h.Key] = true
				}
			}
			if len(dropped) != len(released) {
				t.Fatalf("released %d clips, dropped %d", len(released), len(dropped))
			}
			for _, h := range released {
				if !dropped[h.Key] {
					t.Fatalf("released clip %s was not dropped", h.Key)
				}
			}
			state = next
		}
	})
}
