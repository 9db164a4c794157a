package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"veo-director/internal/session"
	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// ExportClip is one downloadable scene clip.
type ExportClip struct {
	Index    int    `json:"index"`
	SceneID  string `json:"scene_id"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}

func (s *Service) EditPrompt(ctx context.Context, sessionID, sceneID, prompt string) (types.SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return types.SessionState{}, err
	}
	return sess.Dispatch(ctx, session.PromptEdited{SceneID: sceneID, Prompt: prompt})
}

// GenerateScene queues a (re)generation of one scene.
func (s *Service) GenerateScene(ctx context.Context, sessionID, sceneID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	state := sess.Snapshot()
	idx := state.SceneIndex(sceneID)
	if idx < 0 {
		return apperrors.ErrSceneNotFound
	}
	if state.Scenes[idx].Status == types.SceneStatusGenerating {
		return apperrors.New(apperrors.CodeBusy, "Scene is already generating")
	}
	return s.Dispatcher.SubmitScene(sessionID, sceneID)
}

func (s *Service) RunScene(ctx context.Context, sessionID, sceneID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return s.Orchestrator.GenerateScene(ctx, sess, sceneID)
}

// GenerateAll commits the batch start and queues the batch over every scene
// without a clip. A second request is refused while the first is queued or running.
func (s *Service) GenerateAll(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if err = s.Orchestrator.BeginBatch(ctx, sess); err != nil {
		return err
	}
	if err = s.Dispatcher.SubmitBatch(sessionID); err != nil {
		commitCtx := context.WithoutCancel(ctx)
		if _, derr := sess.Dispatch(commitCtx, session.BatchFinished{}); derr != nil {
			log.GetLogger().Warn("commit batch end", zap.String("session_id", sessionID), zap.Error(derr))
		}
		s.reject(commitCtx, sess, err)
		return err
	}
	return nil
}

func (s *Service) RunBatch(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return s.Orchestrator.RunBatch(ctx, sess)
}

func (s *Service) CancelScene(sessionID, sceneID string) error {
	if _, err := s.session(sessionID); err != nil {
		return err
	}
	if !s.Orchestrator.Cancel(sessionID, sceneID) {
		return apperrors.New(apperrors.CodeNotFound, "No running job for this scene")
	}
	return nil
}

func (s *Service) CancelBatch(sessionID string) error {
	if _, err := s.session(sessionID); err != nil {
		return err
	}
	if !s.Orchestrator.CancelBatch(sessionID) {
		return apperrors.New(apperrors.CodeNotFound, "No running batch for this session")
	}
	return nil
}

// Export lists every scene holding a clip, named after its position and the selected style.
func (s *Service) Export(ctx context.Context, sessionID string) ([]ExportClip, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Snapshot()

	clips := make([]ExportClip, 0, len(state.Scenes))
	for i, sc := range state.Scenes {
		if sc.Video == nil {
			continue
		}
		url, err := s.Assets.URL(ctx, *sc.Video)
		if err != nil {
			log.GetLogger().Warn("resolve clip url failed", zap.String("session_id", sessionID), zap.String("scene_id", sc.ID), zap.Error(err))
			url = sc.Video.URL
		}
		clips = append(clips, ExportClip{
			Index:    i + 1,
			SceneID:  sc.ID,
			FileName: fmt.Sprintf("veo_scene_%d_%s.mp4", i+1, state.Style),
			URL:      url,
		})
	}
	return clips, nil
}
