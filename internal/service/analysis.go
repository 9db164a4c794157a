package service

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"veo-director/internal/session"
	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// Analyze marks the session as analysing and queues the analysis. The
// analysis is followed by an initial script in the original style.
func (s *Service) Analyze(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if _, err = sess.Dispatch(ctx, session.AnalysisStarted{}); err != nil {
		return err
	}
	if err = s.Dispatcher.SubmitAnalysis(sessionID); err != nil {
		s.gatewayFailed(ctx, sess, err)
		return err
	}
	return nil
}

// RunAnalysis executes a queued analysis. Nothing is committed unless both the
// analysis and the initial script succeed.
func (s *Service) RunAnalysis(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	logger := log.GetLogger().With(zap.String("session_id", sessionID))

	state := sess.Snapshot()
	if !state.IsAnalyzing {
		// Settled since it was queued, for example by a restart.
		logger.Info("skipping analysis, session is not analysing")
		return nil
	}
	if state.Video == nil {
		s.gatewayFailed(ctx, sess, apperrors.ErrVideoMissing)
		return apperrors.ErrVideoMissing
	}
	data, err := os.ReadFile(state.Video.Path)
	if err != nil {
		err = apperrors.Wrap(apperrors.CodeFileNotFound, "Uploaded video is no longer available", err)
		s.gatewayFailed(ctx, sess, err)
		return err
	}

	started := time.Now()
	analysis, err := s.Analyzer.AnalyzeVideo(ctx, data, state.Video.MimeType)
	s.Metrics.RecordGatewayCall("analysis", err, time.Since(started))
	if err != nil {
		logger.Warn("analysis failed", zap.Error(err))
		s.gatewayFailed(ctx, sess, err)
		return err
	}

	scenes, err := s.script(ctx, analysis, types.StyleOriginal)
	if err != nil {
		logger.Warn("initial script failed", zap.Error(err))
		s.gatewayFailed(ctx, sess, err)
		return err
	}

	if _, err = sess.Dispatch(ctx, session.AnalysisCompleted{Analysis: *analysis, Scenes: scenes}); err != nil {
		return err
	}
	logger.Info("analysis completed", zap.Int("scenes", len(scenes)))
	return nil
}

func (s *Service) SelectStyle(ctx context.Context, sessionID, style string) (types.SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return types.SessionState{}, err
	}
	parsed, ok := types.ParseStyle(style)
	if !ok {
		return sess.Snapshot(), apperrors.ErrInvalidStyle
	}
	return sess.Dispatch(ctx, session.StyleSelected{Style: parsed})
}

// Script marks the session busy and queues a rewrite in the selected style.
func (s *Service) Script(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if _, err = sess.Dispatch(ctx, session.ScriptStarted{}); err != nil {
		return err
	}
	if err = s.Dispatcher.SubmitScript(sessionID); err != nil {
		s.gatewayFailed(ctx, sess, err)
		return err
	}
	return nil
}

func (s *Service) RunScript(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	state := sess.Snapshot()
	if !state.IsAnalyzing {
		log.GetLogger().Info("skipping script, session is not scripting", zap.String("session_id", sessionID))
		return nil
	}
	if state.Analysis == nil {
		err = apperrors.New(apperrors.CodeInvalidParams, "Analyze a video before scripting")
		s.gatewayFailed(ctx, sess, err)
		return err
	}

	scenes, err := s.script(ctx, state.Analysis, state.Style)
	if err != nil {
		log.GetLogger().Warn("script failed", zap.String("session_id", sessionID), zap.Error(err))
		s.gatewayFailed(ctx, sess, err)
		return err
	}
	_, err = sess.Dispatch(ctx, session.ScenesReplaced{Scenes: scenes})
	return err
}

func (s *Service) script(ctx context.Context, analysis *types.VideoAnalysis, style types.Style) ([]types.Scene, error) {
	started := time.Now()
	descriptors, err := s.Scripter.GenerateScript(ctx, analysis, style)
	s.Metrics.RecordGatewayCall("scripting", err, time.Since(started))
	if err != nil {
		return nil, err
	}
	return newScenes(descriptors, s.SceneSeconds), nil
}

// newScenes turns descriptors into pending scenes with fresh ids, keeping order.
func newScenes(descriptors []types.SceneDescriptor, seconds int) []types.Scene {
	if seconds <= 0 {
		seconds = types.DefaultSceneSeconds
	}
	return lo.Map(descriptors, func(d types.SceneDescriptor, _ int) types.Scene {
		return types.Scene{
			ID:        uuid.NewString(),
			Timestamp: d.Timestamp,
			Prompt:    d.VeoPrompt,
			Seconds:   seconds,
			Status:    types.SceneStatusPending,
		}
	})
}

func (s *Service) gatewayFailed(ctx context.Context, sess *session.Session, err error) {
	msg := apperrors.UserMessage(err)
	if _, derr := sess.Dispatch(context.WithoutCancel(ctx), session.GatewayFailed{Message: msg}); derr != nil {
		log.GetLogger().Warn("commit gateway failure", zap.String("session_id", sess.ID()), zap.Error(derr))
	}
}
