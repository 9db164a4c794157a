package service

import (
	"context"
	"os"

	"go.uber.org/zap"

	"veo-director/internal/session"
	"veo-director/internal/types"
	"veo-director/log"
)

func (s *Service) CreateSession(ctx context.Context) (types.SessionState, error) {
	sess, err := s.Sessions.Create(ctx)
	if err != nil {
		return types.SessionState{}, err
	}
	return sess.Snapshot(), nil
}

func (s *Service) GetSession(id string) (types.SessionState, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return types.SessionState{}, err
	}
	return sess.Snapshot(), nil
}

func (s *Service) ListSessions() []types.SessionState {
	return s.Sessions.List()
}

// DeleteSession stops every job of the session, then releases its clips and upload.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.Sessions.Get(id); err != nil {
		return err
	}
	if s.Orchestrator != nil {
		s.Orchestrator.CancelSession(id)
	}
	if err := s.Sessions.Delete(ctx, id); err != nil {
		return err
	}
	if dir, err := uploadDir(s.UploadRoot, id); err == nil {
		if err = os.RemoveAll(dir); err != nil {
			log.GetLogger().Warn("remove session uploads failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	return nil
}

// Subscribe streams committed snapshots of a session until cancel is called
// or the session goes away.
func (s *Service) Subscribe(id string) (<-chan types.SessionState, func(), error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.Subscribe()
	return ch, cancel, nil
}

func (s *Service) session(id string) (*session.Session, error) {
	return s.Sessions.Get(id)
}
