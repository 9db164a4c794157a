package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veo-director/internal/metrics"
	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// InterruptedMessage marks scenes whose job was lost to a restart.
const InterruptedMessage = "interrupted by server restart"

// ClipStore is the part of the asset store the session layer needs.
type ClipStore interface {
	Releaser
	ReleaseSession(ctx context.Context, sessionID string) error
}

// Persister mirrors committed snapshots to durable storage.
type Persister interface {
	SaveSession(ctx context.Context, state types.SessionState) error
	DeleteSession(ctx context.Context, id string) error
}

type Manager struct {
	store     ClipStore
	persister Persister
	metrics   *metrics.Collector

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewManager builds a manager. persister and collector may be nil.
func NewManager(store ClipStore, persister Persister, collector *metrics.Collector) *Manager {
	return &Manager{
		store:     store,
		persister: persister,
		metrics:   collector,
		sessions:  make(map[string]*Session),
	}
}

func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := time.Now()
	state := types.SessionState{
		ID:        uuid.NewString(),
		Scenes:    []types.Scene{},
		Style:     types.StyleOriginal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.persister != nil {
		if err := m.persister.SaveSession(ctx, state); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
		}
	}
	s := m.start(state)
	log.GetLogger().Info("session created", zap.String("session_id", state.ID))
	return s, nil
}

// Restore brings persisted sessions back. Work that was in flight when the
// process stopped is settled as failed.
func (m *Manager) Restore(ctx context.Context, states []types.SessionState) int {
	restored := 0
	for _, state := range states {
		if state.ID == "" {
			continue
		}
		s := m.start(state)
		if needsSettling(state) {
			if _, err := s.Dispatch(ctx, Interrupted{Message: InterruptedMessage}); err != nil {
				log.GetLogger().Warn("settle restored session failed", zap.String("session_id", state.ID), zap.Error(err))
			}
		}
		restored++
	}
	return restored
}

func needsSettling(state types.SessionState) bool {
	if state.IsAnalyzing || state.IsStitching {
		return true
	}
	for _, sc := range state.Scenes {
		if sc.Status == types.SceneStatusGenerating {
			return true
		}
	}
	return false
}

func (m *Manager) start(state types.SessionState) *Session {
	s := newSession(state, m.store)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()
	m.metrics.SetActiveSessions(count)

	if m.persister != nil {
		updates, _ := s.Subscribe()
		s.persisted = make(chan struct{})
		m.wg.Add(1)
		go m.persist(s.ID(), updates, s.persisted)
	}
	return s
}

func (m *Manager) persist(id string, updates <-chan types.SessionState, done chan struct{}) {
	defer m.wg.Done()
	defer close(done)
	for snap := range updates {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := m.persister.SaveSession(ctx, snap); err != nil {
			log.GetLogger().Warn("persist session failed", zap.String("session_id", id), zap.Error(err))
		}
		cancel()
	}
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return s, nil
}

// List returns snapshots ordered by creation time.
func (m *Manager) List() []types.SessionState {
	m.mu.RLock()
	out := make([]types.SessionState, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Snapshot())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Delete tears a session down and releases every clip it holds.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	m.metrics.SetActiveSessions(count)

	m.teardown(ctx, s, true)
	if m.persister != nil {
		if err := m.persister.DeleteSession(ctx, id); err != nil {
			return apperrors.Wrap(apperrors.CodeDBError, apperrors.ErrDBError.Message, err)
		}
	}
	log.GetLogger().Info("session deleted", zap.String("session_id", id))
	return nil
}

// Shutdown stops every session. Clips are released only when release is set;
// a persisted session keeps its clips so it can be restored.
func (m *Manager) Shutdown(ctx context.Context, release bool) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	m.metrics.SetActiveSessions(0)

	for _, s := range sessions {
		m.teardown(ctx, s, release)
	}
	m.wg.Wait()
}

func (m *Manager) teardown(ctx context.Context, s *Session, release bool) {
	final := s.Snapshot()
	s.Close()
	if s.persisted != nil {
		<-s.persisted
	}
	if !release || m.store == nil {
		return
	}
	for _, h := range handlesOf(final.Scenes) {
		if err := m.store.Release(ctx, h); err != nil {
			log.GetLogger().Warn("release clip failed", zap.String("session_id", s.ID()), zap.Error(err))
		}
	}
	if err := m.store.ReleaseSession(ctx, s.ID()); err != nil {
		log.GetLogger().Warn("release session clips failed", zap.String("session_id", s.ID()), zap.Error(err))
	}
}
