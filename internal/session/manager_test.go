package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veo-director/internal/types"
	apperrors "veo-director/pkg/errors"
)

type memPersister struct {
	mu      sync.Mutex
	saved   map[string]types.SessionState
	deleted []string
	saveErr error
}

func newMemPersister() *memPersister {
	return &memPersister{saved: map[string]types.SessionState{}}
}

func (p *memPersister) SaveSession(_ context.Context, state types.SessionState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saved[state.ID] = state
	return nil
}

func (p *memPersister) DeleteSession(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.saved, id)
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *memPersister) get(id string) (types.SessionState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.saved[id]
	return s, ok
}

func TestManagerCreateGetDelete(t *testing.T) {
	store := &recordingStore{}
	persister := newMemPersister()
	m := NewManager(store, persister, nil)
	ctx := context.Background()

	s, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StyleOriginal, s.Snapshot().Style)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Len(t, m.List(), 1)

	_, err = s.Dispatch(ctx, VideoUploaded{Source: types.VideoSource{FileName: "a.mp4"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		saved, ok := persister.get(s.ID())
		return ok && saved.Video != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Delete(ctx, s.ID()))
	_, err = m.Get(s.ID())
	assert.True(t, apperrors.Is(err, apperrors.CodeSessionNotFound))
	_, ok := persister.get(s.ID())
	assert.False(t, ok)
	assert.Equal(t, []string{s.ID()}, store.sessions)

	assert.True(t, apperrors.Is(m.Delete(ctx, s.ID()), apperrors.CodeSessionNotFound))
}

func TestManagerDeleteReleasesClips(t *testing.T) {
	store := &recordingStore{}
	m := NewManager(store, nil, nil)
	state := readyState("a", "b")
	state.ID = "restored"
	state.Scenes[1].Status = types.SceneStatusCompleted
	state.Scenes[1].Video = &types.ResourceHandle{Key: "clip-b"}
	m.Restore(context.Background(), []types.SessionState{state})

	require.NoError(t, m.Delete(context.Background(), "restored"))
	assert.Contains(t, store.Released(), "clip-b")
}

func TestManagerCreatePersistFailure(t *testing.T) {
	persister := newMemPersister()
	persister.saveErr = errors.New("disk full")
	m := NewManager(nil, persister, nil)

	_, err := m.Create(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.CodeDBError))
	assert.Empty(t, m.List())
}

func TestManagerRestoreSettlesInterruptedWork(t *testing.T) {
	m := NewManager(nil, nil, nil)
	state := readyState("a", "b")
	state.ID = "s1"
	state.IsStitching = true
	state.Scenes[0].Status = types.SceneStatusGenerating

	clean := readyState("c")
	clean.ID = "s2"

	n := m.Restore(context.Background(), []types.SessionState{state, clean, {}})
	assert.Equal(t, 2, n)

	s, err := m.Get("s1")
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.False(t, snap.IsStitching)
	assert.Equal(t, types.SceneStatusFailed, snap.Scenes[0].Status)
	assert.Equal(t, InterruptedMessage, snap.Scenes[0].Error)

	s2, err := m.Get("s2")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), s2.Snapshot().Version)

	m.Shutdown(context.Background(), false)
	assert.Empty(t, m.List())
}

func TestManagerShutdownRelease(t *testing.T) {
	store := &recordingStore{}
	m := NewManager(store, nil, nil)
	state := readyState("a")
	state.ID = "s1"
	state.Scenes[0].Status = types.SceneStatusCompleted
	state.Scenes[0].Video = &types.ResourceHandle{Key: "clip-a"}
	m.Restore(context.Background(), []types.SessionState{state})

	m.Shutdown(context.Background(), true)
	assert.Equal(t, []string{"clip-a"}, store.Released())
	assert.Equal(t, []string{"s1"}, store.sessions)
}
