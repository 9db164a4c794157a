package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veo-director/internal/types"
	apperrors "veo-director/pkg/errors"
)

type recordingStore struct {
	mu       sync.Mutex
	released []string
	sessions []string
}

func (r *recordingStore) Release(_ context.Context, h types.ResourceHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, h.Key)
	return nil
}

func (r *recordingStore) ReleaseSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, id)
	return nil
}

func (r *recordingStore) Released() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.released...)
}

func TestDispatchReturnsCommittedState(t *testing.T) {
	s := newSession(readyState("a"), nil)
	defer s.Close()

	got, err := s.Dispatch(context.Background(), SceneStarted{SceneID: "a"})
	require.NoError(t, err)
	assert.Equal(t, types.SceneStatusGenerating, got.Scenes[0].Status)
	assert.Equal(t, got, s.Snapshot())

	// a rejected action returns the unchanged state with the error
	got, err = s.Dispatch(context.Background(), SceneStarted{SceneID: "a"})
	assert.True(t, apperrors.Is(err, apperrors.CodeBusy))
	assert.Equal(t, uint64(1), got.Version)
}

func TestSubscribersSeeEveryTransitionInOrder(t *testing.T) {
	s := newSession(readyState("a"), nil)
	defer s.Close()

	updates, cancel := s.Subscribe()
	defer cancel()

	ctx := context.Background()
	_, err := s.Dispatch(ctx, SceneStarted{SceneID: "a"})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, SceneCompleted{SceneID: "a", Handle: types.ResourceHandle{Key: "k"}})
	require.NoError(t, err)

	first := <-updates
	second := <-updates
	assert.Equal(t, types.SceneStatusGenerating, first.Scenes[0].Status)
	assert.Equal(t, types.SceneStatusCompleted, second.Scenes[0].Status)
	assert.Less(t, first.Version, second.Version)
}

func TestSlowSubscriberKeepsNewest(t *testing.T) {
	s := newSession(readyState("a"), nil)
	defer s.Close()

	updates, cancel := s.Subscribe()
	defer cancel()

	var last types.SessionState
	for i := 0; i < subscriberBuffer*3; i++ {
		var err error
		last, err = s.Dispatch(context.Background(), PromptEdited{SceneID: "a", Prompt: "p"})
		require.NoError(t, err)
	}

	var got types.SessionState
	for len(updates) > 0 {
		got = <-updates
	}
	assert.Equal(t, last.Version, got.Version)
}

func TestRegenerationReleasesOldClip(t *testing.T) {
	store := &recordingStore{}
	state := readyState("a")
	state.Scenes[0].Status = types.SceneStatusCompleted
	state.Scenes[0].Video = &types.ResourceHandle{Key: "old"}
	s := newSession(state, store)

	_, err := s.Dispatch(context.Background(), SceneStarted{SceneID: "a"})
	require.NoError(t, err)

	s.Close()
	assert.Equal(t, []string{"old"}, store.Released())
}

func TestClosedSession(t *testing.T) {
	s := newSession(readyState("a"), nil)
	updates, _ := s.Subscribe()
	s.Close()
	s.Close()

	_, ok := <-updates
	assert.False(t, ok)

	_, err := s.Dispatch(context.Background(), BatchStarted{})
	assert.True(t, apperrors.Is(err, apperrors.CodeSessionClosed))

	late, _ := s.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestDispatchHonoursContext(t *testing.T) {
	s := newSession(readyState("a"), nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the loop may still win the race, so only check the error is one of the two outcomes
	_, err := s.Dispatch(ctx, BatchStarted{})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestConcurrentDispatchIsSerialised(t *testing.T) {
	s := newSession(readyState("a", "b", "c", "d"), nil)
	defer s.Close()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, _ = s.Dispatch(context.Background(), PromptEdited{SceneID: id, Prompt: id})
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, uint64(100), s.Snapshot().Version)
}
