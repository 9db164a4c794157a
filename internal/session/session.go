package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

const subscriberBuffer = 16

// Releaser frees resource handles dropped by a transition.
type Releaser interface {
	Release(ctx context.Context, handle types.ResourceHandle) error
}

type result struct {
	state types.SessionState
	err   error
}

type envelope struct {
	action Action
	reply  chan result
}

// Session is a single-writer actor over one SessionState. Every transition
// runs on the session goroutine, so observers never see a partial update.
type Session struct {
	id       string
	actions  chan envelope
	releases chan types.ResourceHandle
	releaser Releaser
	now      func() time.Time

	mu       sync.RWMutex
	snapshot types.SessionState
	subs     map[int]chan types.SessionState
	nextSub  int

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}

	// persisted is closed once the manager's persistence goroutine has drained.
	persisted chan struct{}
}

func newSession(initial types.SessionState, releaser Releaser) *Session {
	if initial.Scenes == nil {
		initial.Scenes = []types.Scene{}
	}
	s := &Session{
		id:       initial.ID,
		actions:  make(chan envelope),
		releases: make(chan types.ResourceHandle, 64),
		releaser: releaser,
		now:      time.Now,
		snapshot: initial,
		subs:     make(map[int]chan types.SessionState),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go s.releaseLoop()
	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Snapshot returns a copy of the latest committed state.
func (s *Session) Snapshot() types.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Dispatch applies a and returns the state right after the transition.
func (s *Session) Dispatch(ctx context.Context, a Action) (types.SessionState, error) {
	env := envelope{action: a, reply: make(chan result, 1)}
	select {
	case s.actions <- env:
	case <-s.done:
		return types.SessionState{}, apperrors.ErrSessionClosed
	case <-ctx.Done():
		return types.SessionState{}, ctx.Err()
	}
	// The loop always replies once it has accepted the envelope.
	r := <-env.reply
	return r.state, r.err
}

// Subscribe streams committed snapshots. Slow subscribers lose the oldest
// snapshots, never the newest. The channel is closed when the session closes
// or cancel is called.
func (s *Session) Subscribe() (<-chan types.SessionState, func()) {
	ch := make(chan types.SessionState, subscriberBuffer)
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close stops the actor and waits for pending releases to finish.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
	})
}

func (s *Session) loop() {
	defer func() {
		close(s.releases)
		s.mu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-s.done:
			return
		case env := <-s.actions:
			s.apply(env)
		}
	}
}

func (s *Session) apply(env envelope) {
	s.mu.RLock()
	current := s.snapshot
	s.mu.RUnlock()

	next, released, err := Reduce(current, env.action, s.now())
	if err != nil {
		env.reply <- result{state: current.Clone(), err: err}
		return
	}

	s.mu.Lock()
	s.snapshot = next
	for _, ch := range s.subs {
		publish(ch, next.Clone())
	}
	s.mu.Unlock()

	for _, h := range released {
		s.releases <- h
	}
	log.GetLogger().Debug("session transition",
		zap.String("session_id", s.id), zap.String("action", env.action.name()), zap.Uint64("version", next.Version))
	env.reply <- result{state: next.Clone()}
}

func publish(ch chan types.SessionState, snap types.SessionState) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *Session) releaseLoop() {
	defer close(s.stopped)
	for h := range s.releases {
		if s.releaser == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := s.releaser.Release(ctx, h); err != nil {
			log.GetLogger().Warn("release clip failed",
				zap.String("session_id", s.id), zap.String("key", h.Key), zap.Error(err))
		}
		cancel()
	}
}
