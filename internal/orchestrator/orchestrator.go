// Package orchestrator runs scene synthesis jobs: submit, poll until done,
// fetch the clip, store it and commit the outcome to the session.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"veo-director/internal/metrics"
	"veo-director/internal/session"
	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
	"veo-director/pkg/gemini"
)

const defaultPollInterval = 5 * time.Second

type Synthesizer interface {
	SubmitVideo(ctx context.Context, prompt string) (*gemini.VideoOperation, error)
	PollVideo(ctx context.Context, op *gemini.VideoOperation) (*gemini.VideoOperation, error)
	FetchAsset(ctx context.Context, uri string) (*gemini.Asset, error)
}

// CredentialHost lets a job wait for an API key to be selected.
type CredentialHost interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
}

type AssetStore interface {
	Put(ctx context.Context, sessionID, sceneID string, data []byte, mimeType string) (*types.ResourceHandle, error)
	Release(ctx context.Context, handle types.ResourceHandle) error
}

// Target is the session a job commits to.
type Target interface {
	ID() string
	Snapshot() types.SessionState
	Dispatch(ctx context.Context, a session.Action) (types.SessionState, error)
}

type Options struct {
	PollInterval time.Duration
	// JobTimeout bounds a single scene job. Zero means no deadline.
	JobTimeout time.Duration
	// Credentials may be nil, in which case jobs start without a key check.
	Credentials CredentialHost
	Metrics     *metrics.Collector
}

type jobKey struct {
	sessionID string
	sceneID   string
}

type Orchestrator struct {
	synth Synthesizer
	store AssetStore
	opts  Options

	mu      sync.Mutex
	jobs    map[jobKey]context.CancelFunc
	batches map[string]context.CancelFunc
}

func New(synth Synthesizer, store AssetStore, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Orchestrator{
		synth:   synth,
		store:   store,
		opts:    opts,
		jobs:    make(map[jobKey]context.CancelFunc),
		batches: make(map[string]context.CancelFunc),
	}
}

// EnsureCredential blocks until a key is available when a credential host is configured.
// Host errors are logged and ignored.
func (o *Orchestrator) EnsureCredential(ctx context.Context) error {
	host := o.opts.Credentials
	if host == nil {
		return nil
	}
	ok, err := host.HasSelectedKey(ctx)
	if err != nil {
		log.GetLogger().Warn("credential check failed, continuing", zap.Error(err))
		return nil
	}
	if ok {
		return nil
	}
	log.GetLogger().Info("waiting for an API key to be selected")
	if err = host.OpenSelectKey(ctx); err != nil {
		if ctx.Err() != nil {
			return apperrors.Wrap(apperrors.CodeCredentialMissing, "No API key selected", err)
		}
		log.GetLogger().Warn("credential selection failed, continuing", zap.Error(err))
	}
	return nil
}

// GenerateScene runs one synthesis job for sceneID and blocks until it settles.
// The scene is marked generating before any remote call is made.
func (o *Orchestrator) GenerateScene(ctx context.Context, target Target, sceneID string) error {
	if err := o.EnsureCredential(ctx); err != nil {
		o.raise(ctx, target, err)
		return err
	}

	jobCtx, cancel := o.jobContext(ctx)
	defer cancel()

	key := jobKey{sessionID: target.ID(), sceneID: sceneID}
	if !o.register(key, cancel) {
		return apperrors.New(apperrors.CodeBusy, "Scene is already generating")
	}
	defer o.unregister(key)

	state, err := target.Dispatch(ctx, session.SceneStarted{SceneID: sceneID})
	if err != nil {
		return err
	}
	idx := state.SceneIndex(sceneID)
	prompt := state.Scenes[idx].Prompt

	o.opts.Metrics.SceneJobStarted()
	started := time.Now()
	logger := log.GetLogger().With(zap.String("session_id", target.ID()), zap.String("scene_id", sceneID))
	logger.Info("scene generation started")

	err = o.run(jobCtx, target, sceneID, prompt)
	o.opts.Metrics.SceneJobFinished(err, time.Since(started))
	if err != nil {
		err = classify(jobCtx, err)
		logger.Warn("scene generation failed", zap.Error(err))
		commitCtx := context.WithoutCancel(ctx)
		if _, derr := target.Dispatch(commitCtx, session.SceneFailed{SceneID: sceneID, Message: apperrors.UserMessage(err)}); derr != nil {
			logger.Warn("commit scene failure", zap.Error(derr))
		}
		return err
	}
	logger.Info("scene generation completed", zap.Duration("elapsed", time.Since(started)))
	return nil
}

func (o *Orchestrator) run(ctx context.Context, target Target, sceneID, prompt string) error {
	op, err := o.synth.SubmitVideo(ctx, prompt)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()
	for !op.Done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		o.opts.Metrics.ScenePolled()
		if op, err = o.synth.PollVideo(ctx, op); err != nil {
			return err
		}
	}
	if op.Err != nil {
		return op.Err
	}

	asset, err := o.synth.FetchAsset(ctx, op.URI)
	if err != nil {
		return err
	}
	handle, err := o.store.Put(ctx, target.ID(), sceneID, asset.Data, asset.MimeType)
	if err != nil {
		return err
	}

	// The clip is stored; commit it even if the job is being cancelled right now.
	if _, err = target.Dispatch(context.WithoutCancel(ctx), session.SceneCompleted{SceneID: sceneID, Handle: *handle}); err != nil {
		if rerr := o.store.Release(context.WithoutCancel(ctx), *handle); rerr != nil {
			log.GetLogger().Warn("release orphaned clip failed", zap.String("key", handle.Key), zap.Error(rerr))
		}
		return err
	}
	return nil
}

// GenerateAll marks the batch as started and runs it.
func (o *Orchestrator) GenerateAll(ctx context.Context, target Target) error {
	if err := o.BeginBatch(ctx, target); err != nil {
		return err
	}
	return o.RunBatch(ctx, target)
}

// BeginBatch commits the batch start, so a second request is refused before
// any work is queued.
func (o *Orchestrator) BeginBatch(ctx context.Context, target Target) error {
	_, err := target.Dispatch(ctx, session.BatchStarted{})
	return err
}

// RunBatch generates every scene that has no clip yet, one at a time and in
// storyboard order. A failed scene does not stop the batch. The batch must have
// been begun; a session no longer marked as stitching is left alone.
func (o *Orchestrator) RunBatch(ctx context.Context, target Target) (err error) {
	logger := log.GetLogger().With(zap.String("session_id", target.ID()))
	if !target.Snapshot().IsStitching {
		logger.Info("skipping batch, session is not stitching")
		return nil
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	if _, running := o.batches[target.ID()]; running {
		o.mu.Unlock()
		return apperrors.ErrBusy
	}
	o.batches[target.ID()] = cancel
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.batches, target.ID())
		o.mu.Unlock()
		if _, derr := target.Dispatch(context.WithoutCancel(ctx), session.BatchFinished{}); derr != nil {
			logger.Warn("commit batch end", zap.Error(derr))
		}
		o.opts.Metrics.RecordBatch(err)
	}()

	if err = o.EnsureCredential(batchCtx); err != nil {
		o.raise(ctx, target, err)
		return err
	}

	state := target.Snapshot()
	ids := make([]string, len(state.Scenes))
	for i, sc := range state.Scenes {
		ids[i] = sc.ID
	}

	failed := 0
	for _, id := range ids {
		if batchCtx.Err() != nil {
			return apperrors.Wrap(apperrors.CodeCanceled, "Batch cancelled", batchCtx.Err())
		}
		current := target.Snapshot()
		idx := current.SceneIndex(id)
		if idx < 0 {
			continue
		}
		sc := current.Scenes[idx]
		if sc.Video != nil || sc.Status == types.SceneStatusGenerating {
			continue
		}
		if gerr := o.GenerateScene(batchCtx, target, id); gerr != nil {
			failed++
		}
	}
	if batchCtx.Err() != nil {
		return apperrors.Wrap(apperrors.CodeCanceled, "Batch cancelled", batchCtx.Err())
	}
	logger.Info("batch finished", zap.Int("scenes", len(ids)), zap.Int("failed", failed))
	return nil
}

// Cancel stops the running job of one scene.
func (o *Orchestrator) Cancel(sessionID, sceneID string) bool {
	o.mu.Lock()
	cancel, ok := o.jobs[jobKey{sessionID: sessionID, sceneID: sceneID}]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelBatch stops a running batch. The scene in flight fails as cancelled;
// scenes not yet started keep their state.
func (o *Orchestrator) CancelBatch(sessionID string) bool {
	o.mu.Lock()
	cancel, ok := o.batches[sessionID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelSession stops every job of a session.
func (o *Orchestrator) CancelSession(sessionID string) {
	o.mu.Lock()
	var cancels []context.CancelFunc
	if c, ok := o.batches[sessionID]; ok {
		cancels = append(cancels, c)
	}
	for k, c := range o.jobs {
		if k.sessionID == sessionID {
			cancels = append(cancels, c)
		}
	}
	o.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.batches {
		c()
	}
	for _, c := range o.jobs {
		c()
	}
}

// Running reports whether a job for the scene is in flight.
func (o *Orchestrator) Running(sessionID, sceneID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.jobs[jobKey{sessionID: sessionID, sceneID: sceneID}]
	return ok
}

func (o *Orchestrator) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.JobTimeout > 0 {
		return context.WithTimeout(ctx, o.opts.JobTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) register(key jobKey, cancel context.CancelFunc) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.jobs[key]; exists {
		return false
	}
	o.jobs[key] = cancel
	return true
}

func (o *Orchestrator) unregister(key jobKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.jobs, key)
}

func (o *Orchestrator) raise(ctx context.Context, target Target, err error) {
	_, _ = target.Dispatch(context.WithoutCancel(ctx), session.ErrorRaised{Message: apperrors.UserMessage(err)})
}

// classify maps context errors onto the timeout and cancel codes.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.CodeGenerationTimeout, "Video generation timed out", context.DeadlineExceeded)
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return apperrors.Wrap(apperrors.CodeCanceled, "Video generation cancelled", context.Canceled)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.CodeGenerationFailed, "Video generation failed", err)
}
