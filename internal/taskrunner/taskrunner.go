package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"veo-director/log"
)

const (
	defaultQueueSize        = 128
	defaultConcurrency      = 2
	defaultBatchConcurrency = 1
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Config controls in-process task runner behavior. Batches run on their own
// BatchConcurrency workers so they never occupy the Concurrency workers that
// serve analysis, scripting and single scenes.
type Config struct {
	QueueSize        int
	Concurrency      int
	BatchConcurrency int
}

// DefaultConfig returns a single-host default config.
func DefaultConfig() Config {
	return Config{
		QueueSize:        defaultQueueSize,
		Concurrency:      defaultConcurrency,
		BatchConcurrency: defaultBatchConcurrency,
	}
}

// Executor runs the work behind each task type.
type Executor interface {
	RunAnalysis(ctx context.Context, sessionID string) error
	RunScript(ctx context.Context, sessionID string) error
	RunScene(ctx context.Context, sessionID, sceneID string) error
	RunBatch(ctx context.Context, sessionID string) error
}

type taskType uint8

const (
	taskAnalysis taskType = iota + 1
	taskScript
	taskScene
	taskBatch
)

func (t taskType) String() string {
	switch t {
	case taskAnalysis:
		return "analysis"
	case taskScript:
		return "script"
	case taskScene:
		return "scene"
	case taskBatch:
		return "batch"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

type queuedTask struct {
	taskType  taskType
	sessionID string
	sceneID   string
}

// Runner executes queued tasks with in-memory workers. A batch occupies one
// batch worker for its whole run, so its scenes never overlap.
type Runner struct {
	exec   Executor
	config Config

	queue      chan queuedTask
	batchQueue chan queuedTask
	ctx        context.Context
	cancel     context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
}

// New creates and starts a task runner.
func New(exec Executor, cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		exec:       exec,
		config:     cfg,
		queue:      make(chan queuedTask, cfg.QueueSize),
		batchQueue: make(chan queuedTask, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	workerID := 0
	for i := 0; i < cfg.Concurrency; i++ {
		workerID++
		runner.workerWg.Add(1)
		go runner.worker(workerID, runner.queue)
	}
	for i := 0; i < cfg.BatchConcurrency; i++ {
		workerID++
		runner.workerWg.Add(1)
		go runner.worker(workerID, runner.batchQueue)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	return cfg
}

func (r *Runner) SubmitAnalysis(sessionID string) error {
	return r.submit(queuedTask{taskType: taskAnalysis, sessionID: sessionID})
}

func (r *Runner) SubmitScript(sessionID string) error {
	return r.submit(queuedTask{taskType: taskScript, sessionID: sessionID})
}

func (r *Runner) SubmitScene(sessionID, sceneID string) error {
	if sceneID == "" {
		return errors.New("scene id is required")
	}
	return r.submit(queuedTask{taskType: taskScene, sessionID: sessionID, sceneID: sceneID})
}

func (r *Runner) SubmitBatch(sessionID string) error {
	return r.submit(queuedTask{taskType: taskBatch, sessionID: sessionID})
}

func (r *Runner) submit(task queuedTask) error {
	if task.sessionID == "" {
		return errors.New("session id is required")
	}
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	queue := r.queue
	if task.taskType == taskBatch {
		queue = r.batchQueue
	}
	select {
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case queue <- task:
		log.GetLogger().Info("[TaskRunner] task submitted",
			zap.String("session_id", task.sessionID),
			zap.String("scene_id", task.sceneID),
			zap.Stringer("task_type", task.taskType))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) worker(workerID int, queue <-chan queuedTask) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case task := <-queue:
			r.processTask(workerID, task)
		}
	}
}

func (r *Runner) processTask(workerID int, task queuedTask) {
	var err error
	switch task.taskType {
	case taskAnalysis:
		err = r.exec.RunAnalysis(r.ctx, task.sessionID)
	case taskScript:
		err = r.exec.RunScript(r.ctx, task.sessionID)
	case taskScene:
		err = r.exec.RunScene(r.ctx, task.sessionID, task.sceneID)
	case taskBatch:
		err = r.exec.RunBatch(r.ctx, task.sessionID)
	default:
		err = fmt.Errorf("unsupported task type: %d", task.taskType)
	}

	if err != nil {
		log.GetLogger().Error("[TaskRunner] task failed",
			zap.Int("worker_id", workerID),
			zap.String("session_id", task.sessionID),
			zap.String("scene_id", task.sceneID),
			zap.Stringer("task_type", task.taskType),
			zap.Error(err))
		return
	}

	log.GetLogger().Info("[TaskRunner] task completed",
		zap.Int("worker_id", workerID),
		zap.String("session_id", task.sessionID),
		zap.String("scene_id", task.sceneID),
		zap.Stringer("task_type", task.taskType))
}

// Close stops workers and rejects new tasks. Running tasks see their context
// cancelled; queued tasks are dropped.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued tasks waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue) + len(r.batchQueue)
}
