// Package queue dispatches session work through Asynq on Redis, so queued
// jobs survive a process restart.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"veo-director/config"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

// Task type names
const (
	TypeAnalysis      = "session:analyze"
	TypeScript        = "session:script"
	TypeSceneGenerate = "scene:generate"
	TypeBatchGenerate = "scene:generate_all"
)

const (
	queueInteractive = "critical"
	queueSynthesis   = "default"
	// queueBatch is served by its own server so a long batch never takes a
	// worker from analysis, scripting or single scenes.
	queueBatch = "batch"
)

// Payload addresses the session, and for scene tasks the scene, a task works on.
type Payload struct {
	SessionID string `json:"session_id"`
	SceneID   string `json:"scene_id,omitempty"`
}

// Queue manages task enqueueing and processing
type Queue struct {
	client      *asynq.Client
	server      *asynq.Server
	batchServer *asynq.Server
	config      config.QueueConfig
}

func redisOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewQueue creates a new Queue instance. Nothing connects until the first
// enqueue or Start.
func NewQueue(cfg config.QueueConfig) *Queue {
	cfg = normalizeConfig(cfg)
	opt := redisOpt(cfg)
	interactive, batch := serverConfigs(cfg)

	return &Queue{
		client:      asynq.NewClient(opt),
		server:      asynq.NewServer(opt, interactive),
		batchServer: asynq.NewServer(opt, batch),
		config:      cfg,
	}
}

func normalizeConfig(cfg config.QueueConfig) config.QueueConfig {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 1
	}
	return cfg
}

// serverConfigs splits the queues between two servers with disjoint queue sets.
func serverConfigs(cfg config.QueueConfig) (asynq.Config, asynq.Config) {
	errorHandler := asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		log.GetLogger().Error("Task failed",
			zap.String("type", task.Type()),
			zap.ByteString("payload", task.Payload()),
			zap.Error(err))
	})
	interactive := asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			queueInteractive: 6,
			queueSynthesis:   3,
		},
		ErrorHandler: errorHandler,
	}
	batch := asynq.Config{
		Concurrency:  cfg.BatchConcurrency,
		Queues:       map[string]int{queueBatch: 1},
		ErrorHandler: errorHandler,
	}
	return interactive, batch
}

// newTask builds a task. Nothing is retried automatically: every retry is a
// user action.
func newTask(taskType string, payload Payload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	opts := []asynq.Option{asynq.MaxRetry(0)}
	switch taskType {
	case TypeAnalysis, TypeScript:
		opts = append(opts, asynq.Queue(queueInteractive), asynq.Timeout(15*time.Minute))
	case TypeSceneGenerate:
		opts = append(opts, asynq.Queue(queueSynthesis), asynq.Timeout(time.Hour))
	case TypeBatchGenerate:
		// One batch per session at a time.
		opts = append(opts, asynq.Queue(queueBatch), asynq.Timeout(12*time.Hour),
			asynq.TaskID("batch:"+payload.SessionID))
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}
	return asynq.NewTask(taskType, data, opts...), nil
}

func (q *Queue) enqueue(taskType string, payload Payload) error {
	task, err := newTask(taskType, payload)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return apperrors.ErrBusy
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.GetLogger().Info("Task enqueued",
		zap.String("type", taskType),
		zap.String("session_id", payload.SessionID),
		zap.String("scene_id", payload.SceneID),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

func (q *Queue) SubmitAnalysis(sessionID string) error {
	return q.enqueue(TypeAnalysis, Payload{SessionID: sessionID})
}

func (q *Queue) SubmitScript(sessionID string) error {
	return q.enqueue(TypeScript, Payload{SessionID: sessionID})
}

func (q *Queue) SubmitScene(sessionID, sceneID string) error {
	return q.enqueue(TypeSceneGenerate, Payload{SessionID: sessionID, SceneID: sceneID})
}

func (q *Queue) SubmitBatch(sessionID string) error {
	return q.enqueue(TypeBatchGenerate, Payload{SessionID: sessionID})
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	q.server.Shutdown()
	q.batchServer.Shutdown()
	return q.client.Close()
}
